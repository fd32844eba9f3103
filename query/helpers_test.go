package query

import (
	"context"
	"errors"
	"testing"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/stretchr/testify/require"
	"github.com/vegasq/sqlhub/table"
)

func newTable(t *testing.T, fields []string, rows ...table.Row) *table.Table {
	t.Helper()
	tbl := table.New(fields...)
	for _, row := range rows {
		require.NoError(t, tbl.Append(row))
	}
	return tbl
}

func ints(vals ...int64) []table.Value {
	out := make([]table.Value, len(vals))
	for i, v := range vals {
		out[i] = table.Int(v)
	}
	return out
}

func bools(vals ...bool) []table.Value {
	out := make([]table.Value, len(vals))
	for i, v := range vals {
		out[i] = table.Bool(v)
	}
	return out
}

func strs(vals ...string) []table.Value {
	out := make([]table.Value, len(vals))
	for i, v := range vals {
		out[i] = table.String(v)
	}
	return out
}

var errLabelNotFound = errors.New("label not found")

// stubFetcher serves fixed tables by label
type stubFetcher struct {
	tables map[string]*table.Table
	calls  int
}

func (f *stubFetcher) Fetch(ctx context.Context, label string) (*table.Table, errorsx.Error) {
	f.calls++
	tbl, ok := f.tables[label]
	if !ok {
		return nil, errorsx.Wrap(errLabelNotFound, "label", label)
	}
	return tbl.Clone(), nil
}
