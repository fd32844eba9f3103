package output

import (
	"bytes"
	"testing"

	snapshot "github.com/jamesrr39/go-snapshot-testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vegasq/sqlhub/table"
)

func newResultTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New("name", "stars", "topics", "note")
	for _, row := range []table.Row{
		{table.String("sqlhub"), table.Int(120), table.List(table.String("go"), table.String("sql")), table.String("fast, small")},
		{table.String("parcat"), table.Float(15.5), table.List(), table.None()},
		{table.String("multi\nline"), table.Bool(true), table.List(table.Int(1)), table.String(`esc\,aped`)},
	} {
		require.NoError(t, tbl.Append(row))
	}
	return tbl
}

func formatWith(t *testing.T, format string, tbl *table.Table) string {
	t.Helper()
	var buf bytes.Buffer
	formatter, err := New(format, &buf)
	require.NoError(t, err)
	require.NoError(t, formatter.Format(tbl))
	return buf.String()
}

func TestFormatters_Snapshots(t *testing.T) {
	tbl := newResultTable(t)
	for _, format := range []string{"text", "csv", "json", "jsonl"} {
		snapshot.AssertMatchesSnapshot(t, "Format_"+format, snapshot.NewTextSnapshot(formatWith(t, format, tbl)))
	}
}

func TestCSVFormatter(t *testing.T) {
	tbl := table.New("id", "a,b")
	require.NoError(t, tbl.Append(table.Row{table.Int(1), table.String(`say "hi"`)}))

	assert.Equal(t, "id,\"a,b\"\n1,say \"hi\"\n", formatWith(t, "csv", tbl))
	assert.Equal(t, "x\n", formatWith(t, "csv", table.New("x")))
}

func TestQuoteCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a,b", `"a,b"`},
		{`a\,b`, `a\,b`},
		{`a\\,b`, `"a\\,b"`},
		{"two\nlines", "\"two\nlines\""},
		{" spaced ", " spaced "},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quoteCell(tt.in), tt.in)
	}
}

func TestTableFormatter(t *testing.T) {
	out := formatWith(t, "table", newResultTable(t))

	assert.Contains(t, out, "name")
	assert.Contains(t, out, "sqlhub")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "3 rows")
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New("xml", &bytes.Buffer{})
	assert.Error(t, err)
	assert.Equal(t, []string{"csv", "json", "jsonl", "parquet", "table", "text"}, Names())
}

func TestSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	formatter := NewTextFormatter(&first)
	formatter.SetOutput(&second)
	require.NoError(t, formatter.Format(table.New("a")))

	assert.Empty(t, first.String())
	assert.Equal(t, "[a]\n", second.String())
}
