package query

import (
	"context"
	"errors"
	"testing"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vegasq/sqlhub/table"
)

func newSessionFetcher(t *testing.T) *stubFetcher {
	return &stubFetcher{tables: map[string]*table.Table{
		"acme.nums": newTable(t, []string{"a", "b"},
			table.Row{table.Int(1), table.Int(2)},
			table.Row{table.Int(2), table.Int(3)},
			table.Row{table.Int(3), table.Int(4)},
		),
		"acme.groups": newTable(t, []string{"g", "v"},
			table.Row{table.Int(1), table.Int(10)},
			table.Row{table.Int(1), table.Int(5)},
			table.Row{table.Int(2), table.Int(7)},
		),
		"acme.values": newTable(t, []string{"v"},
			table.Row{table.Int(3)},
			table.Row{table.Int(7)},
			table.Row{table.Int(1)},
		),
		"acme.repos": newTable(t, []string{"name", "stars", "language"},
			table.Row{table.String("sqlhub"), table.Int(120), table.String("Go")},
			table.Row{table.String("parcat"), table.Int(15), table.String("Go")},
			table.Row{table.String("website"), table.Int(40), table.String("JavaScript")},
			table.Row{table.String("notes"), table.Int(2), table.None()},
		),
		"acme.empty": table.New("name", "stars"),
	}}
}

func runQuery(t *testing.T, fetcher Fetcher, sql string) *table.Table {
	t.Helper()
	s, err := NewParser(fetcher).Parse(sql)
	require.NoError(t, err)
	result, err := s.Execute(context.Background())
	require.NoError(t, err)
	return result
}

func TestSession_Execute(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		fields []string
		rows   []table.Row
	}{
		{
			name:   "expression per row",
			sql:    "select a*b from acme.nums",
			fields: []string{"a*b"},
			rows:   []table.Row{{table.Int(2)}, {table.Int(6)}, {table.Int(12)}},
		}, {
			name:   "aggregate collapses",
			sql:    "select max(a) from acme.nums",
			fields: []string{"max(a)"},
			rows:   []table.Row{{table.Int(3)}},
		}, {
			name:   "group by",
			sql:    "select g, sum(v) from acme.groups group by g",
			fields: []string{"g", "sum(v)"},
			rows:   []table.Row{{table.Int(1), table.Int(15)}, {table.Int(2), table.Int(7)}},
		}, {
			name:   "order and limit",
			sql:    "select v from acme.values order by v desc limit 1",
			fields: []string{"v"},
			rows:   []table.Row{{table.Int(7)}},
		}, {
			name:   "order ascending with offset",
			sql:    "select v from acme.values order by v limit 1, 5",
			fields: []string{"v"},
			rows:   []table.Row{{table.Int(3)}, {table.Int(7)}},
		}, {
			name:   "offset with everything after it",
			sql:    "select v from acme.values order by v limit 1, 9223372036854775807",
			fields: []string{"v"},
			rows:   []table.Row{{table.Int(3)}, {table.Int(7)}},
		}, {
			name:   "tab before direction",
			sql:    "select v from acme.values order by v\tDESC limit 2",
			fields: []string{"v"},
			rows:   []table.Row{{table.Int(7)}, {table.Int(3)}},
		}, {
			name:   "where",
			sql:    "select name from acme.repos where language = 'Go' and stars > 20",
			fields: []string{"name"},
			rows:   []table.Row{{table.String("sqlhub")}},
		}, {
			name:   "alias",
			sql:    "select name as repo, stars * 2 as doubled from acme.repos where stars < 10",
			fields: []string{"repo", "doubled"},
			rows:   []table.Row{{table.String("notes"), table.Int(4)}},
		}, {
			name:   "star",
			sql:    "select * from acme.nums limit 1",
			fields: []string{"a", "b"},
			rows:   []table.Row{{table.Int(1), table.Int(2)}},
		}, {
			name:   "having",
			sql:    "select language, count(*) as repos from acme.repos group by language having count(*) > 1",
			fields: []string{"language", "repos"},
			rows:   []table.Row{{table.String("Go"), table.Int(2)}},
		}, {
			name:   "groups ordered by aggregate",
			sql:    "select g, sum(v) as total from acme.groups group by g order by total",
			fields: []string{"g", "total"},
			rows:   []table.Row{{table.Int(2), table.Int(7)}, {table.Int(1), table.Int(15)}},
		}, {
			name:   "subquery",
			sql:    "select n from (select count(*) as n from acme.repos where stars > 10) as counts",
			fields: []string{"n"},
			rows:   []table.Row{{table.Int(3)}},
		}, {
			name:   "where removes every row",
			sql:    "select name, stars from acme.repos where stars > 1000",
			fields: []string{"name", "stars"},
			rows:   nil,
		}, {
			name:   "empty source",
			sql:    "select upper(name) from acme.empty",
			fields: []string{"upper(name)"},
			rows:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runQuery(t, newSessionFetcher(t), tt.sql)
			assert.Equal(t, tt.fields, result.Fields())
			if tt.rows == nil {
				assert.Equal(t, 0, result.Len())
				return
			}
			assert.Equal(t, tt.rows, result.Rows())
		})
	}
}

func TestSession_ExecuteIsRepeatable(t *testing.T) {
	fetcher := newSessionFetcher(t)
	s, err := NewParser(fetcher).Parse("select g, sum(v) from acme.groups group by g order by g desc")
	require.NoError(t, err)

	first, err := s.Execute(context.Background())
	require.NoError(t, err)
	second, err := s.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Rows(), second.Rows())
	assert.Equal(t, 2, fetcher.calls)
}

func TestSession_FetchError(t *testing.T) {
	s, err := NewParser(newSessionFetcher(t)).Parse("select a from acme.missing")
	require.NoError(t, err)

	_, err = s.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(errorsx.Cause(err), errLabelNotFound))
}

func TestSession_Errors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		kind error
	}{
		{"unknown column", "select nope from acme.nums", table.ErrLookup},
		{"unknown column in where", "select a from acme.nums where nope > 1", table.ErrLookup},
		{"bad expression", "select a + from acme.nums", ErrEvaluation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewParser(newSessionFetcher(t)).Parse(tt.sql)
			require.NoError(t, err)
			_, err = s.Execute(context.Background())
			require.Error(t, err)
			assert.True(t, table.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestSession_NoFetcher(t *testing.T) {
	s := NewSession(nil, []Field{{Expr: "a"}}, Source{Label: "acme.nums"})
	_, err := s.Execute(context.Background())
	assert.Error(t, err)
}
