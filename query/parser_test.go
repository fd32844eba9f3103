package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vegasq/sqlhub/table"
)

func TestParser_Parse(t *testing.T) {
	parser := NewParser(nil)

	s, err := parser.Parse(`SELECT name, count(*) AS total, concat(a, ' as b') FROM google.issues.open
		WHERE a > 1 GROUP BY name HAVING count(*) > 2 ORDER BY total DESC, name LIMIT 10 OFFSET 5`)
	require.NoError(t, err)

	assert.Equal(t, []Field{
		{Expr: "name"},
		{Expr: "count(*)", Alias: "total"},
		{Expr: "concat(a, ' as b')"},
	}, s.Fields())
	assert.Equal(t, Source{Label: "google.issues.open"}, s.Source())
	assert.Equal(t, "a > 1", s.condition)
	assert.Equal(t, []string{"name"}, s.groups)
	assert.Equal(t, "count(*) > 2", s.having)
	assert.Equal(t, []OrderItem{
		{Expr: "count(*)", Direction: Descending},
		{Expr: "name", Direction: Ascending},
	}, s.orders)
	assert.Equal(t, 10, s.limit)
	assert.Equal(t, 5, s.offset)
}

func TestParser_HavingAlias(t *testing.T) {
	s, err := NewParser(nil).Parse("select max(n) as top from acme.repos group by org having top")
	require.NoError(t, err)
	assert.Equal(t, "max(n)", s.having)
}

func TestParser_Limit(t *testing.T) {
	tests := []struct {
		body   string
		limit  int
		offset int
	}{
		{"3", 3, 0},
		{"4, 3", 3, 4},
		{"3 offset 4", 3, 4},
		{"0", 0, 0},
	}

	for _, tt := range tests {
		limit, offset, err := parseLimit(tt.body)
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.limit, limit, tt.body)
		assert.Equal(t, tt.offset, offset, tt.body)
	}

	for _, body := range []string{"-1", "ten", "1, 2, 3"} {
		_, _, err := parseLimit(body)
		assert.True(t, table.IsKind(err, ErrSyntax), body)
	}
}

func TestParser_Subquery(t *testing.T) {
	s, err := NewParser(nil).Parse("select n from (select count(*) as n from acme.repos) as counts")
	require.NoError(t, err)
	require.NotNil(t, s.Source().Query)
	assert.Equal(t, []Field{{Expr: "count(*)", Alias: "n"}}, s.Source().Query.Fields())
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		kind error
	}{
		{"missing from", "select a", ErrSyntax},
		{"missing select", "from acme.repos", ErrSyntax},
		{"empty select", "select from acme.repos", ErrSyntax},
		{"empty item", "select a, from acme.repos", ErrSyntax},
		{"two labels", "select a from acme.repos acme.issues", ErrSyntax},
		{"multiple sources", "select a from acme.repos, acme.issues", ErrNotImplemented},
		{"distinct", "select distinct a from acme.repos", ErrNotImplemented},
		{"bad limit", "select a from acme.repos limit x", ErrSyntax},
		{"bad subquery", "select a from (select b) ", ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).Parse(tt.sql)
			require.Error(t, err)
			assert.True(t, table.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestParser_OrderDirections(t *testing.T) {
	tests := []struct {
		body string
		want []OrderItem
	}{
		{"v", []OrderItem{{Expr: "v", Direction: Ascending}}},
		{"v desc", []OrderItem{{Expr: "v", Direction: Descending}}},
		{"v\tDESC", []OrderItem{{Expr: "v", Direction: Descending}}},
		{"a + b  \t asc, c Desc", []OrderItem{{Expr: "a + b", Direction: Ascending}, {Expr: "c", Direction: Descending}}},
		{"descending", []OrderItem{{Expr: "descending", Direction: Ascending}}},
		{"lower(name) desc", []OrderItem{{Expr: "lower(name)", Direction: Descending}}},
	}

	for _, tt := range tests {
		got, err := parseOrder(Clause{Keyword: "order", Body: tt.body})
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.want, got, tt.body)
	}
}
