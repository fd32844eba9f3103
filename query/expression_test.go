package query

import (
	"bytes"
	"testing"

	"github.com/jamesrr39/goutil/logpkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vegasq/sqlhub/table"
)

func fruitTable(t *testing.T) *table.Table {
	return newTable(t, []string{"a", "b", "s", "n"},
		table.Row{table.Int(1), table.Int(2), table.String("BANANA"), table.None()},
		table.Row{table.Int(2), table.Int(4), table.String("APPLE"), table.None()},
		table.Row{table.Int(3), table.Int(6), table.String("BERRY"), table.None()},
	)
}

func TestEvaluateExpression(t *testing.T) {
	tbl := fruitTable(t)
	none := table.None()

	tests := []struct {
		name string
		expr string
		want []table.Value
	}{
		{"multiply columns", "a * b", ints(2, 8, 18)},
		{"precedence", "a + b * 2", ints(5, 10, 15)},
		{"parentheses", "(a + b) * 2", ints(6, 12, 18)},
		{"left associative", "a - 1 - 1", ints(-1, 0, 1)},
		{"unary minus", "-a", ints(-1, -2, -3)},
		{"negative literal", "a > -1", bools(true, true, true)},
		{"unary minus after operator", "2 * -a", ints(-2, -4, -6)},
		{"division is float", "b / a", []table.Value{table.Float(2), table.Float(2), table.Float(2)}},
		{"modulo", "a % 2", ints(1, 0, 1)},
		{"integer division", "b div 4", ints(0, 1, 1)},
		{"division by zero", "a / 0", []table.Value{none, none, none}},
		{"equality", "a = 2", bools(false, true, false)},
		{"boolean logic", "a != 2 and b > 2", bools(false, false, true)},
		{"or", "a = 1 || a = 3", bools(true, false, true)},
		{"xor", "a > 1 xor b > 4", bools(false, true, false)},
		{"not binds looser than comparison", "not a = 2", bools(true, false, true)},
		{"in list", "a in (1, 3)", bools(true, false, true)},
		{"not in list", "a not in (1, 3)", bools(false, true, false)},
		{"in single value", "a in (2)", bools(false, true, false)},
		{"like prefix", "s like 'B%'", bools(true, false, true)},
		{"like suffix", `s LIKE "%A"`, bools(true, false, false)},
		{"like single char", "s like '%AN_NA'", bools(true, false, false)},
		{"not like", "s not like 'B%'", bools(false, true, false)},
		{"like escaped percent", `'50%' like '50\%'`, bools(true, true, true)},
		{"regexp is anchored", "s regexp 'B.*'", bools(true, false, true)},
		{"regexp must match whole value", "s regexp 'AN'", bools(false, false, false)},
		{"string concatenation", "s + 'X'", strs("BANANAX", "APPLEX", "BERRYX")},
		{"nested functions", "upper(lower(s))", strs("BANANA", "APPLE", "BERRY")},
		{"function with list arguments", "concat(s, '-', a)", strs("BANANA-1", "APPLE-2", "BERRY-3")},
		{"aggregate broadcasts", "max(a)", ints(3, 3, 3)},
		{"count star", "count(*)", ints(3, 3, 3)},
		{"aggregate in arithmetic", "sum(a) + a", ints(7, 8, 9)},
		{"aggregate of expression", "sum(a * b)", ints(28, 28, 28)},
		{"is null", "n is null", bools(true, true, true)},
		{"is not null", "s is not null", bools(true, true, true)},
		{"none in arithmetic", "n + 1", []table.Value{none, none, none}},
		{"coalesce", "coalesce(n, a)", ints(1, 2, 3)},
		{"escaped quote", `"it\'s"`, strs("it's", "it's", "it's")},
		{"literals", "true and not false", bools(true, true, true)},
		{"bitwise", "a & 1 | 4", ints(5, 4, 5)},
		{"unknown function passes through", "frobnicate(a)", ints(1, 2, 3)},
		{"case insensitive keywords", "a IN (3) OR FALSE", bools(false, false, true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateExpression(tbl, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateExpression_Errors(t *testing.T) {
	tbl := fruitTable(t)

	tests := []struct {
		name string
		expr string
		kind error
	}{
		{"empty", "   ", ErrEvaluation},
		{"dangling operator", "a +", ErrEvaluation},
		{"unclosed parenthesis", "(a + 1", ErrEvaluation},
		{"unopened parenthesis", "a + 1)", ErrEvaluation},
		{"unterminated string", "'abc", ErrEvaluation},
		{"adjacent operands", "a b", ErrEvaluation},
		{"unknown character", "a # b", ErrEvaluation},
		{"wrong arity", "substr(s)", ErrEvaluation},
		{"aggregate with two arguments", "max(a, b)", ErrEvaluation},
		{"invalid regexp", "s regexp '('", ErrEvaluation},
		{"missing column", "missing + 1", table.ErrLookup},
		{"string times number", "s * 2", table.ErrTypeMismatch},
		{"incomparable", "s < a", table.ErrTypeMismatch},
		{"between", "a between 1 and 2", ErrNotImplemented},
		{"case", "case when a then 1 end", ErrNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EvaluateExpression(tbl, tt.expr)
			require.Error(t, err)
			assert.True(t, table.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestEvaluateExpression_ResultPerRow(t *testing.T) {
	tbl := fruitTable(t)
	exprs := []string{"a", "a * b - 1", "lower(s)", "count(*)", "a in (1, 2, 3)", "42"}

	for _, expr := range exprs {
		first, err := EvaluateExpression(tbl, expr)
		require.NoError(t, err)
		assert.Len(t, first, tbl.Len(), expr)

		second, err := EvaluateExpression(tbl, expr)
		require.NoError(t, err)
		assert.Equal(t, first, second, expr)
	}

	empty := table.New("a")
	got, err := EvaluateExpression(empty, "a + 1")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = EvaluateExpression(empty, "b + 1")
	assert.True(t, table.IsKind(err, table.ErrLookup))
}

func TestEvaluateExpressions(t *testing.T) {
	tbl := newTable(t, []string{"a", "b"},
		table.Row{table.Int(1), table.Int(2)},
		table.Row{table.Int(2), table.Int(4)},
		table.Row{table.Int(3), table.Int(6)},
	)

	got, err := EvaluateExpressions(tbl, []string{"a * b", "max(b)"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a * b", "max(b)"}, got.Fields())
	assert.Equal(t, []table.Row{
		{table.Int(2), table.Int(6)},
		{table.Int(8), table.Int(6)},
		{table.Int(18), table.Int(6)},
	}, got.Rows())

	// an all-aggregate list yields identical rows
	aggs := []string{"count(*)", "sum(a)", "min(b) * 2"}
	require.True(t, IsAllTokensInAggregate(aggs))
	got, err = EvaluateExpressions(tbl, aggs)
	require.NoError(t, err)
	rows := got.Rows()
	for _, row := range rows[1:] {
		assert.Equal(t, rows[0], row)
	}
}

func TestEvaluator_UnknownFunctionWarns(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	evaluator := NewEvaluator(nil, logpkg.NewLogger(buf, logpkg.LogLevelDebug))

	got, err := evaluator.EvaluateExpression(fruitTable(t), "mystery(a, b)")
	require.NoError(t, err)
	assert.Equal(t, table.List(table.Int(1), table.Int(2)), got[0])
	assert.Contains(t, buf.String(), `unknown function "mystery"`)
}

func TestEvaluateExpression_BuiltinsAvailableAtPackageLevel(t *testing.T) {
	require.NotNil(t, GetGlobalRegistry())
	tbl := fruitTable(t)

	got, err := EvaluateExpression(tbl, "count(*)")
	require.NoError(t, err)
	assert.Equal(t, ints(3, 3, 3), got)

	got, err = EvaluateExpression(tbl, "max(a)")
	require.NoError(t, err)
	assert.Equal(t, ints(3, 3, 3), got)

	got, err = EvaluateExpression(tbl, "lower(s)")
	require.NoError(t, err)
	assert.Equal(t, strs("banana", "apple", "berry"), got)
}
