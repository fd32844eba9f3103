package query

import (
	"io"
	"regexp"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/vegasq/sqlhub/table"
)

// Evaluator evaluates expressions against every row of a table at once.
type Evaluator struct {
	registry *FunctionRegistry
	logger   *logpkg.Logger
}

// NewEvaluator creates an evaluator dispatching function calls to registry.
func NewEvaluator(registry *FunctionRegistry, logger *logpkg.Logger) *Evaluator {
	if registry == nil {
		registry = GetGlobalRegistry()
	}
	if logger == nil {
		logger = logpkg.NewLogger(io.Discard, logpkg.LogLevelError)
	}
	return &Evaluator{registry: registry, logger: logger}
}

var defaultEvaluator = NewEvaluator(nil, nil)

// EvaluateExpression evaluates expr with the global function registry.
func EvaluateExpression(tbl *table.Table, expr string) ([]table.Value, errorsx.Error) {
	return defaultEvaluator.EvaluateExpression(tbl, expr)
}

// EvaluateExpressions evaluates exprs with the global function registry.
func EvaluateExpressions(tbl *table.Table, exprs []string) (*table.Table, errorsx.Error) {
	return defaultEvaluator.EvaluateExpressions(tbl, exprs)
}

// EvaluateExpressions returns a table whose fields are the expressions
// themselves and whose rows hold each expression's result for that row.
func (e *Evaluator) EvaluateExpressions(tbl *table.Table, exprs []string) (*table.Table, errorsx.Error) {
	columns := make([][]table.Value, len(exprs))
	for i, expr := range exprs {
		vals, err := e.EvaluateExpression(tbl, expr)
		if err != nil {
			return nil, err
		}
		columns[i] = vals
	}

	out := table.New(exprs...)
	rows := make([]table.Row, tbl.Len())
	for i := range rows {
		row := make(table.Row, len(exprs))
		for j := range columns {
			row[j] = columns[j][i]
		}
		rows[i] = row
	}
	if err := out.SetRows(rows); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateExpression returns one result per row of tbl.
func (e *Evaluator) EvaluateExpression(tbl *table.Table, expr string) ([]table.Value, errorsx.Error) {
	tokens, err := lex(expr)
	if err != nil {
		return nil, errorsx.Wrap(err, "expression", expr)
	}
	if len(tokens) == 0 {
		return nil, errorsx.Errorf("%w: empty expression", ErrEvaluation)
	}

	st := newEvalState(e, tbl)
	for _, tok := range tokens {
		if err := st.consume(tok); err != nil {
			return nil, errorsx.Wrap(err, "expression", expr)
		}
	}

	results, err := st.finish()
	if err != nil {
		return nil, errorsx.Wrap(err, "expression", expr)
	}
	return results, nil
}

// frame tracks one parenthesis scope. The outermost frame has no function.
type frame struct {
	function string
	listed   bool // a comma has turned the scope's value into a list
	nullary  bool
}

// evalState holds one operand stack per row, all moving in lockstep, plus
// the shared operator stack.
type evalState struct {
	*Evaluator
	tbl         *table.Table
	stacks      [][]table.Value
	height      int
	ops         []string
	frames      []frame
	prevOperand bool
	patterns    map[string]*regexp.Regexp
}

func newEvalState(e *Evaluator, tbl *table.Table) *evalState {
	return &evalState{
		Evaluator: e,
		tbl:       tbl,
		stacks:    make([][]table.Value, tbl.Len()),
		frames:    []frame{{}},
		patterns:  make(map[string]*regexp.Regexp),
	}
}

func (st *evalState) consume(tok token) errorsx.Error {
	switch tok.kind {
	case tokenNumber, tokenString, tokenLiteral:
		if st.prevOperand {
			return errorsx.Errorf("%w: unexpected value at %d", ErrEvaluation, tok.pos)
		}
		st.pushConst(tok.value)
	case tokenIdent:
		if st.prevOperand {
			return errorsx.Errorf("%w: unexpected identifier %q at %d", ErrEvaluation, tok.text, tok.pos)
		}
		vals, err := st.tbl.Values(tok.text)
		if err != nil {
			return err
		}
		st.pushColumn(vals)
	case tokenFunc:
		if st.prevOperand {
			return errorsx.Errorf("%w: unexpected function call %q at %d", ErrEvaluation, tok.text, tok.pos)
		}
		st.frames = append(st.frames, frame{function: tok.text, nullary: tok.nullary})
		st.ops = append(st.ops, "(")
		if tok.nullary {
			st.pushConst(table.None())
			return nil
		}
		st.prevOperand = false
	case tokenOperator:
		return st.operator(tok)
	}
	return nil
}

func (st *evalState) operator(tok token) errorsx.Error {
	op := tok.text
	if unsupportedOperators[op] {
		return errorsx.Errorf("%w: operator %q", ErrNotImplemented, op)
	}

	switch {
	case op == "(":
		if st.prevOperand {
			return errorsx.Errorf("%w: unexpected '(' at %d", ErrEvaluation, tok.pos)
		}
		st.frames = append(st.frames, frame{})
		st.ops = append(st.ops, "(")
	case op == ")":
		if !st.prevOperand {
			return errorsx.Errorf("%w: missing operand before ')' at %d", ErrEvaluation, tok.pos)
		}
		if err := st.reduceWhile(precOpenParen); err != nil {
			return err
		}
		if len(st.ops) == 0 {
			return errorsx.Errorf("%w: unbalanced ')' at %d", ErrEvaluation, tok.pos)
		}
		st.ops = st.ops[:len(st.ops)-1]
		fr := st.frames[len(st.frames)-1]
		st.frames = st.frames[:len(st.frames)-1]
		if fr.function != "" {
			if err := st.call(fr); err != nil {
				return err
			}
		}
		return nil
	case op == ",":
		if !st.prevOperand {
			return errorsx.Errorf("%w: missing operand before ',' at %d", ErrEvaluation, tok.pos)
		}
		if err := st.reduceWhile(precComma - 1); err != nil {
			return err
		}
		fr := &st.frames[len(st.frames)-1]
		if !fr.listed {
			st.mapTop(func(v table.Value) table.Value { return table.List(v) })
			fr.listed = true
		}
		st.ops = append(st.ops, ",")
	case unaryOperators[op]:
		if st.prevOperand {
			return errorsx.Errorf("%w: unexpected %q at %d", ErrEvaluation, op, tok.pos)
		}
		st.ops = append(st.ops, op)
	default:
		if !st.prevOperand {
			return errorsx.Errorf("%w: missing left operand for %q at %d", ErrEvaluation, op, tok.pos)
		}
		if err := st.reduceWhile(precedence[op] - 1); err != nil {
			return err
		}
		st.ops = append(st.ops, op)
	}

	st.prevOperand = false
	return nil
}

// reduceWhile applies operators from the top of the stack while their
// precedence is greater than floor.
func (st *evalState) reduceWhile(floor int) errorsx.Error {
	for len(st.ops) > 0 {
		top := st.ops[len(st.ops)-1]
		if precedence[top] <= floor {
			return nil
		}
		if top == "(" {
			return errorsx.Errorf("%w: unbalanced '('", ErrEvaluation)
		}
		if err := st.reduceOnce(top); err != nil {
			return err
		}
		st.ops = st.ops[:len(st.ops)-1]
	}
	return nil
}

func (st *evalState) reduceOnce(op string) errorsx.Error {
	switch {
	case op == ",":
		if st.height < 2 {
			return errorsx.Errorf("%w: malformed list", ErrEvaluation)
		}
		for i := range st.stacks {
			arg := st.pop(i)
			list := st.pop(i)
			st.stacks[i] = append(st.stacks[i], appendElem(list, arg))
		}
		st.height--
	case unaryOperators[op]:
		if st.height < 1 {
			return errorsx.Errorf("%w: missing operand for %q", ErrEvaluation, op)
		}
		for i := range st.stacks {
			res, err := applyUnary(op, st.pop(i))
			if err != nil {
				return errorsx.Wrap(err, "row", i)
			}
			st.stacks[i] = append(st.stacks[i], res)
		}
	default:
		if st.height < 2 {
			return errorsx.Errorf("%w: missing operand for %q", ErrEvaluation, op)
		}
		for i := range st.stacks {
			right := st.pop(i)
			left := st.pop(i)
			res, err := st.applyBinary(op, left, right)
			if err != nil {
				return errorsx.Wrap(err, "row", i)
			}
			st.stacks[i] = append(st.stacks[i], res)
		}
		st.height--
	}
	return nil
}

func (st *evalState) finish() ([]table.Value, errorsx.Error) {
	if !st.prevOperand {
		return nil, errorsx.Errorf("%w: expression ends with an operator", ErrEvaluation)
	}
	if err := st.reduceWhile(precBottom); err != nil {
		return nil, err
	}
	if st.height != 1 {
		return nil, errorsx.Errorf("%w: malformed expression", ErrEvaluation)
	}

	results := make([]table.Value, len(st.stacks))
	for i, stack := range st.stacks {
		results[i] = stack[0]
	}
	return results, nil
}

func (st *evalState) pushConst(v table.Value) {
	for i := range st.stacks {
		st.stacks[i] = append(st.stacks[i], v)
	}
	st.height++
	st.prevOperand = true
}

func (st *evalState) pushColumn(vals []table.Value) {
	for i := range st.stacks {
		st.stacks[i] = append(st.stacks[i], vals[i])
	}
	st.height++
	st.prevOperand = true
}

func (st *evalState) pop(row int) table.Value {
	stack := st.stacks[row]
	v := stack[len(stack)-1]
	st.stacks[row] = stack[:len(stack)-1]
	return v
}

func (st *evalState) mapTop(fn func(table.Value) table.Value) {
	for _, stack := range st.stacks {
		stack[len(stack)-1] = fn(stack[len(stack)-1])
	}
}

// call dispatches a function at its closing parenthesis, replacing the
// top of every row's stack with the result.
func (st *evalState) call(fr frame) errorsx.Error {
	args := func(top table.Value) []table.Value {
		switch {
		case fr.nullary:
			return nil
		case fr.listed:
			return top.Elems()
		}
		return []table.Value{top}
	}

	if agg, ok := st.registry.GetAggregate(fr.function); ok {
		if fr.nullary || fr.listed {
			return errorsx.Errorf("%w: %s takes exactly one argument", ErrEvaluation, fr.function)
		}
		column := make([]table.Value, len(st.stacks))
		for i, stack := range st.stacks {
			column[i] = stack[len(stack)-1]
		}
		res, err := agg.Aggregate(column)
		if err != nil {
			return errorsx.Wrap(err, "function", fr.function)
		}
		st.mapTop(func(table.Value) table.Value { return res })
		return nil
	}

	fn, ok := st.registry.Get(fr.function)
	if !ok {
		st.logger.Warn("unknown function %q, passing its argument through unchanged", fr.function)
		return nil
	}

	for i, stack := range st.stacks {
		fnArgs := args(stack[len(stack)-1])
		if len(fnArgs) < fn.MinArity() || (fn.MaxArity() >= 0 && len(fnArgs) > fn.MaxArity()) {
			return errorsx.Errorf("%w: %s called with %d arguments", ErrEvaluation, fr.function, len(fnArgs))
		}
		res, err := fn.Evaluate(fnArgs)
		if err != nil {
			return errorsx.Wrap(err, "function", fr.function, "row", i)
		}
		stack[len(stack)-1] = res
	}
	return nil
}

func appendElem(list, elem table.Value) table.Value {
	elems := list.Elems()
	out := make([]table.Value, 0, len(elems)+1)
	out = append(out, elems...)
	out = append(out, elem)
	return table.List(out...)
}

func (st *evalState) applyBinary(op string, left, right table.Value) (table.Value, errorsx.Error) {
	switch op {
	case "+", "-", "*", "/", "%", "div", "mod":
		return arithmetic(op, left, right)
	case "&", "|", "^", "<<", ">>":
		return bitwise(op, left, right)
	case "==", "<=>", "is":
		return table.Bool(table.Equal(left, right)), nil
	case "!=", "<>", "is not":
		return table.Bool(!table.Equal(left, right)), nil
	case "<", "<=", ">", ">=":
		c, err := table.Compare(left, right)
		if err != nil {
			return table.None(), errorsx.Wrap(err, "operator", op)
		}
		switch op {
		case "<":
			return table.Bool(c < 0), nil
		case "<=":
			return table.Bool(c <= 0), nil
		case ">":
			return table.Bool(c > 0), nil
		}
		return table.Bool(c >= 0), nil
	case "like", "not like":
		matched, err := st.match(left, right, likeToRegexp)
		return table.Bool(matched == (op == "like")), err
	case "regexp", "not regexp":
		matched, err := st.match(left, right, anchorRegexp)
		return table.Bool(matched == (op == "regexp")), err
	case "in", "not in":
		return table.Bool(contains(right, left) == (op == "in")), nil
	case "and", "&&":
		return table.Bool(left.Truthy() && right.Truthy()), nil
	case "or", "||":
		return table.Bool(left.Truthy() || right.Truthy()), nil
	case "xor":
		return table.Bool(left.Truthy() != right.Truthy()), nil
	}
	return table.None(), errorsx.Errorf("%w: operator %q", ErrNotImplemented, op)
}

// match tests subject against a pattern translated by toRegexp. Compiled
// patterns are cached for the rest of the evaluation.
func (st *evalState) match(subject, pattern table.Value, toRegexp func(string) string) (bool, errorsx.Error) {
	if subject.IsNone() || pattern.IsNone() {
		return false, nil
	}
	text := subject.Text()
	if text == "" {
		return false, nil
	}

	source := toRegexp(pattern.Text())
	re, ok := st.patterns[source]
	if !ok {
		var err error
		re, err = regexp.Compile(source)
		if err != nil {
			return false, errorsx.Errorf("%w: invalid pattern %q: %s", ErrEvaluation, pattern.Text(), err)
		}
		st.patterns[source] = re
	}
	return re.MatchString(text), nil
}

// likeToRegexp translates a LIKE pattern. % matches any sequence and _ any
// single character, unless escaped with a backslash.
func likeToRegexp(pattern string) string {
	var sb strings.Builder
	sb.WriteString("(?s)^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '\\' && i+1 < len(runes) && (runes[i+1] == '%' || runes[i+1] == '_'):
			sb.WriteString(regexp.QuoteMeta(string(runes[i+1])))
			i++
		case ch == '%':
			sb.WriteString(".*")
		case ch == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}

func anchorRegexp(pattern string) string {
	return "^(?:" + pattern + ")$"
}

func contains(haystack, needle table.Value) bool {
	if needle.IsNone() {
		return false
	}
	if haystack.Kind() != table.KindList {
		return table.Equal(needle, haystack)
	}
	for _, item := range haystack.Elems() {
		if table.Equal(needle, item) {
			return true
		}
	}
	return false
}
