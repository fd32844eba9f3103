package query

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/vegasq/sqlhub/table"
)

// MaxNestingDepth bounds how deeply sessions may use other sessions as their source.
const MaxNestingDepth = 16

// Fetcher turns a dotted label such as "google.issues.open.30" into a table.
type Fetcher interface {
	Fetch(ctx context.Context, label string) (*table.Table, errorsx.Error)
}

// Source is where a session reads its rows from: a label for the fetcher,
// or another session.
type Source struct {
	Label string
	Query *Session
}

func (s Source) String() string {
	if s.Query != nil {
		return "(subquery)"
	}
	return s.Label
}

// Field is one item of the select list.
type Field struct {
	Expr  string
	Alias string
}

// Name is the name of the output column.
func (f Field) Name() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Expr
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr      string
	Direction Direction
}

// Session is a parsed query. It is immutable once built and Execute may be
// called any number of times.
type Session struct {
	fetcher   Fetcher
	fields    []Field
	source    Source
	condition string
	groups    []string
	having    string
	orders    []OrderItem
	limit     int
	offset    int
	evaluator *Evaluator
	logger    *logpkg.Logger
}

type SessionOption func(*Session)

func WithCondition(condition string) SessionOption {
	return func(s *Session) { s.condition = condition }
}

func WithGroups(groups ...string) SessionOption {
	return func(s *Session) { s.groups = append([]string{}, groups...) }
}

func WithHaving(having string) SessionOption {
	return func(s *Session) { s.having = having }
}

func WithOrders(orders ...OrderItem) SessionOption {
	return func(s *Session) { s.orders = append([]OrderItem{}, orders...) }
}

// WithLimit caps the number of result rows. A negative limit means no limit.
func WithLimit(limit int) SessionOption {
	return func(s *Session) { s.limit = limit }
}

func WithOffset(offset int) SessionOption {
	return func(s *Session) { s.offset = offset }
}

// WithEvaluator sets the evaluator, and so the function registry, used by the session.
func WithEvaluator(evaluator *Evaluator) SessionOption {
	return func(s *Session) { s.evaluator = evaluator }
}

func WithLogger(logger *logpkg.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates a session selecting fields from source.
func NewSession(fetcher Fetcher, fields []Field, source Source, opts ...SessionOption) *Session {
	s := &Session{
		fetcher: fetcher,
		fields:  append([]Field{}, fields...),
		source:  source,
		limit:   -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logpkg.NewLogger(io.Discard, logpkg.LogLevelError)
	}
	if s.evaluator == nil {
		s.evaluator = NewEvaluator(nil, s.logger)
	}
	return s
}

func (s *Session) Fields() []Field {
	return append([]Field{}, s.fields...)
}

func (s *Session) Source() Source {
	return s.source
}

// Execute runs the query: fetch, filter, evaluate, group, having, order,
// select, collapse and limit.
func (s *Session) Execute(ctx context.Context) (*table.Table, errorsx.Error) {
	return s.execute(ctx, 0)
}

func (s *Session) execute(ctx context.Context, depth int) (*table.Table, errorsx.Error) {
	if depth > MaxNestingDepth {
		return nil, errorsx.Errorf("%w: subqueries nested deeper than %d", ErrEvaluation, MaxNestingDepth)
	}

	stage := s.stageTimer()

	source, err := s.fetch(ctx, depth)
	if err != nil {
		return nil, err
	}
	stage("fetch %s (%d rows)", s.source, source.Len())

	fields := s.expandFields(source)
	exprs := make([]string, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		exprs[i] = f.Expr
		names[i] = f.Name()
	}
	if source.Len() == 0 {
		return table.New(names...), nil
	}

	filtered := source
	if s.condition != "" {
		meets, err := s.evaluator.EvaluateExpression(source, s.condition)
		if err != nil {
			return nil, errorsx.Wrap(err, "clause", "where")
		}
		mask := roaring.New()
		for i, v := range meets {
			if v.Truthy() {
				mask.Add(uint32(i))
			}
		}
		filtered = source.Select(mask)
		stage("where kept %d of %d rows", filtered.Len(), source.Len())
		if filtered.Len() == 0 {
			return table.New(names...), nil
		}
	}

	// evaluate every column the later stages need in one pass, group keys last
	evalExprs, err := s.requiredColumns(exprs)
	if err != nil {
		return nil, err
	}
	evalExprs = append(evalExprs, s.groups...)
	batched, err := s.evaluator.EvaluateExpressions(filtered, evalExprs)
	if err != nil {
		return nil, err
	}
	stage("evaluate %d columns", len(evalExprs))

	groups := []*table.Table{batched}
	if len(s.groups) > 0 {
		groups, err = GenerateGroups(batched, len(s.groups))
		if err != nil {
			return nil, err
		}
		stage("group into %d groups", len(groups))
	}

	if s.having != "" {
		kept := make([]*table.Table, 0, len(groups))
		for _, group := range groups {
			vals, err := s.evaluator.EvaluateExpression(group, s.having)
			if err != nil {
				return nil, errorsx.Wrap(err, "clause", "having")
			}
			if allTruthy(vals) {
				kept = append(kept, group)
			}
		}
		groups = kept
		stage("having kept %d groups", len(groups))
	}

	if len(s.orders) > 0 {
		orderExprs := make([]string, len(s.orders))
		directions := make([]Direction, len(s.orders))
		for i, o := range s.orders {
			orderExprs[i] = o.Expr
			directions[i] = o.Direction
		}
		for i, group := range groups {
			keys, err := s.evaluator.EvaluateExpressions(group, orderExprs)
			if err != nil {
				return nil, errorsx.Wrap(err, "clause", "order")
			}
			groups[i] = NewOrdering(group.Chain(keys), directions).Sort(true)
		}
		groups = NewTableOrdering(groups, directions).Sort(false)
		stage("order")
	}

	collapse := IsAllTokensInAggregate(s.nonGroupExprs(exprs))
	merged := table.New(names...)
	for _, group := range groups {
		selected, err := s.evaluator.EvaluateExpressions(group, exprs)
		if err != nil {
			return nil, errorsx.Wrap(err, "clause", "select")
		}
		if collapse {
			selected = selected.Head(0, 1)
		}
		for _, row := range selected.Rows() {
			if err := merged.Append(row); err != nil {
				return nil, err
			}
		}
	}
	stage("select %d rows", merged.Len())

	return merged.Head(s.offset, s.limit), nil
}

func (s *Session) fetch(ctx context.Context, depth int) (*table.Table, errorsx.Error) {
	if s.source.Query != nil {
		return s.source.Query.execute(ctx, depth+1)
	}
	if s.fetcher == nil {
		return nil, errorsx.Errorf("no fetcher configured for source %q", s.source.Label)
	}
	return s.fetcher.Fetch(ctx, s.source.Label)
}

// expandFields replaces a "*" select item with every field of the source.
func (s *Session) expandFields(source *table.Table) []Field {
	var fields []Field
	for _, f := range s.fields {
		if strings.TrimSpace(f.Expr) != "*" {
			fields = append(fields, f)
			continue
		}
		for _, name := range source.Fields() {
			fields = append(fields, Field{Expr: name})
		}
	}
	return fields
}

// requiredColumns lists the columns referenced by the select, order and
// having expressions, without duplicates.
func (s *Session) requiredColumns(selectExprs []string) ([]string, errorsx.Error) {
	exprs := append([]string{}, selectExprs...)
	for _, o := range s.orders {
		exprs = append(exprs, o.Expr)
	}
	if s.having != "" {
		exprs = append(exprs, s.having)
	}
	return ExtractTokensFromExpressions(exprs)
}

// nonGroupExprs drops the select expressions that only repeat a group key.
func (s *Session) nonGroupExprs(exprs []string) []string {
	isGroup := make(map[string]bool)
	for _, g := range s.groups {
		isGroup[strings.TrimSpace(g)] = true
	}
	var out []string
	for _, expr := range exprs {
		if !isGroup[strings.TrimSpace(expr)] {
			out = append(out, expr)
		}
	}
	return out
}

// stageTimer returns a function logging each stage with the time since the previous one.
func (s *Session) stageTimer() func(format string, args ...interface{}) {
	last := time.Now()
	return func(format string, args ...interface{}) {
		now := time.Now()
		s.logger.Debug("query stage: "+format+" in %s", append(args, now.Sub(last))...)
		last = now
	}
}

func allTruthy(vals []table.Value) bool {
	for _, v := range vals {
		if !v.Truthy() {
			return false
		}
	}
	return true
}
