package query

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

// Function represents a horizontal function, evaluated once per row.
type Function interface {
	// Name returns the function name (case-insensitive)
	Name() string
	// MinArity returns the minimum number of arguments
	MinArity() int
	// MaxArity returns the maximum number of arguments (-1 for unlimited)
	MaxArity() int
	// Evaluate evaluates the function with one row's arguments
	Evaluate(args []table.Value) (table.Value, errorsx.Error)
}

// AggregateFunction reduces a whole column to one value, which the
// evaluator then broadcasts back to every row.
type AggregateFunction interface {
	Name() string
	Aggregate(column []table.Value) (table.Value, errorsx.Error)
}

// FunctionRegistry manages function lookup and registration
type FunctionRegistry struct {
	mu         sync.RWMutex
	functions  map[string]Function
	aggregates map[string]AggregateFunction
}

// NewFunctionRegistry creates an empty function registry
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions:  make(map[string]Function),
		aggregates: make(map[string]AggregateFunction),
	}
}

// Register registers a horizontal function
func (r *FunctionRegistry) Register(f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[strings.ToLower(f.Name())] = f
}

// RegisterAggregate registers an aggregate function
func (r *FunctionRegistry) RegisterAggregate(f AggregateFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aggregates[strings.ToLower(f.Name())] = f
}

// Get retrieves a horizontal function by name (case-insensitive)
func (r *FunctionRegistry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, exists := r.functions[strings.ToLower(name)]
	return f, exists
}

// GetAggregate retrieves an aggregate function by name (case-insensitive)
func (r *FunctionRegistry) GetAggregate(name string) (AggregateFunction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, exists := r.aggregates[strings.ToLower(name)]
	return f, exists
}

// Names lists every registered function name, aggregates included, sorted.
func (r *FunctionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions)+len(r.aggregates))
	for name := range r.functions {
		names = append(names, name)
	}
	for name := range r.aggregates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// globalRegistry is the default function registry. It is built in its
// initialiser so package-level evaluators created from it see the built-ins.
var globalRegistry = newBuiltinRegistry()

func newBuiltinRegistry() *FunctionRegistry {
	r := NewFunctionRegistry()
	RegisterBuiltins(r, time.Now)
	return r
}

// GetGlobalRegistry returns the global function registry
func GetGlobalRegistry() *FunctionRegistry {
	return globalRegistry
}

// RegisterBuiltins registers every built-in function on r. Date and time
// functions read the current time from clock.
func RegisterBuiltins(r *FunctionRegistry, clock func() time.Time) {
	// Aggregates
	r.RegisterAggregate(&AvgFunc{})
	r.RegisterAggregate(&CountFunc{})
	r.RegisterAggregate(&MaxFunc{})
	r.RegisterAggregate(&MinFunc{})
	r.RegisterAggregate(&SumFunc{})

	// Math functions
	r.Register(&AbsFunc{})
	r.Register(&CeilFunc{name: "ceil"})
	r.Register(&CeilFunc{name: "ceiling"})
	r.Register(&ExpFunc{})
	r.Register(&FloorFunc{})
	r.Register(&GreatestFunc{})
	r.Register(&LeastFunc{})
	r.Register(&LnFunc{})
	r.Register(&LogFunc{})
	r.Register(&PowFunc{name: "pow"})
	r.Register(&PowFunc{name: "power"})
	r.Register(&RoundFunc{})
	r.Register(&SignFunc{})
	r.Register(&SqrtFunc{})
	r.Register(&BinFunc{})

	// String functions
	r.Register(&ASCIIFunc{})
	r.Register(&ConcatFunc{})
	r.Register(&ConcatWSFunc{})
	r.Register(&FindInSetFunc{})
	r.Register(&InsertFunc{})
	r.Register(&InstrFunc{})
	r.Register(&LengthFunc{})
	r.Register(&LocateFunc{})
	r.Register(&LowerFunc{name: "lcase"})
	r.Register(&LowerFunc{name: "lower"})
	r.Register(&UpperFunc{name: "ucase"})
	r.Register(&UpperFunc{name: "upper"})
	r.Register(&LeftFunc{})
	r.Register(&RightFunc{})
	r.Register(&SubstringFunc{name: "mid"})
	r.Register(&SubstringFunc{name: "substr"})
	r.Register(&SubstringFunc{name: "substring"})
	r.Register(&RepeatFunc{})
	r.Register(&ReplaceFunc{})
	r.Register(&ReverseFunc{})
	r.Register(&StrcmpFunc{})
	r.Register(&TrimFunc{name: "trim", cut: strings.TrimSpace})
	r.Register(&TrimFunc{name: "ltrim", cut: func(s string) string { return strings.TrimLeft(s, " ") }})
	r.Register(&TrimFunc{name: "rtrim", cut: func(s string) string { return strings.TrimRight(s, " ") }})

	// Conditional functions
	r.Register(&CoalesceFunc{})
	r.Register(&IfNullFunc{})

	// Date/time functions
	for _, name := range []string{"curdate", "current_date"} {
		r.Register(&ClockFunc{name: name, layout: dateLayout, clock: clock})
	}
	for _, name := range []string{"curtime", "current_time"} {
		r.Register(&ClockFunc{name: name, layout: timeLayout, clock: clock})
	}
	for _, name := range []string{"now", "current_timestamp", "localtime", "localtimestamp"} {
		r.Register(&ClockFunc{name: name, layout: dateTimeLayout, clock: clock})
	}
}

// anyNone reports whether any argument is None. Most functions return None in that case.
func anyNone(args []table.Value) bool {
	for _, arg := range args {
		if arg.IsNone() {
			return true
		}
	}
	return false
}

func numberArg(fn string, v table.Value) (float64, errorsx.Error) {
	f, ok := v.AsFloat()
	if !ok {
		return 0, errorsx.Wrap(table.ErrTypeMismatch, "function", fn, "argument", v.Kind().String())
	}
	return f, nil
}

func intArg(fn string, v table.Value) (int64, errorsx.Error) {
	i, ok := v.AsInt()
	if !ok {
		return 0, errorsx.Wrap(table.ErrTypeMismatch, "function", fn, "argument", v.Kind().String())
	}
	return i, nil
}
