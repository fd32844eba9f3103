package query

import (
	"math"
	"strconv"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

// Math Functions

// AbsFunc returns the absolute value of a number
type AbsFunc struct{}

func (f *AbsFunc) Name() string  { return "abs" }
func (f *AbsFunc) MinArity() int { return 1 }
func (f *AbsFunc) MaxArity() int { return 1 }
func (f *AbsFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	v := args[0]
	switch v.Kind() {
	case table.KindNone:
		return v, nil
	case table.KindInt, table.KindBool:
		i, _ := v.AsInt()
		if i < 0 {
			i = -i
		}
		return table.Int(i), nil
	}
	num, err := numberArg(f.Name(), v)
	if err != nil {
		return table.None(), err
	}
	return table.Float(math.Abs(num)), nil
}

// CeilFunc returns the smallest integer greater than or equal to a number
type CeilFunc struct {
	name string
}

func (f *CeilFunc) Name() string  { return f.name }
func (f *CeilFunc) MinArity() int { return 1 }
func (f *CeilFunc) MaxArity() int { return 1 }
func (f *CeilFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return roundWith(f.name, args[0], math.Ceil)
}

// FloorFunc returns the largest integer less than or equal to a number
type FloorFunc struct{}

func (f *FloorFunc) Name() string  { return "floor" }
func (f *FloorFunc) MinArity() int { return 1 }
func (f *FloorFunc) MaxArity() int { return 1 }
func (f *FloorFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return roundWith(f.Name(), args[0], math.Floor)
}

func roundWith(name string, v table.Value, fn func(float64) float64) (table.Value, errorsx.Error) {
	if v.IsNone() {
		return v, nil
	}
	num, err := numberArg(name, v)
	if err != nil {
		return table.None(), err
	}
	return table.Int(int64(fn(num))), nil
}

// RoundFunc rounds a number to the specified number of decimal places
type RoundFunc struct{}

func (f *RoundFunc) Name() string  { return "round" }
func (f *RoundFunc) MinArity() int { return 1 }
func (f *RoundFunc) MaxArity() int { return 2 }
func (f *RoundFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	num, err := numberArg(f.Name(), args[0])
	if err != nil {
		return table.None(), err
	}

	// Default to 0 decimal places
	var decimals int64
	if len(args) == 2 {
		decimals, err = intArg(f.Name(), args[1])
		if err != nil {
			return table.None(), err
		}
	}

	multiplier := math.Pow(10, float64(decimals))
	rounded := math.Round(num*multiplier) / multiplier
	if decimals <= 0 {
		return table.Int(int64(rounded)), nil
	}
	return table.Float(rounded), nil
}

// ExpFunc returns e raised to the given power
type ExpFunc struct{}

func (f *ExpFunc) Name() string  { return "exp" }
func (f *ExpFunc) MinArity() int { return 1 }
func (f *ExpFunc) MaxArity() int { return 1 }
func (f *ExpFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return floatFunc(f.Name(), args[0], math.Exp)
}

// LnFunc returns the natural logarithm, or None for non-positive input
type LnFunc struct{}

func (f *LnFunc) Name() string  { return "ln" }
func (f *LnFunc) MinArity() int { return 1 }
func (f *LnFunc) MaxArity() int { return 1 }
func (f *LnFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return floatFunc(f.Name(), args[0], positive(math.Log))
}

// LogFunc returns log(x), or log(base, x) with two arguments
type LogFunc struct{}

func (f *LogFunc) Name() string  { return "log" }
func (f *LogFunc) MinArity() int { return 1 }
func (f *LogFunc) MaxArity() int { return 2 }
func (f *LogFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if len(args) == 1 {
		return floatFunc(f.Name(), args[0], positive(math.Log))
	}
	if anyNone(args) {
		return table.None(), nil
	}
	base, err := numberArg(f.Name(), args[0])
	if err != nil {
		return table.None(), err
	}
	if base <= 0 || base == 1 {
		return table.None(), nil
	}
	return floatFunc(f.Name(), args[1], positive(func(x float64) float64 {
		return math.Log(x) / math.Log(base)
	}))
}

// SqrtFunc returns the square root, or None for negative input
type SqrtFunc struct{}

func (f *SqrtFunc) Name() string  { return "sqrt" }
func (f *SqrtFunc) MinArity() int { return 1 }
func (f *SqrtFunc) MaxArity() int { return 1 }
func (f *SqrtFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return floatFunc(f.Name(), args[0], math.Sqrt)
}

// positive wraps fn so that it yields NaN, and so None, outside its domain
func positive(fn func(float64) float64) func(float64) float64 {
	return func(x float64) float64 {
		if x <= 0 {
			return math.NaN()
		}
		return fn(x)
	}
}

func floatFunc(name string, v table.Value, fn func(float64) float64) (table.Value, errorsx.Error) {
	if v.IsNone() {
		return v, nil
	}
	num, err := numberArg(name, v)
	if err != nil {
		return table.None(), err
	}
	res := fn(num)
	if math.IsNaN(res) || math.IsInf(res, 0) {
		return table.None(), nil
	}
	return table.Float(res), nil
}

// PowFunc raises a number to a power
type PowFunc struct {
	name string
}

func (f *PowFunc) Name() string  { return f.name }
func (f *PowFunc) MinArity() int { return 2 }
func (f *PowFunc) MaxArity() int { return 2 }
func (f *PowFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	exponent, err := numberArg(f.name, args[1])
	if err != nil {
		return table.None(), err
	}
	return floatFunc(f.name, args[0], func(x float64) float64 {
		return math.Pow(x, exponent)
	})
}

// SignFunc returns -1, 0, or 1 based on the sign of a number
type SignFunc struct{}

func (f *SignFunc) Name() string  { return "sign" }
func (f *SignFunc) MinArity() int { return 1 }
func (f *SignFunc) MaxArity() int { return 1 }
func (f *SignFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if args[0].IsNone() {
		return args[0], nil
	}
	num, err := numberArg(f.Name(), args[0])
	if err != nil {
		return table.None(), err
	}
	switch {
	case num > 0:
		return table.Int(1), nil
	case num < 0:
		return table.Int(-1), nil
	}
	return table.Int(0), nil
}

// GreatestFunc returns the largest argument
type GreatestFunc struct{}

func (f *GreatestFunc) Name() string  { return "greatest" }
func (f *GreatestFunc) MinArity() int { return 2 }
func (f *GreatestFunc) MaxArity() int { return -1 }
func (f *GreatestFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return pickExtreme(args, 1)
}

// LeastFunc returns the smallest argument
type LeastFunc struct{}

func (f *LeastFunc) Name() string  { return "least" }
func (f *LeastFunc) MinArity() int { return 2 }
func (f *LeastFunc) MaxArity() int { return -1 }
func (f *LeastFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return pickExtreme(args, -1)
}

// pickExtreme returns the argument that compares furthest in direction dir.
func pickExtreme(args []table.Value, dir int) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	best := args[0]
	for _, arg := range args[1:] {
		c, err := table.Compare(arg, best)
		if err != nil {
			return table.None(), err
		}
		if c*dir > 0 {
			best = arg
		}
	}
	return best, nil
}

// BinFunc returns the binary representation of an integer
type BinFunc struct{}

func (f *BinFunc) Name() string  { return "bin" }
func (f *BinFunc) MinArity() int { return 1 }
func (f *BinFunc) MaxArity() int { return 1 }
func (f *BinFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if args[0].IsNone() {
		return args[0], nil
	}
	i, err := intArg(f.Name(), args[0])
	if err != nil {
		return table.None(), err
	}
	return table.String(strconv.FormatUint(uint64(i), 2)), nil
}
