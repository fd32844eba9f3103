package query

import (
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

// Aggregate Functions. None values are skipped; over no values every
// aggregate but count yields None.

// CountFunc counts the non-None values
type CountFunc struct{}

func (f *CountFunc) Name() string { return "count" }
func (f *CountFunc) Aggregate(column []table.Value) (table.Value, errorsx.Error) {
	var n int64
	for _, v := range column {
		if !v.IsNone() {
			n++
		}
	}
	return table.Int(n), nil
}

// sumAccumulator adds numbers, staying integral until a float is seen
type sumAccumulator struct {
	count   int64
	intSum  int64
	sum     float64
	isFloat bool
}

func (acc *sumAccumulator) add(fn string, v table.Value) errorsx.Error {
	if v.IsNone() {
		return nil
	}
	if v.Kind() == table.KindFloat || v.Kind() == table.KindString {
		acc.isFloat = true
	}
	f, err := numberArg(fn, v)
	if err != nil {
		return err
	}
	if !acc.isFloat {
		i, _ := v.AsInt()
		acc.intSum += i
	}
	acc.sum += f
	acc.count++
	return nil
}

func accumulate(fn string, column []table.Value) (*sumAccumulator, errorsx.Error) {
	acc := &sumAccumulator{}
	for i, v := range column {
		if err := acc.add(fn, v); err != nil {
			return nil, errorsx.Wrap(err, "row", i)
		}
	}
	return acc, nil
}

// SumFunc adds up the values
type SumFunc struct{}

func (f *SumFunc) Name() string { return "sum" }
func (f *SumFunc) Aggregate(column []table.Value) (table.Value, errorsx.Error) {
	acc, err := accumulate(f.Name(), column)
	if err != nil {
		return table.None(), err
	}
	switch {
	case acc.count == 0:
		return table.None(), nil
	case acc.isFloat:
		return table.Float(acc.sum), nil
	}
	return table.Int(acc.intSum), nil
}

// AvgFunc averages the values
type AvgFunc struct{}

func (f *AvgFunc) Name() string { return "avg" }
func (f *AvgFunc) Aggregate(column []table.Value) (table.Value, errorsx.Error) {
	acc, err := accumulate(f.Name(), column)
	if err != nil {
		return table.None(), err
	}
	if acc.count == 0 {
		return table.None(), nil
	}
	return table.Float(acc.sum / float64(acc.count)), nil
}

// MaxFunc returns the largest value
type MaxFunc struct{}

func (f *MaxFunc) Name() string { return "max" }
func (f *MaxFunc) Aggregate(column []table.Value) (table.Value, errorsx.Error) {
	return extreme(column, 1)
}

// MinFunc returns the smallest value
type MinFunc struct{}

func (f *MinFunc) Name() string { return "min" }
func (f *MinFunc) Aggregate(column []table.Value) (table.Value, errorsx.Error) {
	return extreme(column, -1)
}

func extreme(column []table.Value, dir int) (table.Value, errorsx.Error) {
	best := table.None()
	for i, v := range column {
		if v.IsNone() {
			continue
		}
		if best.IsNone() {
			best = v
			continue
		}
		c, err := table.Compare(v, best)
		if err != nil {
			return table.None(), errorsx.Wrap(err, "row", i)
		}
		if c*dir > 0 {
			best = v
		}
	}
	return best, nil
}
