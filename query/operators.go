package query

import (
	"math"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

func typeMismatch(op string, left, right table.Value) errorsx.Error {
	return errorsx.Wrap(table.ErrTypeMismatch, "operator", op, "left", left.Kind().String(), "right", right.Kind().String())
}

func applyUnary(op string, v table.Value) (table.Value, errorsx.Error) {
	switch op {
	case "!", "not":
		return table.Bool(!v.Truthy()), nil
	case "--":
		switch v.Kind() {
		case table.KindNone:
			return v, nil
		case table.KindInt, table.KindBool:
			i, _ := v.AsInt()
			return table.Int(-i), nil
		case table.KindFloat:
			f, _ := v.AsFloat()
			return table.Float(-f), nil
		}
	case "~":
		if v.IsNone() {
			return v, nil
		}
		if v.IsNumeric() {
			i, _ := v.AsInt()
			return table.Int(^i), nil
		}
	}
	return table.None(), typeMismatch(op, v, table.None())
}

// arithmetic applies + - * / % div mod. Ints stay ints except for "/".
// None in either operand yields None, as does division by zero.
func arithmetic(op string, left, right table.Value) (table.Value, errorsx.Error) {
	if left.IsNone() || right.IsNone() {
		return table.None(), nil
	}
	if op == "+" && left.Kind() == table.KindString && right.Kind() == table.KindString {
		l, _ := left.AsString()
		r, _ := right.AsString()
		return table.String(l + r), nil
	}
	if !left.IsNumeric() || !right.IsNumeric() {
		return table.None(), typeMismatch(op, left, right)
	}

	if left.Kind() != table.KindFloat && right.Kind() != table.KindFloat {
		l, _ := left.AsInt()
		r, _ := right.AsInt()
		switch op {
		case "+":
			return table.Int(l + r), nil
		case "-":
			return table.Int(l - r), nil
		case "*":
			return table.Int(l * r), nil
		}
		if r == 0 {
			return table.None(), nil
		}
		switch op {
		case "/":
			return table.Float(float64(l) / float64(r)), nil
		case "div":
			return table.Int(l / r), nil
		}
		return table.Int(l % r), nil
	}

	l, _ := left.AsFloat()
	r, _ := right.AsFloat()
	switch op {
	case "+":
		return table.Float(l + r), nil
	case "-":
		return table.Float(l - r), nil
	case "*":
		return table.Float(l * r), nil
	}
	if r == 0 {
		return table.None(), nil
	}
	switch op {
	case "/":
		return table.Float(l / r), nil
	case "div":
		return table.Int(int64(l / r)), nil
	}
	return table.Float(math.Mod(l, r)), nil
}

func bitwise(op string, left, right table.Value) (table.Value, errorsx.Error) {
	if left.IsNone() || right.IsNone() {
		return table.None(), nil
	}
	if !left.IsNumeric() || !right.IsNumeric() {
		return table.None(), typeMismatch(op, left, right)
	}
	l, _ := left.AsInt()
	r, _ := right.AsInt()
	switch op {
	case "&":
		return table.Int(l & r), nil
	case "|":
		return table.Int(l | r), nil
	case "^":
		return table.Int(l ^ r), nil
	}
	if r < 0 {
		return table.Int(0), nil
	}
	if op == "<<" {
		return table.Int(l << uint64(r)), nil
	}
	return table.Int(l >> uint64(r)), nil
}
