package query

import (
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

// String Functions. Positions are 1-based and count characters, not bytes.

// UpperFunc converts a string to uppercase
type UpperFunc struct {
	name string
}

func (f *UpperFunc) Name() string  { return f.name }
func (f *UpperFunc) MinArity() int { return 1 }
func (f *UpperFunc) MaxArity() int { return 1 }
func (f *UpperFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return mapText(args[0], strings.ToUpper), nil
}

// LowerFunc converts a string to lowercase
type LowerFunc struct {
	name string
}

func (f *LowerFunc) Name() string  { return f.name }
func (f *LowerFunc) MinArity() int { return 1 }
func (f *LowerFunc) MaxArity() int { return 1 }
func (f *LowerFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return mapText(args[0], strings.ToLower), nil
}

// TrimFunc removes surrounding spaces
type TrimFunc struct {
	name string
	cut  func(string) string
}

func (f *TrimFunc) Name() string  { return f.name }
func (f *TrimFunc) MinArity() int { return 1 }
func (f *TrimFunc) MaxArity() int { return 1 }
func (f *TrimFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return mapText(args[0], f.cut), nil
}

// ReverseFunc reverses a string
type ReverseFunc struct{}

func (f *ReverseFunc) Name() string  { return "reverse" }
func (f *ReverseFunc) MinArity() int { return 1 }
func (f *ReverseFunc) MaxArity() int { return 1 }
func (f *ReverseFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return mapText(args[0], func(s string) string {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	}), nil
}

func mapText(v table.Value, fn func(string) string) table.Value {
	if v.IsNone() {
		return v
	}
	return table.String(fn(v.Text()))
}

// LengthFunc returns the length of a string in bytes
type LengthFunc struct{}

func (f *LengthFunc) Name() string  { return "length" }
func (f *LengthFunc) MinArity() int { return 1 }
func (f *LengthFunc) MaxArity() int { return 1 }
func (f *LengthFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if args[0].IsNone() {
		return args[0], nil
	}
	return table.Int(int64(len(args[0].Text()))), nil
}

// ASCIIFunc returns the code of the first byte of a string, 0 for the empty string
type ASCIIFunc struct{}

func (f *ASCIIFunc) Name() string  { return "ascii" }
func (f *ASCIIFunc) MinArity() int { return 1 }
func (f *ASCIIFunc) MaxArity() int { return 1 }
func (f *ASCIIFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if args[0].IsNone() {
		return args[0], nil
	}
	s := args[0].Text()
	if s == "" {
		return table.Int(0), nil
	}
	return table.Int(int64(s[0])), nil
}

// ConcatFunc concatenates its arguments. Any None argument makes the result None.
type ConcatFunc struct{}

func (f *ConcatFunc) Name() string  { return "concat" }
func (f *ConcatFunc) MinArity() int { return 1 }
func (f *ConcatFunc) MaxArity() int { return -1 }
func (f *ConcatFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	var sb strings.Builder
	for _, arg := range args {
		sb.WriteString(arg.Text())
	}
	return table.String(sb.String()), nil
}

// ConcatWSFunc joins its arguments with the first one, skipping None values
type ConcatWSFunc struct{}

func (f *ConcatWSFunc) Name() string  { return "concat_ws" }
func (f *ConcatWSFunc) MinArity() int { return 2 }
func (f *ConcatWSFunc) MaxArity() int { return -1 }
func (f *ConcatWSFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if args[0].IsNone() {
		return args[0], nil
	}
	parts := make([]string, 0, len(args)-1)
	for _, arg := range args[1:] {
		if !arg.IsNone() {
			parts = append(parts, arg.Text())
		}
	}
	return table.String(strings.Join(parts, args[0].Text())), nil
}

// FindInSetFunc returns the 1-based position of a string in a comma separated list, or 0
type FindInSetFunc struct{}

func (f *FindInSetFunc) Name() string  { return "find_in_set" }
func (f *FindInSetFunc) MinArity() int { return 2 }
func (f *FindInSetFunc) MaxArity() int { return 2 }
func (f *FindInSetFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	needle, set := args[0].Text(), args[1].Text()
	if set == "" {
		return table.Int(0), nil
	}
	for i, item := range strings.Split(set, ",") {
		if item == needle {
			return table.Int(int64(i + 1)), nil
		}
	}
	return table.Int(0), nil
}

// InsertFunc replaces length characters of a string starting at pos with another string
type InsertFunc struct{}

func (f *InsertFunc) Name() string  { return "insert" }
func (f *InsertFunc) MinArity() int { return 4 }
func (f *InsertFunc) MaxArity() int { return 4 }
func (f *InsertFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	runes := []rune(args[0].Text())
	pos, err := intArg(f.Name(), args[1])
	if err != nil {
		return table.None(), err
	}
	length, err := intArg(f.Name(), args[2])
	if err != nil {
		return table.None(), err
	}
	if pos < 1 || pos > int64(len(runes)) {
		return table.String(string(runes)), nil
	}

	start := int(pos - 1)
	end := len(runes)
	if length >= 0 && start+int(length) < end {
		end = start + int(length)
	}
	return table.String(string(runes[:start]) + args[3].Text() + string(runes[end:])), nil
}

// InstrFunc returns the position of the first occurrence of a substring, or 0
type InstrFunc struct{}

func (f *InstrFunc) Name() string  { return "instr" }
func (f *InstrFunc) MinArity() int { return 2 }
func (f *InstrFunc) MaxArity() int { return 2 }
func (f *InstrFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	return table.Int(int64(runeIndex(args[0].Text(), args[1].Text(), 0) + 1)), nil
}

// LocateFunc returns the position of a substring, optionally searching from pos
type LocateFunc struct{}

func (f *LocateFunc) Name() string  { return "locate" }
func (f *LocateFunc) MinArity() int { return 2 }
func (f *LocateFunc) MaxArity() int { return 3 }
func (f *LocateFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	from := int64(1)
	if len(args) == 3 {
		var err errorsx.Error
		from, err = intArg(f.Name(), args[2])
		if err != nil {
			return table.None(), err
		}
		if from < 1 {
			return table.Int(0), nil
		}
	}
	return table.Int(int64(runeIndex(args[1].Text(), args[0].Text(), int(from-1)) + 1)), nil
}

// runeIndex returns the character index of sub in s at or after from, or -1.
func runeIndex(s, sub string, from int) int {
	runes := []rune(s)
	if from > len(runes) {
		return -1
	}
	idx := strings.Index(string(runes[from:]), sub)
	if idx < 0 {
		return -1
	}
	return from + len([]rune(string(runes[from:])[:idx]))
}

// LeftFunc returns the leftmost n characters
type LeftFunc struct{}

func (f *LeftFunc) Name() string  { return "left" }
func (f *LeftFunc) MinArity() int { return 2 }
func (f *LeftFunc) MaxArity() int { return 2 }
func (f *LeftFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	n, err := intArg(f.Name(), args[1])
	if err != nil {
		return table.None(), err
	}
	runes := []rune(args[0].Text())
	n = clamp(n, 0, int64(len(runes)))
	return table.String(string(runes[:n])), nil
}

// RightFunc returns the rightmost n characters
type RightFunc struct{}

func (f *RightFunc) Name() string  { return "right" }
func (f *RightFunc) MinArity() int { return 2 }
func (f *RightFunc) MaxArity() int { return 2 }
func (f *RightFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	n, err := intArg(f.Name(), args[1])
	if err != nil {
		return table.None(), err
	}
	runes := []rune(args[0].Text())
	n = clamp(n, 0, int64(len(runes)))
	return table.String(string(runes[int64(len(runes))-n:])), nil
}

func clamp(n, lo, hi int64) int64 {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// SubstringFunc extracts a substring starting at pos, counting from the end when pos is negative
type SubstringFunc struct {
	name string
}

func (f *SubstringFunc) Name() string  { return f.name }
func (f *SubstringFunc) MinArity() int { return 2 }
func (f *SubstringFunc) MaxArity() int { return 3 }
func (f *SubstringFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	runes := []rune(args[0].Text())
	size := int64(len(runes))

	pos, err := intArg(f.name, args[1])
	if err != nil {
		return table.None(), err
	}
	switch {
	case pos == 0 || pos > size || -pos > size:
		return table.String(""), nil
	case pos < 0:
		pos = size + pos
	default:
		pos--
	}

	end := size
	if len(args) == 3 {
		length, err := intArg(f.name, args[2])
		if err != nil {
			return table.None(), err
		}
		if length <= 0 {
			return table.String(""), nil
		}
		if pos+length < end {
			end = pos + length
		}
	}
	return table.String(string(runes[pos:end])), nil
}

// RepeatFunc repeats a string n times
type RepeatFunc struct{}

func (f *RepeatFunc) Name() string  { return "repeat" }
func (f *RepeatFunc) MinArity() int { return 2 }
func (f *RepeatFunc) MaxArity() int { return 2 }
func (f *RepeatFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	n, err := intArg(f.Name(), args[1])
	if err != nil {
		return table.None(), err
	}
	if n <= 0 {
		return table.String(""), nil
	}
	return table.String(strings.Repeat(args[0].Text(), int(n))), nil
}

// ReplaceFunc replaces all occurrences of a substring
type ReplaceFunc struct{}

func (f *ReplaceFunc) Name() string  { return "replace" }
func (f *ReplaceFunc) MinArity() int { return 3 }
func (f *ReplaceFunc) MaxArity() int { return 3 }
func (f *ReplaceFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	from := args[1].Text()
	if from == "" {
		return table.String(args[0].Text()), nil
	}
	return table.String(strings.ReplaceAll(args[0].Text(), from, args[2].Text())), nil
}

// StrcmpFunc compares two strings, returning -1, 0 or 1
type StrcmpFunc struct{}

func (f *StrcmpFunc) Name() string  { return "strcmp" }
func (f *StrcmpFunc) MinArity() int { return 2 }
func (f *StrcmpFunc) MaxArity() int { return 2 }
func (f *StrcmpFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if anyNone(args) {
		return table.None(), nil
	}
	return table.Int(int64(strings.Compare(args[0].Text(), args[1].Text()))), nil
}

// Conditional Functions

// CoalesceFunc returns the first non-None argument
type CoalesceFunc struct{}

func (f *CoalesceFunc) Name() string  { return "coalesce" }
func (f *CoalesceFunc) MinArity() int { return 1 }
func (f *CoalesceFunc) MaxArity() int { return -1 }
func (f *CoalesceFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	for _, arg := range args {
		if !arg.IsNone() {
			return arg, nil
		}
	}
	return table.None(), nil
}

// IfNullFunc returns its second argument when the first is None
type IfNullFunc struct{}

func (f *IfNullFunc) Name() string  { return "ifnull" }
func (f *IfNullFunc) MinArity() int { return 2 }
func (f *IfNullFunc) MaxArity() int { return 2 }
func (f *IfNullFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	if args[0].IsNone() {
		return args[1], nil
	}
	return args[0], nil
}
