package query

import "strings"

// Operator precedences. Higher binds tighter. Parentheses and the comma
// carry sentinel values below every real operator so they stop reductions.
const (
	precComma      = -1
	precOpenParen  = -2
	precCloseParen = -3
	precBottom     = -100
)

var precedence = map[string]int{
	"interval":   17,
	"binary":     16,
	"collate":    16,
	"!":          15,
	"--":         14, // unary minus
	"~":          14,
	"^":          13,
	"*":          12,
	"/":          12,
	"div":        12,
	"%":          12,
	"mod":        12,
	"-":          11,
	"+":          11,
	"<<":         10,
	">>":         10,
	"&":          9,
	"|":          8,
	"==":         7,
	"<=>":        7,
	">=":         7,
	">":          7,
	"<":          7,
	"<=":         7,
	"<>":         7,
	"!=":         7,
	"is":         7,
	"is not":     7,
	"like":       7,
	"not like":   7,
	"regexp":     7,
	"not regexp": 7,
	"in":         7,
	"not in":     7,
	"between":    6,
	"case":       6,
	"when":       6,
	"then":       6,
	"else":       6,
	"not":        5,
	"and":        4,
	"&&":         4,
	"xor":        3,
	"or":         2,
	"||":         2,
	"=":          1,
	":=":         1,
	",":          precComma,
	"(":          precOpenParen,
	")":          precCloseParen,
}

// symbolOperators lists the operators spelled with punctuation, longest first
// so that the lexer can match greedily.
var symbolOperators = []string{
	"<=>",
	"<<", ">>", "<=", ">=", "<>", "!=", "==", ":=", "&&", "||",
	"<", ">", "=", "!", "~", "^", "*", "/", "%", "-", "+", "&", "|",
}

// prefix operators take a single operand on their right
var unaryOperators = map[string]bool{
	"--":  true,
	"!":   true,
	"~":   true,
	"not": true,
}

// operators the lexer recognises but the evaluator does not support
var unsupportedOperators = map[string]bool{
	"interval": true,
	"binary":   true,
	"collate":  true,
	"between":  true,
	"case":     true,
	"when":     true,
	"then":     true,
	"else":     true,
	":=":       true,
}

// CommandTokens are the keywords that open a query clause.
var CommandTokens = []string{"select", "from", "where", "group", "having", "order", "limit"}

// ExitTokens end an interactive session.
var ExitTokens = []string{"exit", "q"}

// AggregateFunctions reduce a column to a single value.
var AggregateFunctions = []string{"avg", "count", "max", "min", "sum"}

var literalTokens = map[string]bool{
	"true":  true,
	"false": true,
	"null":  true,
}

// IsExitToken reports whether the input asks an interactive loop to stop.
func IsExitToken(s string) bool {
	s = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";")))
	for _, t := range ExitTokens {
		if s == t {
			return true
		}
	}
	return false
}

func isAggregate(name string) bool {
	name = strings.ToLower(name)
	for _, agg := range AggregateFunctions {
		if agg == name {
			return true
		}
	}
	return false
}

func isKeywordOperator(word string) bool {
	_, ok := precedence[word]
	return ok && isIdentStart(rune(word[0]))
}
