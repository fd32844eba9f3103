package query

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenString
	tokenLiteral
	tokenIdent
	tokenFunc // identifier immediately followed by "(", which the token consumes
	tokenOperator
)

type token struct {
	kind    tokenKind
	text    string
	value   table.Value
	nullary bool // tokenFunc only: the call has no arguments
	pos     int
}

type lexState int

const (
	stateIdle lexState = iota
	stateOperator
	stateIdentifier
	stateNumber
	stateString
)

// lexer splits an expression into tokens. isStart is true wherever a "-"
// must be read as a sign or unary minus rather than a subtraction.
type lexer struct {
	input   []rune
	pos     int
	state   lexState
	isStart bool
	tokens  []token
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentChar(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func lex(expr string) ([]token, errorsx.Error) {
	l := &lexer{input: []rune(expr), isStart: true}
	for {
		l.skipSpace()
		if l.pos >= len(l.input) {
			break
		}

		var err errorsx.Error
		ch := l.input[l.pos]
		switch {
		case ch == '\'' || ch == '"':
			l.state = stateString
			err = l.readString(ch)
		case isDigit(ch), ch == '.' && isDigit(l.peek(1)):
			l.state = stateNumber
			err = l.readNumber()
		case ch == '-' && l.isStart && (isDigit(l.peek(1)) || l.peek(1) == '.' && isDigit(l.peek(2))):
			l.state = stateNumber
			err = l.readNumber()
		case isIdentStart(ch):
			l.state = stateIdentifier
			err = l.readIdentifier()
		default:
			l.state = stateOperator
			err = l.readOperator()
		}
		if err != nil {
			return nil, errorsx.Wrap(err, "position", l.pos)
		}
		l.state = stateIdle
	}

	return combineNegations(l.tokens), nil
}

func (l *lexer) peek(offset int) rune {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *lexer) emit(tok token) {
	l.tokens = append(l.tokens, tok)
	switch tok.kind {
	case tokenOperator:
		l.isStart = tok.text != ")"
	case tokenFunc:
		l.isStart = true
	default:
		l.isStart = false
	}
}

func (l *lexer) readString(quote rune) errorsx.Error {
	start := l.pos
	l.pos++

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		l.pos++
		switch {
		case ch == quote:
			l.emit(token{kind: tokenString, value: table.String(sb.String()), pos: start})
			return nil
		case ch == '\\' && l.pos < len(l.input):
			esc := l.input[l.pos]
			l.pos++
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case 'b':
				sb.WriteRune('\b')
			case '0':
				sb.WriteRune(0)
			case 'Z':
				sb.WriteRune(0x1a)
			case '%', '_':
				// kept escaped for LIKE pattern translation
				sb.WriteRune('\\')
				sb.WriteRune(esc)
			default:
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(ch)
		}
	}

	return errorsx.Errorf("%w: unterminated string literal starting at %d", ErrEvaluation, start)
}

func (l *lexer) readNumber() errorsx.Error {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '.') {
		l.pos++
	}
	text := string(l.input[start:l.pos])

	if l.pos < len(l.input) && isIdentStart(l.input[l.pos]) {
		return errorsx.Errorf("%w: malformed number %q", ErrEvaluation, text+string(l.input[l.pos]))
	}

	if !strings.Contains(text, ".") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			l.emit(token{kind: tokenNumber, text: text, value: table.Int(i), pos: start})
			return nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return errorsx.Errorf("%w: malformed number %q", ErrEvaluation, text)
	}
	l.emit(token{kind: tokenNumber, text: text, value: table.Float(f), pos: start})
	return nil
}

func (l *lexer) readIdentifier() errorsx.Error {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	word := string(l.input[start:l.pos])
	lower := strings.ToLower(word)

	switch {
	case isKeywordOperator(lower):
		l.emit(token{kind: tokenOperator, text: lower, pos: start})
	case literalTokens[lower]:
		l.emit(token{kind: tokenLiteral, text: lower, value: literalValue(lower), pos: start})
	case l.peek(0) == '(':
		l.pos++
		tok := token{kind: tokenFunc, text: lower, pos: start}
		l.skipSpace()
		if l.peek(0) == ')' {
			tok.nullary = true
		}
		l.emit(tok)

		// count(*) and friends: a lone star stands for the row itself
		if l.peek(0) == '*' {
			save := l.pos
			l.pos++
			l.skipSpace()
			if l.peek(0) == ')' {
				l.emit(token{kind: tokenNumber, text: "*", value: table.Int(1), pos: save})
			} else {
				l.pos = save
			}
		}
	default:
		l.emit(token{kind: tokenIdent, text: word, pos: start})
	}
	return nil
}

func literalValue(word string) table.Value {
	switch word {
	case "true":
		return table.Bool(true)
	case "false":
		return table.Bool(false)
	}
	return table.None()
}

func (l *lexer) readOperator() errorsx.Error {
	start := l.pos
	ch := l.input[l.pos]

	var op string
	switch ch {
	case '(', ')', ',':
		op = string(ch)
	default:
		rest := string(l.input[l.pos:])
		for _, candidate := range symbolOperators {
			if strings.HasPrefix(rest, candidate) {
				op = candidate
				break
			}
		}
	}
	if op == "" {
		return errorsx.Errorf("%w: unexpected character %q", ErrEvaluation, ch)
	}
	l.pos += len([]rune(op))

	switch {
	case op == "-" && l.isStart:
		op = "--"
	case op == "=":
		op = "=="
	}
	l.emit(token{kind: tokenOperator, text: op, pos: start})
	return nil
}

// combineNegations folds "not like", "not in", "not regexp" and "is not" into single operators.
func combineNegations(tokens []token) []token {
	out := make([]token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.kind == tokenOperator && i+1 < len(tokens) && tokens[i+1].kind == tokenOperator {
			next := tokens[i+1].text
			switch {
			case tok.text == "not" && (next == "like" || next == "in" || next == "regexp"):
				tok.text = "not " + next
				i++
			case tok.text == "is" && next == "not":
				tok.text = "is not"
				i++
			}
		}
		out = append(out, tok)
	}
	return out
}
