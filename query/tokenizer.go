package query

import (
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
)

// Clause is one top-level clause of a query: its keyword and the raw text
// up to the next clause.
type Clause struct {
	Keyword string
	Body    string
}

var statementKeywords = map[string]bool{
	"insert": true,
	"update": true,
	"delete": true,
	"create": true,
	"drop":   true,
	"with":   true,
}

var setKeywords = map[string]bool{
	"join":  true,
	"union": true,
}

func isCommandToken(word string) bool {
	for _, t := range CommandTokens {
		if t == word {
			return true
		}
	}
	return false
}

// scanner walks raw query text keeping track of string literals and
// parenthesis depth.
type scanner struct {
	input    []rune
	pos      int
	depth    int
	quote    rune
	escaping bool
}

// next advances by one character and reports whether that character was
// outside any string literal.
func (s *scanner) next() bool {
	ch := s.input[s.pos]
	s.pos++

	if s.quote != 0 {
		switch {
		case s.escaping:
			s.escaping = false
		case ch == '\\':
			s.escaping = true
		case ch == s.quote:
			s.quote = 0
		}
		return false
	}

	switch ch {
	case '\'', '"':
		s.quote = ch
		return false
	case '(':
		s.depth++
	case ')':
		s.depth--
	}
	return true
}

func (s *scanner) balanced() errorsx.Error {
	if s.quote != 0 {
		return errorsx.Errorf("%w: unterminated string literal", ErrSyntax)
	}
	if s.depth != 0 {
		return errorsx.Errorf("%w: unbalanced parentheses", ErrSyntax)
	}
	return nil
}

// SplitClauses splits a query into its clauses. Keywords are only
// recognised outside string literals and parentheses, so subqueries stay
// inside the clause that contains them. "group by" and "order by" are
// reported as "group" and "order".
func SplitClauses(sql string) ([]Clause, errorsx.Error) {
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))

	var clauses []Clause
	seen := make(map[string]bool)
	bodyStart := 0
	s := &scanner{input: []rune(sql)}

	for s.pos < len(s.input) {
		start := s.pos
		outside := s.next()
		if !outside || s.depth != 0 || !isIdentStart(s.input[start]) {
			continue
		}
		if start > 0 && (isIdentChar(s.input[start-1]) || s.input[start-1] == '.') {
			continue
		}

		for s.pos < len(s.input) && isIdentChar(s.input[s.pos]) {
			s.pos++
		}
		if s.pos < len(s.input) && s.input[s.pos] == '.' {
			continue
		}
		word := strings.ToLower(string(s.input[start:s.pos]))

		switch {
		case statementKeywords[word] && len(clauses) == 0:
			return nil, errorsx.Errorf("%w: %s statements", ErrNotImplemented, word)
		case setKeywords[word]:
			return nil, errorsx.Errorf("%w: %s", ErrNotImplemented, word)
		case !isCommandToken(word):
			continue
		}

		if len(clauses) == 0 {
			if prefix := strings.TrimSpace(string(s.input[:start])); prefix != "" {
				return nil, errorsx.Errorf("%w: unexpected %q before %s", ErrSyntax, prefix, word)
			}
		} else {
			clauses[len(clauses)-1].Body = strings.TrimSpace(string(s.input[bodyStart:start]))
		}

		if word == "group" || word == "order" {
			if err := s.expectWord("by"); err != nil {
				return nil, errorsx.Wrap(err, "clause", word)
			}
		}
		if seen[word] {
			return nil, errorsx.Errorf("%w: repeated %s clause", ErrSyntax, word)
		}
		seen[word] = true
		clauses = append(clauses, Clause{Keyword: word})
		bodyStart = s.pos
	}

	if err := s.balanced(); err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		if sql == "" {
			return nil, errorsx.Errorf("%w: empty query", ErrSyntax)
		}
		return nil, errorsx.Errorf("%w: no clauses found in %q", ErrSyntax, sql)
	}
	clauses[len(clauses)-1].Body = strings.TrimSpace(string(s.input[bodyStart:]))
	return clauses, nil
}

func (s *scanner) expectWord(want string) errorsx.Error {
	for s.pos < len(s.input) && isSpace(s.input[s.pos]) {
		s.pos++
	}
	start := s.pos
	for s.pos < len(s.input) && isIdentChar(s.input[s.pos]) {
		s.pos++
	}
	if got := strings.ToLower(string(s.input[start:s.pos])); got != want {
		return errorsx.Errorf("%w: expected %q, got %q", ErrSyntax, want, got)
	}
	return nil
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// SplitCommaSeparated splits a clause body on the commas that are outside
// parentheses and string literals. Items are trimmed.
func SplitCommaSeparated(body string) []string {
	var items []string
	s := &scanner{input: []rune(body)}
	itemStart := 0
	for s.pos < len(s.input) {
		ch := s.input[s.pos]
		if s.next() && s.depth == 0 && ch == ',' {
			items = append(items, strings.TrimSpace(string(s.input[itemStart:s.pos-1])))
			itemStart = s.pos
		}
	}
	items = append(items, strings.TrimSpace(string(s.input[itemStart:])))
	return items
}
