package query

import "github.com/jamesrr39/goutil/errorsx"

// ExtractTokensFromExpressions returns the column names the expressions
// depend on, in order of first appearance. String literals, function names
// and keywords are not column names.
func ExtractTokensFromExpressions(exprs []string) ([]string, errorsx.Error) {
	var out []string
	seen := make(map[string]bool)
	for _, expr := range exprs {
		tokens, err := lex(expr)
		if err != nil {
			return nil, errorsx.Wrap(err, "expression", expr)
		}
		for _, tok := range tokens {
			if tok.kind == tokenIdent && !seen[tok.text] {
				seen[tok.text] = true
				out = append(out, tok.text)
			}
		}
	}
	return out, nil
}

// IsAllTokensInAggregate reports whether every column reference in exprs
// sits inside an aggregate call, so that each group's result collapses to a
// single row. Malformed expressions are never all-aggregate.
func IsAllTokensInAggregate(exprs []string) bool {
	for _, expr := range exprs {
		tokens, err := lex(expr)
		if err != nil {
			return false
		}
		rest, ok := stripAggregates(tokens)
		if !ok {
			return false
		}
		for _, tok := range rest {
			if tok.kind == tokenIdent {
				return false
			}
		}
	}
	return true
}

// stripAggregates removes every well-formed aggregate call, including its
// arguments. It fails on an aggregate call with unbalanced parentheses.
func stripAggregates(tokens []token) ([]token, bool) {
	out := make([]token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.kind != tokenFunc || !isAggregate(tok.text) {
			out = append(out, tok)
			continue
		}

		depth := 1
		for depth > 0 {
			i++
			if i >= len(tokens) {
				return nil, false
			}
			switch {
			case tokens[i].kind == tokenFunc:
				depth++
			case tokens[i].kind == tokenOperator && tokens[i].text == "(":
				depth++
			case tokens[i].kind == tokenOperator && tokens[i].text == ")":
				depth--
			}
		}
	}
	return out, true
}
