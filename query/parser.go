package query

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jamesrr39/goutil/errorsx"
)

// Parser turns query text into Sessions.
type Parser struct {
	fetcher Fetcher
	opts    []SessionOption
}

// NewParser creates a parser whose sessions fetch from fetcher. opts are
// applied to every session it builds, before the options of the query itself.
func NewParser(fetcher Fetcher, opts ...SessionOption) *Parser {
	return &Parser{fetcher: fetcher, opts: opts}
}

// Parse parses a query.
func (p *Parser) Parse(sql string) (*Session, errorsx.Error) {
	return p.parse(sql, 0)
}

func (p *Parser) parse(sql string, depth int) (*Session, errorsx.Error) {
	if depth > MaxNestingDepth {
		return nil, errorsx.Errorf("%w: subqueries nested deeper than %d", ErrSyntax, MaxNestingDepth)
	}

	clauses, err := SplitClauses(sql)
	if err != nil {
		return nil, err
	}

	var (
		fields []Field
		source *Source
		opts   = append([]SessionOption{}, p.opts...)
		orders []OrderItem
		having string
	)
	for _, clause := range clauses {
		if clause.Body == "" {
			return nil, errorsx.Errorf("%w: empty %s clause", ErrSyntax, clause.Keyword)
		}

		switch clause.Keyword {
		case "select":
			fields, err = parseSelect(clause.Body)
		case "from":
			source, err = p.parseFrom(clause.Body, depth)
		case "where":
			opts = append(opts, WithCondition(clause.Body))
		case "group":
			var groups []string
			groups, err = splitItems(clause)
			opts = append(opts, WithGroups(groups...))
		case "having":
			having = clause.Body
		case "order":
			orders, err = parseOrder(clause)
		case "limit":
			var limit, offset int
			limit, offset, err = parseLimit(clause.Body)
			opts = append(opts, WithLimit(limit), WithOffset(offset))
		default:
			err = errorsx.Errorf("%w: %s clause", ErrNotImplemented, clause.Keyword)
		}
		if err != nil {
			return nil, errorsx.Wrap(err, "clause", clause.Keyword)
		}
	}

	if len(fields) == 0 {
		return nil, errorsx.Errorf("%w: missing SELECT clause", ErrSyntax)
	}
	if source == nil {
		return nil, errorsx.Errorf("%w: missing FROM clause", ErrSyntax)
	}

	// ORDER BY and HAVING may name a select alias
	aliases := make(map[string]string)
	for _, f := range fields {
		if f.Alias != "" {
			aliases[f.Alias] = f.Expr
		}
	}
	for i, o := range orders {
		if expr, ok := aliases[o.Expr]; ok {
			orders[i].Expr = expr
		}
	}
	if expr, ok := aliases[having]; ok {
		having = expr
	}
	if having != "" {
		opts = append(opts, WithHaving(having))
	}
	if len(orders) > 0 {
		opts = append(opts, WithOrders(orders...))
	}

	return NewSession(p.fetcher, fields, *source, opts...), nil
}

func splitItems(clause Clause) ([]string, errorsx.Error) {
	items := SplitCommaSeparated(clause.Body)
	for _, item := range items {
		if item == "" {
			return nil, errorsx.Errorf("%w: empty item in %s clause", ErrSyntax, clause.Keyword)
		}
	}
	return items, nil
}

var aliasRegexp = regexp.MustCompile("(?is)^(.*\\S)\\s+as\\s+(\"[^\"]*\"|'[^']*'|`[^`]*`|[a-z_][a-z0-9_]*)$")

func parseSelect(body string) ([]Field, errorsx.Error) {
	if strings.HasPrefix(strings.ToLower(body), "distinct ") {
		return nil, errorsx.Errorf("%w: SELECT DISTINCT", ErrNotImplemented)
	}

	items, err := splitItems(Clause{Keyword: "select", Body: body})
	if err != nil {
		return nil, err
	}
	fields := make([]Field, len(items))
	for i, item := range items {
		fields[i] = Field{Expr: item}
		if m := aliasRegexp.FindStringSubmatch(item); m != nil {
			alias := m[2]
			if strings.ContainsAny(alias[:1], "\"'`") {
				alias = alias[1 : len(alias)-1]
			}
			fields[i] = Field{Expr: strings.TrimSpace(m[1]), Alias: alias}
		}
	}
	return fields, nil
}

func (p *Parser) parseFrom(body string, depth int) (*Source, errorsx.Error) {
	if strings.HasPrefix(body, "(") {
		s := &scanner{input: []rune(body)}
		for s.pos < len(s.input) {
			s.next()
			if s.depth == 0 {
				break
			}
		}
		inner := string(s.input[1 : s.pos-1])
		rest := strings.Fields(string(s.input[s.pos:]))
		if len(rest) > 2 || (len(rest) == 2 && !strings.EqualFold(rest[0], "as")) {
			return nil, errorsx.Errorf("%w: unexpected %q after subquery", ErrSyntax, strings.Join(rest, " "))
		}

		sub, err := p.parse(inner, depth+1)
		if err != nil {
			return nil, errorsx.Wrap(err, "subquery", inner)
		}
		return &Source{Query: sub}, nil
	}

	if strings.Contains(body, ",") {
		return nil, errorsx.Errorf("%w: multiple sources", ErrNotImplemented)
	}
	parts := strings.Fields(body)
	if len(parts) != 1 {
		return nil, errorsx.Errorf("%w: unexpected %q in FROM clause", ErrSyntax, body)
	}
	return &Source{Label: parts[0]}, nil
}

func parseOrder(clause Clause) ([]OrderItem, errorsx.Error) {
	items, err := splitItems(clause)
	if err != nil {
		return nil, err
	}
	orders := make([]OrderItem, len(items))
	for i, item := range items {
		orders[i] = OrderItem{Expr: item, Direction: Ascending}
		words := strings.Fields(item)
		if len(words) < 2 {
			continue
		}
		last := words[len(words)-1]
		// the expression is everything before the last whitespace run
		expr := strings.TrimRightFunc(item[:strings.LastIndex(item, last)], unicode.IsSpace)
		switch strings.ToLower(last) {
		case "desc":
			orders[i] = OrderItem{Expr: expr, Direction: Descending}
		case "asc":
			orders[i].Expr = expr
		}
	}
	return orders, nil
}

// parseLimit accepts "n", "offset, n" and "n offset m". A missing offset is 0.
func parseLimit(body string) (int, int, errorsx.Error) {
	var limitText, offsetText string
	if parts := strings.Split(body, ","); len(parts) == 2 {
		offsetText, limitText = parts[0], parts[1]
	} else if fields := strings.Fields(body); len(fields) == 3 && strings.EqualFold(fields[1], "offset") {
		limitText, offsetText = fields[0], fields[2]
	} else {
		limitText = body
	}

	limit, err := parseCount(limitText)
	if err != nil {
		return 0, 0, err
	}
	offset := 0
	if offsetText != "" {
		offset, err = parseCount(offsetText)
		if err != nil {
			return 0, 0, err
		}
	}
	return limit, offset, nil
}

func parseCount(text string) (int, errorsx.Error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 {
		return 0, errorsx.Errorf("%w: invalid row count %q", ErrSyntax, text)
	}
	return n, nil
}
