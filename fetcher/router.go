package fetcher

import (
	"context"

	"github.com/gobwas/glob"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/query"
	"github.com/vegasq/sqlhub/table"
)

type route struct {
	pattern string
	glob    glob.Glob
	fetcher query.Fetcher
}

// Router sends each label to the fetcher of the first route whose glob
// pattern matches it. In patterns "*" stays within one label part and "**"
// spans parts, so "acme.*" matches "acme.issues" but not "acme.issues.open".
type Router struct {
	routes []route
}

func NewRouter() *Router {
	return &Router{}
}

// Handle adds a route. Routes are tried in the order they were added.
func (r *Router) Handle(pattern string, fetcher query.Fetcher) errorsx.Error {
	g, err := glob.Compile(pattern, '.')
	if err != nil {
		return errorsx.Wrap(err, "pattern", pattern)
	}
	r.routes = append(r.routes, route{pattern: pattern, glob: g, fetcher: fetcher})
	return nil
}

func (r *Router) Fetch(ctx context.Context, label string) (*table.Table, errorsx.Error) {
	for _, rt := range r.routes {
		if rt.glob.Match(label) {
			return rt.fetcher.Fetch(ctx, label)
		}
	}
	return nil, errorsx.Errorf("%w: no source configured for label %q", ErrNotFound, label)
}

// Patterns lists the route patterns in match order.
func (r *Router) Patterns() []string {
	patterns := make([]string, len(r.routes))
	for i, rt := range r.routes {
		patterns[i] = rt.pattern
	}
	return patterns
}
