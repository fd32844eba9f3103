// Package webservices serves queries over HTTP.
package webservices

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/jamesrr39/go-tracing"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/vegasq/sqlhub/query"
)

// NewRouter mounts the services under /api/, tracing every request with tracer.
func NewRouter(logger *logpkg.Logger, tracer *tracing.Tracer, parser *query.Parser, info *InfoService) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(tracing.Middleware(tracer))
	router.Route("/api/", func(r chi.Router) {
		r.Mount("/info", info)
		r.Mount("/query", NewQueryService(logger, parser))
	})

	return router
}
