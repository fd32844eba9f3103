package webservices

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/vegasq/sqlhub/output"
	"github.com/vegasq/sqlhub/query"
)

// InfoService describes the server: version, label routes, output formats and functions.
type InfoService struct {
	logger   *logpkg.Logger
	version  string
	sources  []string
	registry *query.FunctionRegistry
	chi.Router
}

func NewInfoService(logger *logpkg.Logger, version string, sources []string, registry *query.FunctionRegistry) *InfoService {
	if registry == nil {
		registry = query.GetGlobalRegistry()
	}
	ws := &InfoService{logger, version, sources, registry, chi.NewRouter()}
	ws.Get("/", ws.handleGet)

	return ws
}

type infoType struct {
	Version   string   `json:"version"`
	Sources   []string `json:"sources"`
	Formats   []string `json:"formats"`
	Functions []string `json:"functions"`
}

func (ws *InfoService) handleGet(w http.ResponseWriter, r *http.Request) {
	sources := ws.sources
	if sources == nil {
		sources = []string{}
	}

	render.JSON(w, r, infoType{
		Version:   ws.version,
		Sources:   sources,
		Formats:   output.Names(),
		Functions: ws.registry.Names(),
	})
}
