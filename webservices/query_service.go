package webservices

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jamesrr39/go-tracing"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/vegasq/sqlhub/output"
	"github.com/vegasq/sqlhub/query"
)

// QueryService runs queries posted as {"query": "..."}. Results are JSON
// unless a format query parameter names another output format.
type QueryService struct {
	logger *logpkg.Logger
	parser *query.Parser
	chi.Router
}

func NewQueryService(logger *logpkg.Logger, parser *query.Parser) *QueryService {
	qs := &QueryService{logger, parser, chi.NewRouter()}
	qs.Post("/", qs.handlePost)

	return qs
}

type queryRequestType struct {
	Query string `json:"query"`
}

type queryResponseType struct {
	ID     string          `json:"id"`
	Fields []string        `json:"fields"`
	Rows   [][]interface{} `json:"rows"`
}

func (qs *QueryService) handlePost(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	ctx := r.Context()

	var req queryRequestType
	err := render.DecodeJSON(r.Body, &req)
	if err != nil {
		errorsx.HTTPJSONError(w, qs.logger, errorsx.Wrap(err, "queryID", id), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		errorsx.HTTPJSONError(w, qs.logger, errorsx.Errorf("%w: no query given", query.ErrSyntax), http.StatusBadRequest)
		return
	}

	format := r.URL.Query().Get("format")
	var formatter output.Formatter
	if format != "" && format != "json" {
		formatter, err = output.New(format, w)
		if err != nil {
			errorsx.HTTPJSONError(w, qs.logger, errorsx.Wrap(err, "queryID", id), http.StatusBadRequest)
			return
		}
	}

	startTime := time.Now()

	span := tracing.StartSpan(ctx, "parse query")
	session, qErr := qs.parser.Parse(req.Query)
	span.End(ctx)
	if qErr != nil {
		errorsx.HTTPJSONError(w, qs.logger, errorsx.Wrap(qErr, "queryID", id), statusFor(qErr))
		return
	}

	span = tracing.StartSpan(ctx, "execute query")
	result, qErr := session.Execute(ctx)
	span.End(ctx)
	if qErr != nil {
		errorsx.HTTPJSONError(w, qs.logger, errorsx.Wrap(qErr, "queryID", id), statusFor(qErr))
		return
	}

	qs.logger.Info("query %s returned %d rows in %s", id, result.Len(), time.Since(startTime))

	if formatter != nil {
		w.Header().Set("X-Query-Id", id)
		if fErr := formatter.Format(result); fErr != nil {
			qs.logger.Error("writing query %s as %s: %s", id, format, fErr)
		}
		return
	}

	rows := make([][]interface{}, result.Len())
	for i, row := range result.Rows() {
		rows[i] = make([]interface{}, len(row))
		for j, v := range row {
			rows[i][j] = v.Native()
		}
	}
	render.JSON(w, r, queryResponseType{
		ID:     id,
		Fields: result.Fields(),
		Rows:   rows,
	})
}
