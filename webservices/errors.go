package webservices

import (
	"net/http"

	"github.com/vegasq/sqlhub/fetcher"
	"github.com/vegasq/sqlhub/query"
	"github.com/vegasq/sqlhub/table"
)

var errorStatuses = []struct {
	kind   error
	status int
}{
	{query.ErrSyntax, http.StatusBadRequest},
	{query.ErrNotImplemented, http.StatusNotImplemented},
	{table.ErrLookup, http.StatusUnprocessableEntity},
	{table.ErrTypeMismatch, http.StatusUnprocessableEntity},
	{table.ErrIndex, http.StatusUnprocessableEntity},
	{table.ErrSchemaMismatch, http.StatusUnprocessableEntity},
	{query.ErrEvaluation, http.StatusUnprocessableEntity},
	{fetcher.ErrNotFound, http.StatusNotFound},
	{fetcher.ErrUnreachable, http.StatusBadGateway},
}

// statusFor maps an error kind to the HTTP status reported for it.
func statusFor(err error) int {
	for _, es := range errorStatuses {
		if table.IsKind(err, es.kind) {
			return es.status
		}
	}
	return http.StatusInternalServerError
}
