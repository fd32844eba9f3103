package fetcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/vegasq/sqlhub/table"
)

// DefaultOrgColumn is the column SQL tables are filtered on by organisation.
const DefaultOrgColumn = "org"

// postgres error code for a missing table
const pqUndefinedTable = "42P01"

var collectionNameRegexp = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLFetcher reads labels from PostgreSQL: "acme.issues" reads every row
// of the issues table whose org column is "acme".
type SQLFetcher struct {
	db        *sqlx.DB
	orgColumn string
	now       func() time.Time
}

func NewSQLFetcher(db *sqlx.DB, orgColumn string) *SQLFetcher {
	if orgColumn == "" {
		orgColumn = DefaultOrgColumn
	}
	return &SQLFetcher{db: db, orgColumn: orgColumn, now: time.Now}
}

// OpenPostgres connects to a PostgreSQL database.
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, errorsx.Error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errorsx.Errorf("%w: %s", ErrUnreachable, err)
	}
	return db, nil
}

func (f *SQLFetcher) Fetch(ctx context.Context, rawLabel string) (*table.Table, errorsx.Error) {
	label, err := ParseLabel(rawLabel)
	if err != nil {
		return nil, err
	}
	statement, err := f.statement(label)
	if err != nil {
		return nil, err
	}

	rows, qErr := f.db.QueryxContext(ctx, statement, label.Org)
	if qErr != nil {
		return nil, classifySQLError(qErr, rawLabel)
	}
	defer rows.Close()

	columns, qErr := rows.Columns()
	if qErr != nil {
		return nil, classifySQLError(qErr, rawLabel)
	}
	tbl := table.New(columns...)
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, classifySQLError(err, rawLabel)
		}
		row := make(table.Row, len(vals))
		for i, v := range vals {
			row[i] = table.FromNative(v)
		}
		if err := tbl.Append(row); err != nil {
			return nil, err
		}
	}
	if qErr := rows.Err(); qErr != nil {
		return nil, classifySQLError(qErr, rawLabel)
	}
	return ApplyModifiers(tbl, label, f.now()), nil
}

func (f *SQLFetcher) statement(label Label) (string, errorsx.Error) {
	if label.Collection == "" {
		return "", errorsx.Errorf("%w: label %q names no table", ErrNotFound, label.String())
	}
	if !collectionNameRegexp.MatchString(label.Collection) {
		return "", errorsx.Errorf("%w: invalid table name %q", ErrNotFound, label.Collection)
	}
	return fmt.Sprintf(
		"SELECT * FROM %s WHERE %s = $1",
		pq.QuoteIdentifier(label.Collection),
		pq.QuoteIdentifier(f.orgColumn),
	), nil
}

func classifySQLError(err error, label string) errorsx.Error {
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable:
		return errorsx.Errorf("%w: %s: %s", ErrNotFound, label, pqErr.Message)
	case errors.As(err, &pqErr):
		return errorsx.Wrap(err, "label", label)
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, context.DeadlineExceeded):
		return errorsx.Errorf("%w: %s: %s", ErrUnreachable, label, err)
	}
	return errorsx.Wrap(err, "label", label)
}
