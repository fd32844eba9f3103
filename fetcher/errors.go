package fetcher

import "errors"

// error kinds raised by fetchers. They pass through query execution unchanged.
var (
	ErrNotFound    = errors.New("NotFound")
	ErrUnreachable = errors.New("Unreachable")
)
