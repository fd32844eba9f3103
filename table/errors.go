package table

import (
	"errors"

	"github.com/jamesrr39/goutil/errorsx"
)

// error kinds raised by tables and values
var (
	ErrSchemaMismatch = errors.New("SchemaMismatch")
	ErrIndex          = errors.New("IndexError")
	ErrLookup         = errors.New("LookupError")
	ErrTypeMismatch   = errors.New("TypeMismatch")
)

// IsKind reports whether err, once unwrapped from any errorsx context, is of the given kind.
func IsKind(err error, kind error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, kind) || errors.Is(errorsx.Cause(err), kind)
}
