package query

import "errors"

var (
	// ErrSyntax is returned for malformed queries, such as a missing SELECT or FROM clause.
	ErrSyntax = errors.New("SyntaxError")
	// ErrNotImplemented is returned for recognised but unsupported syntax.
	ErrNotImplemented = errors.New("NotImplementedError")
	// ErrEvaluation is returned for malformed expression text and failed operator application.
	ErrEvaluation = errors.New("EvaluationError")
)
