package score

import "errors"

var (
	// ErrUnknownKind is returned when a table references an endpoint kind that does not exist.
	ErrUnknownKind = errors.New("unknown endpoint kind")
	// ErrUnknownTier is returned when a table references a tier that does not exist.
	ErrUnknownTier = errors.New("unknown tier")
	// ErrMissingKind is returned when a table does not classify every endpoint kind.
	ErrMissingKind = errors.New("endpoint kind has no tier")
)
