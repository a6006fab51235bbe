package snapshot

import "errors"

var (
	ErrTargetNotFound = errors.New("snapshot target not found")
	ErrInvalidTarget  = errors.New("target must be a non-nil pointer to a struct")
	ErrNotSettable    = errors.New("field is not settable")
	ErrNestingDepth   = errors.New("value nesting too deep")
)
