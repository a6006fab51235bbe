package storage

import "errors"

var (
	ErrInvalidSlot  = errors.New("slot must not be negative")
	ErrInvalidLayer = errors.New("layer must be alphanumeric")
	ErrInvalidName  = errors.New("name must not contain path characters")
)
