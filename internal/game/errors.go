package game

import "errors"

var (
	ErrZoneNotFound      = errors.New("zone not found")
	ErrUnknownComponent  = errors.New("unknown component type")
	ErrDuplicateType     = errors.New("component type already registered")
	ErrReloadPending     = errors.New("reload already pending")
	ErrUnknownSaveFilter = errors.New("unknown save filter")
	ErrShadowedNode      = errors.New("node shadows a persistent node")
)
