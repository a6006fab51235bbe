package savestate

import "errors"

var (
	ErrBusy          = errors.New("a savestate is already being restored")
	ErrWorldNotReady = errors.New("world is not playing")
	ErrReloadTimeout = errors.New("timed out waiting for the context to reload")
	ErrNoSavestate   = errors.New("no savestate in slot")
)
