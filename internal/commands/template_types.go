package commands

import (
	"github.com/pixil98/go-savestate/internal/savestate"
)

// Template-facing types. These decouple command config templates from the
// savestate and game packages.

// InputContext is used to expand config templates before handler execution.
type InputContext struct {
	Actor  string         // Name of the player running the command
	Layer  string         // Active savestate layer
	Inputs map[string]any // Parsed input values keyed by input name
}

// ListView is the data behind the list command's format template.
type ListView struct {
	Layer   string
	Page    int
	Entries []savestate.PageEntry
}

// StatusView is the data behind the status command's format template.
type StatusView struct {
	savestate.Status
	Actor  string
	Filter string
}
