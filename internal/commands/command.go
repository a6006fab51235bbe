package commands

import (
	"fmt"
)

// InputType represents the type of a command input parameter.
type InputType string

const (
	InputTypeString InputType = "string" // Text input (single word if rest=false, multi-word if rest=true)
	InputTypeNumber InputType = "number" // Integer
)

// InputSpec defines an input parameter that a command accepts from user input.
type InputSpec struct {
	Name     string    `json:"name"`
	Type     InputType `json:"type"`
	Required bool      `json:"required"`
	Rest     bool      `json:"rest"` // If true, captures all remaining input
}

// Command defines a console command loaded from JSON.
type Command struct {
	Handler     string            `json:"handler"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Config      map[string]string `json:"config"` // Passed to the handler, expanded against the inputs except for "format"
	Inputs      []InputSpec       `json:"inputs"`
}

// Validate checks the inputs can be parsed positionally: names are unique,
// required inputs come first and only the last input may take the rest of
// the line.
func (c *Command) Validate() error {
	if c.Handler == "" {
		return fmt.Errorf("command handler not set")
	}

	seen := map[string]bool{}
	optional := false
	for i, input := range c.Inputs {
		switch {
		case input.Name == "":
			return fmt.Errorf("input %d: name is required", i)
		case seen[input.Name]:
			return fmt.Errorf("input %q: duplicate name", input.Name)
		case input.Type == "":
			return fmt.Errorf("input %q: type is required", input.Name)
		case input.Type != InputTypeString && input.Type != InputTypeNumber:
			return fmt.Errorf("input %q: unknown type %q", input.Name, input.Type)
		case input.Rest && i != len(c.Inputs)-1:
			return fmt.Errorf("input %q: only the last input can have rest=true", input.Name)
		case input.Required && optional:
			return fmt.Errorf("input %q: required inputs must come before optional ones", input.Name)
		}
		seen[input.Name] = true
		optional = optional || !input.Required
	}

	return nil
}

// Usage renders the command's inputs, e.g. "save <slot> [name]".
func (c *Command) Usage(name string) string {
	usage := name
	for _, input := range c.Inputs {
		if input.Required {
			usage += fmt.Sprintf(" <%s>", input.Name)
		} else {
			usage += fmt.Sprintf(" [%s]", input.Name)
		}
	}
	return usage
}
