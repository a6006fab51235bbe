package commands

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/pixil98/go-savestate/internal/storage"
)

// CommandFunc is the signature for compiled command functions.
type CommandFunc func(ctx context.Context, cmdCtx *CommandContext) error

// CommandContext is what a compiled command runs with.
type CommandContext struct {
	Actor  *Actor
	Inputs map[string]any
	Config map[string]string // Already expanded against the inputs
}

// Int returns the number input name, falling back to the config value of the
// same name. ok is false when neither is set.
func (c *CommandContext) Int(name string) (int, bool, error) {
	if v, ok := c.Inputs[name].(int); ok {
		return v, true, nil
	}
	raw := c.Config[name]
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("config %q: %w", name, err)
	}
	return n, true, nil
}

// String returns the string input name, falling back to the config value of
// the same name.
func (c *CommandContext) String(name string) string {
	if v, ok := c.Inputs[name].(string); ok && v != "" {
		return v
	}
	return c.Config[name]
}

// HandlerFactory creates CommandFuncs from command configurations.
type HandlerFactory interface {
	// ValidateConfig validates that the config contains required fields.
	ValidateConfig(config map[string]string) error
	// Create creates a CommandFunc.
	Create() (CommandFunc, error)
}

// compiledCommand holds a command that's been validated and compiled.
type compiledCommand struct {
	cmd     *Command
	cmdFunc CommandFunc
}

type Handler struct {
	store     storage.Storer[*Command]
	factories map[string]HandlerFactory
	compiled  map[string]*compiledCommand
	layer     func() string
}

// NewHandler creates a handler for the commands in c. layer reports the
// active savestate layer for config templates and may be nil.
func NewHandler(c storage.Storer[*Command], layer func() string) *Handler {
	h := &Handler{
		store:     c,
		factories: make(map[string]HandlerFactory),
		compiled:  make(map[string]*compiledCommand),
		layer:     layer,
	}
	// Register built-in handlers
	_ = h.RegisterFactory("message", &MessageHandlerFactory{})
	_ = h.RegisterFactory("quit", &QuitHandlerFactory{})
	_ = h.RegisterFactory("help", NewHelpHandlerFactory(c))
	return h
}

// RegisterFactory registers a handler factory by name.
// The name must match the "handler" field in command JSON definitions.
func (h *Handler) RegisterFactory(name string, factory HandlerFactory) error {
	if name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("handler factory cannot be nil")
	}
	if _, exists := h.factories[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateHandler, name)
	}
	h.factories[name] = factory
	return nil
}

// CompileAll compiles all commands from the store.
// Call this after all handler factories have been registered.
func (h *Handler) CompileAll() error {
	all := h.store.GetAll()
	for _, id := range slices.Sorted(maps.Keys(all)) {
		err := h.compile(id, all[id])
		if err != nil {
			return fmt.Errorf("compiling command %q: %w", id, err)
		}
	}
	return nil
}

func (h *Handler) compile(id string, cmd *Command) error {
	factory, ok := h.factories[cmd.Handler]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownHandler, cmd.Handler)
	}

	if err := factory.ValidateConfig(cmd.Config); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	cmdFunc, err := factory.Create()
	if err != nil {
		return fmt.Errorf("creating handler: %w", err)
	}

	h.compiled[id] = &compiledCommand{
		cmd:     cmd,
		cmdFunc: cmdFunc,
	}
	return nil
}

// Exec executes a command with the given arguments.
func (h *Handler) Exec(ctx context.Context, actor *Actor, cmdName string, rawArgs ...string) error {
	compiled, ok := h.compiled[strings.ToLower(cmdName)]
	if !ok {
		return NewUserErrorf("Unknown command: %s", cmdName)
	}

	inputs, err := h.parseInputs(compiled.cmd.Inputs, rawArgs)
	if err != nil {
		return err
	}

	inCtx := &InputContext{Actor: actor.Name, Inputs: inputs}
	if h.layer != nil {
		inCtx.Layer = h.layer()
	}
	config, err := expandConfig(compiled.cmd.Config, inCtx)
	if err != nil {
		return fmt.Errorf("expanding %s config: %w", cmdName, err)
	}

	return compiled.cmdFunc(ctx, &CommandContext{
		Actor:  actor,
		Inputs: inputs,
		Config: config,
	})
}

// parseInputs validates raw string arguments against input specs.
func (h *Handler) parseInputs(specs []InputSpec, rawArgs []string) (map[string]any, error) {
	requiredCount := 0
	for _, spec := range specs {
		if spec.Required {
			requiredCount++
		}
	}

	if len(rawArgs) < requiredCount {
		return nil, NewUserErrorf("Expected at least %d argument(s), got %d.", requiredCount, len(rawArgs))
	}

	// If no rest input, check we don't have too many args
	hasRest := len(specs) > 0 && specs[len(specs)-1].Rest
	if !hasRest && len(rawArgs) > len(specs) {
		return nil, NewUserErrorf("Expected at most %d argument(s), got %d.", len(specs), len(rawArgs))
	}

	inputs := make(map[string]any, len(specs))
	argIndex := 0

	for _, spec := range specs {
		if argIndex >= len(rawArgs) {
			if spec.Required {
				return nil, NewUserErrorf("Missing required input: %s", spec.Name)
			}
			continue
		}

		var raw string
		if spec.Rest {
			// Consume all remaining args joined with spaces
			raw = strings.Join(rawArgs[argIndex:], " ")
			argIndex = len(rawArgs)
		} else {
			raw = rawArgs[argIndex]
			argIndex++
		}

		value, err := h.parseValue(spec.Type, raw)
		if err != nil {
			return nil, err
		}
		inputs[spec.Name] = value
	}

	return inputs, nil
}

// parseValue parses a raw string into the appropriate type.
func (h *Handler) parseValue(inputType InputType, raw string) (any, error) {
	switch inputType {
	case InputTypeString:
		return raw, nil

	case InputTypeNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, NewUserErrorf("%q is not a valid number.", raw)
		}
		return n, nil

	default:
		return nil, fmt.Errorf("unknown input type %q", inputType)
	}
}
