package commands

import (
	"context"
	"fmt"
)

// MessageHandlerFactory creates handlers that show a fixed message.
// Config:
//   - message (required): template shown to the actor
type MessageHandlerFactory struct{}

func (f *MessageHandlerFactory) ValidateConfig(config map[string]string) error {
	if config["message"] == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}

func (f *MessageHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		// Config values are already expanded by the framework
		return cmdCtx.Actor.Write(cmdCtx.Config["message"])
	}, nil
}
