package commands

import (
	"context"
)

// QuitHandlerFactory creates handlers that end the actor's session.
type QuitHandlerFactory struct{}

func (f *QuitHandlerFactory) ValidateConfig(config map[string]string) error {
	return nil
}

func (f *QuitHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		cmdCtx.Actor.Quit = true
		return nil
	}, nil
}
