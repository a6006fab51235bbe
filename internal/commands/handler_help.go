package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pixil98/go-savestate/internal/display"
	"github.com/pixil98/go-savestate/internal/storage"
)

// HelpHandlerFactory creates handlers that display command help.
type HelpHandlerFactory struct {
	commands storage.Storer[*Command]
}

func NewHelpHandlerFactory(commands storage.Storer[*Command]) *HelpHandlerFactory {
	return &HelpHandlerFactory{commands: commands}
}

func (f *HelpHandlerFactory) ValidateConfig(config map[string]string) error {
	return nil
}

func (f *HelpHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		if command := cmdCtx.String("command"); command != "" {
			return f.showCommand(cmdCtx.Actor, command)
		}
		return f.listCommands(cmdCtx.Actor)
	}, nil
}

// listCommands displays all commands grouped by category.
func (f *HelpHandlerFactory) listCommands(actor *Actor) error {
	groups := make(map[string][]string)
	for id, cmd := range f.commands.GetAll() {
		category := cmd.Category
		if category == "" {
			category = "other"
		}
		groups[category] = append(groups[category], id)
	}

	categories := make([]string, 0, len(groups))
	for cat := range groups {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	lines := []string{"Available commands:"}
	for _, cat := range categories {
		cmds := groups[cat]
		sort.Strings(cmds)
		lines = append(lines, fmt.Sprintf("  %s: %s", display.Title(cat), strings.Join(cmds, ", ")))
	}

	return actor.Write(strings.Join(lines, "\n"))
}

// showCommand displays detailed help for a specific command.
func (f *HelpHandlerFactory) showCommand(actor *Actor, name string) error {
	name = strings.ToLower(name)
	cmd := f.commands.Get(name)
	if cmd == nil {
		return NewUserErrorf("Command %q is unknown.", name)
	}

	lines := []string{fmt.Sprintf("%s: %s", name, cmd.Description)}
	if len(cmd.Inputs) > 0 {
		lines = append(lines, fmt.Sprintf("Usage: %s", cmd.Usage(name)))
	}

	return actor.Write(strings.Join(lines, "\n"))
}
