package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-savestate/internal/commands"
	"github.com/pixil98/go-savestate/internal/player"
)

type ConsoleConfig struct {
	Greeting       string `json:"greeting"`
	MaxConnections int    `json:"max_connections"`
	LayerPrompt    bool   `json:"layer_prompt"`
}

func (c *ConsoleConfig) validate() error {
	el := errors.NewErrorList()

	if c.MaxConnections < 0 {
		el.Add(fmt.Errorf("max_connections must not be negative"))
	}

	return el.Err()
}

func (c *ConsoleConfig) BuildPlayerManager(cmdHandler *commands.Handler, layer func() string) *player.PlayerManager {
	var opts []player.PlayerManagerOpt
	if c.Greeting != "" {
		opts = append(opts, player.WithGreeting(c.Greeting))
	}
	if c.LayerPrompt {
		opts = append(opts, player.WithLayerPrompt(layer))
	}
	return player.NewPlayerManager(cmdHandler, opts...)
}
