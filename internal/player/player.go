package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pixil98/go-savestate/internal/commands"
)

// Player is one connected console session.
type Player struct {
	id         uint64
	br         *bufio.Reader
	conn       io.ReadWriter
	actor      *commands.Actor
	cmdHandler *commands.Handler
	prompt     func() string

	msgs chan string
}

func (p *Player) Name() string {
	return p.actor.Name
}

func (p *Player) Play(ctx context.Context) error {
	// Start goroutine to read input lines into a channel
	inputChan := make(chan string)
	inputErrChan := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(p.br)
		for scanner.Scan() {
			select {
			case inputChan <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		inputErrChan <- scanner.Err()
		close(inputChan)
	}()

	if err := p.showPrompt(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-p.msgs:
			if err := p.writeLine("\n" + msg); err != nil {
				return err
			}
			if err := p.showPrompt(); err != nil {
				return err
			}

		case line, ok := <-inputChan:
			if !ok {
				// Input channel closed (connection lost).
				select {
				case err := <-inputErrChan:
					return err
				default:
					return nil
				}
			}

			line = strings.TrimSpace(line)
			if line == "" {
				if err := p.showPrompt(); err != nil {
					return err
				}
				continue
			}

			parts := strings.Fields(line)
			err := p.cmdHandler.Exec(ctx, p.actor, parts[0], parts[1:]...)
			if err != nil {
				var userErr *commands.UserError
				if !errors.As(err, &userErr) {
					// System error - log and disconnect
					return fmt.Errorf("command execution failed: %w", err)
				}
				if err := p.writeLine(userErr.Message); err != nil {
					return err
				}
			}

			if p.actor.Quit {
				_ = p.writeLine("Goodbye!")
				return nil
			}

			if err := p.showPrompt(); err != nil {
				return err
			}
		}
	}
}

// deliver queues msg for the session without blocking. It reports false when
// the session is not keeping up.
func (p *Player) deliver(msg string) bool {
	select {
	case p.msgs <- msg:
		return true
	default:
		slog.Warn("dropping console message", "player", p.Name())
		return false
	}
}

func (p *Player) showPrompt() error {
	prompt := "> "
	if p.prompt != nil {
		prompt = p.prompt()
	}
	_, err := io.WriteString(p.conn, prompt)
	return err
}

func (p *Player) writeLine(msg string) error {
	_, err := io.WriteString(p.conn, msg+"\n\n")
	return err
}
