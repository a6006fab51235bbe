package commands

import (
	"io"

	"github.com/pixil98/go-savestate/internal/display"
	"github.com/pixil98/go-savestate/internal/game"
)

// Actor is the console user a command runs for. It is owned by one session
// goroutine.
type Actor struct {
	Name   string
	Filter game.SaveFilter
	Quit   bool

	out io.Writer
}

func NewActor(name string, out io.Writer) *Actor {
	return &Actor{Name: name, out: out}
}

// Write sends msg to the actor, word-wrapped and followed by a blank line.
func (a *Actor) Write(msg string) error {
	_, err := io.WriteString(a.out, display.Wrap(msg)+"\n\n")
	return err
}
