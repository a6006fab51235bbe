package player

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pixil98/go-savestate/internal/commands"
)

const (
	DefaultGreeting = "Welcome to the savestate console!"

	messageBuffer = 16
)

// PlayerManager runs console sessions and fans notifications out to them.
type PlayerManager struct {
	cmdHandler *commands.Handler
	loginFlow  *loginFlow
	layer      func() string

	mu      sync.Mutex
	players map[uint64]*Player
	nextId  uint64
}

type PlayerManagerOpt func(*PlayerManager)

func WithGreeting(s string) PlayerManagerOpt {
	return func(m *PlayerManager) {
		m.loginFlow.greeting = s
	}
}

// WithLayerPrompt shows the active savestate layer in every prompt.
func WithLayerPrompt(layer func() string) PlayerManagerOpt {
	return func(m *PlayerManager) {
		m.layer = layer
	}
}

func NewPlayerManager(cmd *commands.Handler, opts ...PlayerManagerOpt) *PlayerManager {
	pm := &PlayerManager{
		cmdHandler: cmd,
		loginFlow:  &loginFlow{greeting: DefaultGreeting},
		players:    map[uint64]*Player{},
	}

	for _, opt := range opts {
		opt(pm)
	}

	return pm
}

func (m *PlayerManager) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// RunSession logs a connection in and plays it until it quits or drops.
func (m *PlayerManager) RunSession(ctx context.Context, conn io.ReadWriter) error {
	br := bufio.NewReader(conn)

	name, err := m.loginFlow.Run(br, conn)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	p := m.add(name, br, conn)
	defer m.remove(p)

	slog.InfoContext(ctx, "player connected", "player", name)
	defer slog.InfoContext(ctx, "player disconnected", "player", name)

	return p.Play(ctx)
}

// Notify satisfies savestate.Notifier by sending msg to every session.
func (m *PlayerManager) Notify(ctx context.Context, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.players {
		p.deliver(msg)
	}
}

// Players returns the names of everyone connected.
func (m *PlayerManager) Players() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.players))
	for _, p := range m.players {
		names = append(names, p.Name())
	}
	return names
}

func (m *PlayerManager) add(name string, br *bufio.Reader, conn io.ReadWriter) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &Player{
		id:         m.nextId,
		br:         br,
		conn:       conn,
		actor:      commands.NewActor(name, conn),
		cmdHandler: m.cmdHandler,
		msgs:       make(chan string, messageBuffer),
	}
	if m.layer != nil {
		p.prompt = func() string {
			layer := m.layer()
			if layer == "" {
				layer = "root"
			}
			return fmt.Sprintf("[%s] > ", layer)
		}
	}

	m.nextId++
	m.players[p.id] = p
	return p
}

func (m *PlayerManager) remove(p *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, p.id)
}
