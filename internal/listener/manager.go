package listener

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
)

// SessionRunner plays one console session over a connection.
type SessionRunner interface {
	RunSession(ctx context.Context, conn io.ReadWriter) error
}

// ConnectionManager hands accepted connections to the console and caps how
// many run at once.
type ConnectionManager struct {
	sessions SessionRunner
	limit    int64
	active   atomic.Int64
}

type ConnectionManagerOpt func(*ConnectionManager)

// WithMaxConnections refuses connections past n concurrent sessions. Zero
// means no limit.
func WithMaxConnections(n int) ConnectionManagerOpt {
	return func(m *ConnectionManager) {
		m.limit = int64(n)
	}
}

func NewConnectionManager(sessions SessionRunner, opts ...ConnectionManagerOpt) *ConnectionManager {
	m := &ConnectionManager{
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Active returns the number of sessions currently running.
func (m *ConnectionManager) Active() int {
	return int(m.active.Load())
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	n := m.active.Add(1)
	defer m.active.Add(-1)

	if m.limit > 0 && n > m.limit {
		slog.WarnContext(ctx, "refusing console session", "active", n-1, "limit", m.limit)
		_, _ = io.WriteString(conn, "The console is full, try again later.\n")
		return
	}

	if err := m.sessions.RunSession(ctx, conn); err != nil {
		slog.WarnContext(ctx, "console session", "error", err)
	}
}
