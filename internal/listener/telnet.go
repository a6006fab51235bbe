package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"

	"github.com/iammegalith/telnet"
)

// TelnetListener serves console sessions over plain telnet.
type TelnetListener struct {
	port uint16
	cm   *ConnectionManager
}

func NewTelnetListener(port uint16, cm *ConnectionManager) *TelnetListener {
	return &TelnetListener{port: port, cm: cm}
}

func (l *TelnetListener) Start(ctx context.Context) error {
	sessions := newTelnetSessions(ctx, l.cm)
	svr := telnet.NewServer(fmt.Sprintf(":%d", l.port), sessions)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			svr.Stop()
			sessions.stop()
		case <-stopped:
		}
	}()

	slog.InfoContext(ctx, "listening for telnet", "port", l.port)

	switch err := svr.ListenAndServe(); {
	case err == nil:
		return nil
	case errors.Is(err, syscall.EADDRINUSE):
		return fmt.Errorf("port %d is already in use (another console running?)", l.port)
	default:
		return fmt.Errorf("serving telnet on port %d: %w", l.port, err)
	}
}

// telnetSessions hands accepted connections to the connection manager.
// Sessions keep running after the accept loop ends until stop is called.
type telnetSessions struct {
	cm     *ConnectionManager
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newTelnetSessions(parent context.Context, cm *ConnectionManager) *telnetSessions {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &telnetSessions{cm: cm, ctx: ctx, cancel: cancel}
}

func (s *telnetSessions) HandleTelnet(conn *telnet.Connection) {
	s.wg.Add(1)
	defer s.wg.Done()

	s.cm.AcceptConnection(s.ctx, newCRLFReadWriter(conn))

	if err := conn.Close(); err != nil {
		slog.ErrorContext(s.ctx, "closing telnet connection", "error", err)
	}
}

func (s *telnetSessions) stop() {
	s.cancel()
	s.wg.Wait()
}
