package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"
)

// SshListener serves the console over ssh. Any client is let in; the
// console has its own login prompt.
type SshListener struct {
	port    uint16
	cm      *ConnectionManager
	hostKey ssh.Signer
	banner  string
}

type SshListenerOpt func(*SshListener)

// WithBanner shows msg to clients before the session starts.
func WithBanner(msg string) SshListenerOpt {
	return func(l *SshListener) {
		l.banner = msg
	}
}

func NewSshListener(port uint16, cm *ConnectionManager, hostKey ssh.Signer, opts ...SshListenerOpt) *SshListener {
	l := &SshListener{
		port:    port,
		cm:      cm,
		hostKey: hostKey,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *SshListener) serverConfig() *ssh.ServerConfig {
	config := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	if l.banner != "" {
		config.BannerCallback = func(ssh.ConnMetadata) string {
			return l.banner + "\n"
		}
	}
	config.AddHostKey(l.hostKey)
	return config
}

func (l *SshListener) Start(ctx context.Context) error {
	config := l.serverConfig()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", l.port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", l.port, err)
	}

	slog.InfoContext(ctx, "listening for ssh", "port", l.port)

	connCtx, cancelConns := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				cancelConns()
				wg.Wait()
				return nil
			default:
			}
			slog.ErrorContext(ctx, "accepting ssh connection", "error", err)
			continue
		}

		wg.Go(func() {
			l.handleConnection(connCtx, conn, config)
		})
	}
}

func (l *SshListener) handleConnection(ctx context.Context, conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		slog.ErrorContext(ctx, "ssh handshake", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	defer sshConn.Close()

	slog.InfoContext(ctx, "ssh connection established", "remote", conn.RemoteAddr(), "user", sshConn.User())

	// Unblocks the channel loop on shutdown.
	go func() {
		<-ctx.Done()
		sshConn.Close()
	}()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		l.serveChannel(ctx, newChan)
	}
}

// serveChannel waits for a shell request, then runs one console session on
// the channel.
func (l *SshListener) serveChannel(ctx context.Context, newChan ssh.NewChannel) {
	ch, requests, err := newChan.Accept()
	if err != nil {
		slog.ErrorContext(ctx, "accepting ssh channel", "error", err)
		return
	}
	defer ch.Close()

	shellReady := make(chan struct{})
	go func() {
		started := false
		for req := range requests {
			switch req.Type {
			case "pty-req":
				// No pty, so the client keeps local echo and line editing.
				req.Reply(false, nil)
			case "shell":
				req.Reply(!started, nil)
				if !started {
					started = true
					close(shellReady)
				}
			default:
				req.Reply(false, nil)
			}
		}
	}()

	select {
	case <-shellReady:
	case <-ctx.Done():
		return
	}

	l.cm.AcceptConnection(ctx, newCRLFReadWriter(ch))
}
