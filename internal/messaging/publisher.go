package messaging

import (
	"errors"
	"log/slog"
)

// Bus is the publishing half of NatsServer.
type Bus interface {
	Publish(subject string, data []byte) error
}

// NatsPublisher forwards world events to the bus under a subject prefix.
type NatsPublisher struct {
	bus    Bus
	prefix string
}

func NewNatsPublisher(bus Bus, prefix string) *NatsPublisher {
	return &NatsPublisher{bus: bus, prefix: prefix}
}

// Publish satisfies game.Publisher. Events raised before the bus is up are
// dropped.
func (p *NatsPublisher) Publish(subject string, data []byte) error {
	if p.prefix != "" {
		subject = p.prefix + "." + subject
	}
	err := p.bus.Publish(subject, data)
	if errors.Is(err, ErrNotStarted) {
		slog.Debug("bus not started, dropping event", "subject", subject)
		return nil
	}
	return err
}
