package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const SubjectNotify = "savestate.notify"

// Notification is published on SubjectNotify for each savestate message.
type Notification struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// BusNotifier mirrors savestate notifications onto the bus.
type BusNotifier struct {
	bus Bus
	now func() time.Time
}

func NewBusNotifier(bus Bus) *BusNotifier {
	return &BusNotifier{bus: bus, now: time.Now}
}

func (n *BusNotifier) Notify(ctx context.Context, msg string) {
	data, err := json.Marshal(Notification{Message: msg, Time: n.now().UTC()})
	if err != nil {
		slog.ErrorContext(ctx, "encoding notification", "error", err)
		return
	}
	if err := n.bus.Publish(SubjectNotify, data); err != nil {
		slog.WarnContext(ctx, "publishing notification", "error", err)
	}
}
