package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/savestate"
)

const (
	SubjectSave   = "savestate.save"
	SubjectLoad   = "savestate.load"
	SubjectDelete = "savestate.delete"
	SubjectList   = "savestate.list"
	SubjectStatus = "savestate.status"
)

// Savestates is the module surface the control subjects drive.
type Savestates interface {
	CreateSavestate(ctx context.Context, name string, slot int, layer string, filter game.SaveFilter) (savestate.Saved, error)
	LoadSlot(ctx context.Context, slot int, layer string) (savestate.Result, error)
	DeleteSlot(ctx context.Context, slot int, layer string) error
	Page(layer string, page int) ([]savestate.PageEntry, error)
	Status() savestate.Status
	Layer() string
}

// Responder is the request/reply half of NatsServer.
type Responder interface {
	WaitReady(ctx context.Context) error
	Respond(subject string, handler func(data []byte) []byte) (func(), error)
}

// ControlRequest is the body of every control request. Unused fields are
// ignored. An omitted layer means the active layer.
type ControlRequest struct {
	RequestID string  `json:"requestId,omitempty"`
	Slot      *int    `json:"slot,omitempty"`
	Layer     *string `json:"layer,omitempty"`
	Name      string  `json:"name,omitempty"`
	Filter    string  `json:"filter,omitempty"`
	Page      int     `json:"page,omitempty"`
}

type ControlReply struct {
	RequestID string                `json:"requestId"`
	OK        bool                  `json:"ok"`
	Error     string                `json:"error,omitempty"`
	Saved     *savestate.Saved      `json:"saved,omitempty"`
	Result    *savestate.Result     `json:"result,omitempty"`
	Entries   []savestate.PageEntry `json:"entries,omitempty"`
	Status    *savestate.Status     `json:"status,omitempty"`
}

// Control serves savestate operations to tools on the bus.
type Control struct {
	bus    Responder
	states Savestates
}

func NewControl(bus Responder, states Savestates) *Control {
	return &Control{bus: bus, states: states}
}

// Start subscribes once the bus is ready and serves until ctx ends.
func (c *Control) Start(ctx context.Context) error {
	if err := c.bus.WaitReady(ctx); err != nil {
		// Shut down before the bus came up.
		return nil
	}

	handlers := map[string]func(context.Context, *ControlRequest, *ControlReply) error{
		SubjectSave:   c.save,
		SubjectLoad:   c.load,
		SubjectDelete: c.delete,
		SubjectList:   c.list,
		SubjectStatus: c.status,
	}

	var unsubs []func()
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	for subject, h := range handlers {
		unsub, err := c.bus.Respond(subject, c.wrap(ctx, subject, h))
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		unsubs = append(unsubs, unsub)
	}

	slog.InfoContext(ctx, "savestate control ready", "subjects", len(handlers))
	<-ctx.Done()
	return nil
}

func (c *Control) wrap(ctx context.Context, subject string, h func(context.Context, *ControlRequest, *ControlReply) error) func([]byte) []byte {
	return func(data []byte) []byte {
		req := &ControlRequest{}
		reply := &ControlReply{}

		err := decodeRequest(data, req)
		if req.RequestID == "" {
			req.RequestID = uuid.NewString()
		}
		reply.RequestID = req.RequestID

		if err == nil {
			err = h(ctx, req, reply)
		}
		if err != nil {
			slog.WarnContext(ctx, "control request failed", "subject", subject, "request", req.RequestID, "error", err)
			reply.Error = err.Error()
		} else {
			reply.OK = true
		}

		out, err := json.Marshal(reply)
		if err != nil {
			slog.ErrorContext(ctx, "encoding control reply", "subject", subject, "error", err)
			return nil
		}
		return out
	}
}

func decodeRequest(data []byte, req *ControlRequest) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, req); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	return nil
}

func (c *Control) layer(req *ControlRequest) string {
	if req.Layer != nil {
		return *req.Layer
	}
	return c.states.Layer()
}

func requireSlot(req *ControlRequest) (int, error) {
	if req.Slot == nil {
		return 0, fmt.Errorf("slot is required")
	}
	if *req.Slot < 0 {
		return 0, fmt.Errorf("slot must not be negative")
	}
	return *req.Slot, nil
}

func (c *Control) save(ctx context.Context, req *ControlRequest, reply *ControlReply) error {
	slot, err := requireSlot(req)
	if err != nil {
		return err
	}
	filter, err := game.ParseSaveFilter(req.Filter)
	if err != nil {
		return err
	}
	saved, err := c.states.CreateSavestate(ctx, req.Name, slot, c.layer(req), filter)
	if err != nil {
		return err
	}
	reply.Saved = &saved
	return nil
}

func (c *Control) load(ctx context.Context, req *ControlRequest, reply *ControlReply) error {
	slot, err := requireSlot(req)
	if err != nil {
		return err
	}
	res, err := c.states.LoadSlot(ctx, slot, c.layer(req))
	if err != nil {
		return err
	}
	reply.Result = &res
	return nil
}

func (c *Control) delete(ctx context.Context, req *ControlRequest, _ *ControlReply) error {
	slot, err := requireSlot(req)
	if err != nil {
		return err
	}
	return c.states.DeleteSlot(ctx, slot, c.layer(req))
}

func (c *Control) list(_ context.Context, req *ControlRequest, reply *ControlReply) error {
	entries, err := c.states.Page(c.layer(req), req.Page)
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}

func (c *Control) status(_ context.Context, _ *ControlRequest, reply *ControlReply) error {
	st := c.states.Status()
	reply.Status = &st
	return nil
}
