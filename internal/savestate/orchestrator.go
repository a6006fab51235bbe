package savestate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/snapshot"
)

const DefaultReloadTimeout = 5 * time.Second

// Host is the part of the world a restore drives.
type Host interface {
	snapshot.Resolver
	State() game.State
	Hold() (release func())
	OnContextEntered(fn func(contextID string)) (unsubscribe func())
	RequestReload(id string) error
	Do(fn func())
	SetRandState(b []byte) error
}

// Result counts what a restore did with each snapshot.
type Result struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// Orchestrator reloads the context a record was captured in and writes the
// record's snapshots onto the fresh entities. One restore runs at a time.
type Orchestrator struct {
	host      Host
	populator *snapshot.Populator
	timeout   time.Duration

	restoring atomic.Bool
}

type OrchestratorOpt func(*Orchestrator)

func WithReloadTimeout(d time.Duration) OrchestratorOpt {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

func NewOrchestrator(host Host, sel *snapshot.Selector, opts ...OrchestratorOpt) *Orchestrator {
	o := &Orchestrator{
		host:      host,
		populator: snapshot.NewPopulator(sel, host),
		timeout:   DefaultReloadTimeout,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Restoring reports whether a restore is in progress.
func (o *Orchestrator) Restoring() bool {
	return o.restoring.Load()
}

// Restore reloads rec's context and applies its snapshots in order. Entities
// that no longer exist are skipped. Nothing is rolled back on failure.
func (o *Orchestrator) Restore(ctx context.Context, rec *snapshot.Record) (Result, error) {
	if o.restoring.Load() {
		return Result{}, ErrBusy
	}
	if err := rec.Validate(); err != nil {
		return Result{}, fmt.Errorf("validating savestate: %w", err)
	}
	if st := o.host.State(); st != game.StatePlaying {
		return Result{}, fmt.Errorf("%w: %s", ErrWorldNotReady, st)
	}

	if !o.restoring.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer o.restoring.Store(false)

	release := o.host.Hold()
	defer release()

	entered := make(chan struct{})
	var once sync.Once
	unsubscribe := o.host.OnContextEntered(func(id string) {
		if id == rec.ContextID {
			once.Do(func() { close(entered) })
		}
	})
	defer unsubscribe()

	if err := o.host.RequestReload(rec.ContextID); err != nil {
		return Result{}, fmt.Errorf("requesting reload: %w", err)
	}

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case <-entered:
	case <-ctx.Done():
		return Result{}, fmt.Errorf("waiting for reload: %w", ctx.Err())
	case <-timer.C:
		return Result{}, fmt.Errorf("%w after %s", ErrReloadTimeout, o.timeout)
	}

	var res Result
	o.host.Do(func() {
		res.Applied, res.Skipped = o.populator.ApplyAll(rec.Snapshots)

		if len(rec.RNGSeed) == 0 {
			return
		}
		if err := o.host.SetRandState(rec.RNGSeed); err != nil {
			slog.ErrorContext(ctx, "restoring random state", "context", rec.ContextID, "error", err)
		}
	})

	slog.InfoContext(ctx, "savestate restored", "id", rec.ID, "context", rec.ContextID, "applied", res.Applied, "skipped", res.Skipped)
	return res, nil
}
