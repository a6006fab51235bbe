package savestate

import (
	"time"

	"github.com/pixil98/go-savestate/internal/snapshot"
)

type moduleConfig struct {
	notifiers []Notifier
	layers    []string
	rules     []snapshot.SelectorOpt
	orchOpts  []OrchestratorOpt
	now       func() time.Time
}

type ModuleOpt func(*moduleConfig)

// WithNotifier adds a destination for user-facing messages.
func WithNotifier(n Notifier) ModuleOpt {
	return func(c *moduleConfig) {
		c.notifiers = append(c.notifiers, n)
	}
}

// WithRules adds selector rules on top of DefaultRules.
func WithRules(opts ...snapshot.SelectorOpt) ModuleOpt {
	return func(c *moduleConfig) {
		c.rules = append(c.rules, opts...)
	}
}

// WithLayers sets the layers CycleLayer steps through. The first is active
// at start. An empty list is ignored.
func WithLayers(layers ...string) ModuleOpt {
	return func(c *moduleConfig) {
		if len(layers) > 0 {
			c.layers = layers
		}
	}
}

func WithRestoreTimeout(d time.Duration) ModuleOpt {
	return func(c *moduleConfig) {
		c.orchOpts = append(c.orchOpts, WithReloadTimeout(d))
	}
}

func WithClock(now func() time.Time) ModuleOpt {
	return func(c *moduleConfig) {
		c.now = now
	}
}
