package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

type countingManager struct {
	ticks int
	err   error
}

func (m *countingManager) Tick(context.Context) error {
	m.ticks++
	return m.err
}

func TestDriver_Tick(t *testing.T) {
	errBoom := errors.New("boom")

	tests := map[string]struct {
		managers []*countingManager
		expTicks []int
		expErr   string
	}{
		"all managers ticked": {
			managers: []*countingManager{{}, {}},
			expTicks: []int{1, 1},
		},
		"error stops the tick": {
			managers: []*countingManager{{err: errBoom}, {}},
			expTicks: []int{1, 0},
			expErr:   "boom",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			managers := make([]Manager, len(tt.managers))
			for i, m := range tt.managers {
				managers[i] = m
			}

			err := NewDriver(managers).Tick(context.Background())
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for i, m := range tt.managers {
				testutil.AssertEqual(t, "ticks", m.ticks, tt.expTicks[i])
			}
		})
	}
}

func TestDriver_StartStopsOnError(t *testing.T) {
	m := &countingManager{err: errors.New("boom")}
	d := NewDriver([]Manager{m}, WithTickLength(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	testutil.AssertErrorContains(t, d.Start(ctx), "boom")
}

func TestDriver_StartStopsOnCancel(t *testing.T) {
	d := NewDriver(nil, WithTickLength(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
