package game

import "time"

type WorldOpt func(*World)

// WithPublisher announces context entries on the message bus.
func WithPublisher(p Publisher) WorldOpt {
	return func(w *World) {
		w.publisher = p
	}
}

// WithPersistentZone builds the nodes of zone id once, on the first load,
// and keeps them across reloads.
func WithPersistentZone(id string) WorldOpt {
	return func(w *World) {
		w.persistentZone = id
	}
}

func WithSeed(seed1, seed2 uint64) WorldOpt {
	return func(w *World) {
		w.rng.Seed(seed1, seed2)
	}
}

func WithTimeStep(d time.Duration) WorldOpt {
	return func(w *World) {
		w.timeStep = d
	}
}
