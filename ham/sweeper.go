package ham

import (
	"context"
	"log"
	"sort"
	"time"
)

// SweepConfig tunes the retention sweeper.
type SweepConfig struct {
	// MinInterval floors the adaptive tick interval. Default: 60s.
	MinInterval time.Duration

	// BaseInterval is the tick interval for an empty store; it shrinks by
	// IntervalStep per stored record down to MinInterval. Defaults: 1h, 10s.
	BaseInterval time.Duration
	IntervalStep time.Duration

	// HeadroomThreshold is the free-space fraction below which a tick
	// actually evicts. Default: 0.20.
	HeadroomThreshold float64

	// MaxDeletionsPerTick bounds one pass. 0 means adaptive:
	// max(10, records/10).
	MaxDeletionsPerTick int

	// Headroom overrides the free-space probe. Defaults to the store's
	// capacity guard.
	Headroom func() float64
}

// DefaultSweepConfig mirrors the historical cleanup cadence.
var DefaultSweepConfig = SweepConfig{
	MinInterval:       60 * time.Second,
	BaseInterval:      time.Hour,
	IntervalStep:      10 * time.Second,
	HeadroomThreshold: 0.20,
}

func (c SweepConfig) withDefaults() SweepConfig {
	d := DefaultSweepConfig
	if c.MinInterval == 0 {
		c.MinInterval = d.MinInterval
	}
	if c.BaseInterval == 0 {
		c.BaseInterval = d.BaseInterval
	}
	if c.IntervalStep == 0 {
		c.IntervalStep = d.IntervalStep
	}
	if c.HeadroomThreshold == 0 {
		c.HeadroomThreshold = d.HeadroomThreshold
	}
	return c
}

// Sweeper evicts low-relevance records when the volume runs short on
// headroom. It reuses the store's write exclusion, so a sweep pass is atomic
// with respect to stores, recalls, and deletes; cancellation lands between
// ticks, never mid-pass.
type Sweeper struct {
	store *Store
	cfg   SweepConfig
}

// NewSweeper builds a sweeper over store. Zero config fields are filled from
// DefaultSweepConfig, and the headroom probe defaults to the store's guard.
func NewSweeper(store *Store, cfg SweepConfig) *Sweeper {
	cfg = cfg.withDefaults()
	if cfg.Headroom == nil {
		cfg.Headroom = store.guard.Headroom
	}
	return &Sweeper{store: store, cfg: cfg}
}

// StartSweeper launches a store-owned sweeper goroutine. It runs until the
// store is closed; Close blocks until the goroutine exits. Starting a second
// sweeper on the same store is a no-op.
func (s *Store) StartSweeper(cfg SweepConfig) {
	w := NewSweeper(s, cfg)
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.closed || s.sweepCancel != nil {
		s.mu.Unlock()
		cancel()
		return
	}
	s.sweepCancel = cancel
	s.sweepDone = make(chan struct{})
	done := s.sweepDone
	s.mu.Unlock()

	go func() {
		defer close(done)
		w.Run(ctx)
	}()
}

// Run ticks until ctx is cancelled. The interval adapts to store size: larger
// stores sweep more often, floored at MinInterval.
func (w *Sweeper) Run(ctx context.Context) {
	log.Printf("[SWEEPER] started, first tick in %s", w.interval())
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SWEEPER] stopped: %v", ctx.Err())
			return
		case <-time.After(w.interval()):
			w.Sweep()
		}
	}
}

// Sweep runs one pass and returns the number of records evicted. When
// headroom is above the threshold the pass is a no-op.
func (w *Sweeper) Sweep() int {
	free := w.cfg.Headroom()
	if free >= w.cfg.HeadroomThreshold {
		return 0
	}

	max := w.cfg.MaxDeletionsPerTick
	if max == 0 {
		n := w.store.Len()
		max = n / 10
		if max < 10 {
			max = 10
		}
	}

	evicted := w.store.sweep(max)
	log.Printf("[SWEEPER] headroom %.2f below %.2f, evicted %d record(s)",
		free, w.cfg.HeadroomThreshold, evicted)
	return evicted
}

// interval shrinks from BaseInterval by IntervalStep per record, floored at
// MinInterval.
func (w *Sweeper) interval() time.Duration {
	iv := w.cfg.BaseInterval - time.Duration(w.store.Len())*w.cfg.IntervalStep
	if iv < w.cfg.MinInterval {
		iv = w.cfg.MinInterval
	}
	return iv
}

// sweep evicts up to max unprotected records, least relevant first (oldest
// first among ties), then persists once. A failed persist reinstates every
// evicted record and reports zero evictions.
func (s *Store) sweep(max int) int {
	if max <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}

	victims := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Protected() {
			continue
		}
		victims = append(victims, rec)
	}
	sort.Slice(victims, func(i, j int) bool {
		if victims[i].Relevance != victims[j].Relevance {
			return victims[i].Relevance < victims[j].Relevance
		}
		return victims[i].CreatedAt.Before(victims[j].CreatedAt)
	})
	if len(victims) > max {
		victims = victims[:max]
	}
	if len(victims) == 0 {
		return 0
	}

	for _, rec := range victims {
		delete(s.records, rec.ID)
	}
	if err := s.persistLocked(); err != nil {
		for _, rec := range victims {
			s.records[rec.ID] = rec
		}
		log.Printf("[SWEEPER] persist failed, sweep rolled back: %v", err)
		return 0
	}
	return len(victims)
}
