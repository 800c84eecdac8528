// Package engine drives the daemon's process lifecycle: open the store,
// bring the queue up, and run checker cycles on a ticker until told to stop
// or until too many cycles in a row have failed.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wplace-tools/pixelwatch/internal/checker"
	"github.com/wplace-tools/pixelwatch/internal/queue"
	"github.com/wplace-tools/pixelwatch/internal/store"
)

// MaxConsecutiveErrors is how many failed cycles in a row cause Run to give
// up rather than keep retrying against what looks like a systemic failure.
const MaxConsecutiveErrors = 3

// Engine owns the store and queue for the process's lifetime and runs
// checker cycles at a fixed cadence.
type Engine struct {
	store   *store.Store
	queue   *queue.Queue
	checker *checker.Checker
	cadence time.Duration
}

// New wires a store, queue, and checker into an Engine. Callers are
// responsible for closing the store after Run returns.
func New(s *store.Store, q *queue.Queue, c *checker.Checker, cadence time.Duration) *Engine {
	return &Engine{store: s, queue: q, checker: c, cadence: cadence}
}

// Prepare runs the one-time startup sequence: migrate the schema, recompute
// every person's derived totals, and size the queue's temperature buckets.
// Call this once before Run.
func (e *Engine) Prepare() error {
	if err := e.store.AutoMigrate(); err != nil {
		return fmt.Errorf("engine: prepare: %w", err)
	}
	if err := e.store.RecomputeAllPersonTotals(); err != nil {
		return fmt.Errorf("engine: prepare: %w", err)
	}
	if err := e.queue.Start(); err != nil {
		return fmt.Errorf("engine: prepare: %w", err)
	}
	return nil
}

// Run loops checker cycles on the engine's cadence until ctx is cancelled or
// MaxConsecutiveErrors cycles in a row have failed. A cycle already running
// when the ticker fires again is allowed to finish; time.Ticker holds one
// pending tick and drops the rest, so the next cycle starts as soon as the
// long one returns.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("engine: shutting down: %v", ctx.Err())
			return nil
		case <-ticker.C:
			if err := e.runOneCycle(ctx); err != nil {
				return err
			}
		}
	}
}

func (e *Engine) runOneCycle(ctx context.Context) error {
	if err := e.checker.RunCycle(ctx); err != nil {
		log.Printf("engine: cycle failed (%d/%d consecutive): %v", e.checker.ConsecutiveErrors(), MaxConsecutiveErrors, err)
		if e.checker.ConsecutiveErrors() >= MaxConsecutiveErrors {
			return fmt.Errorf("engine: %d consecutive cycle failures, giving up: %w", e.checker.ConsecutiveErrors(), err)
		}
	}
	return nil
}
