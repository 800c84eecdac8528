// Package checker drives one polling cycle: pull the next tile off the
// queue, fetch it, and fan out to every project it overlaps.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/wplace-tools/pixelwatch/internal/differ"
	"github.com/wplace-tools/pixelwatch/internal/fetcher"
	"github.com/wplace-tools/pixelwatch/internal/models"
	"github.com/wplace-tools/pixelwatch/internal/palette"
	"github.com/wplace-tools/pixelwatch/internal/store"
)

// tileQueue is the subset of *queue.Queue the Checker needs.
type tileQueue interface {
	SelectNext() (*models.Tile, bool, error)
}

// tileFetcher is the subset of *fetcher.Fetcher the Checker needs.
type tileFetcher interface {
	Check(ctx context.Context, tile models.Tile) (fetcher.Outcome, error)
}

// projectDiffer is the subset of *differ.Differ the Checker needs.
type projectDiffer interface {
	Diff(project models.Project) (differ.Result, error)
}

// Checker runs polling cycles and tracks how many in a row have failed, so
// the engine can decide when the daemon is unhealthy enough to give up.
type Checker struct {
	store   *store.Store
	queue   tileQueue
	fetcher tileFetcher
	differ  projectDiffer

	mu                sync.Mutex
	consecutiveErrors int
}

// New builds a Checker.
func New(s *store.Store, q tileQueue, f tileFetcher, d projectDiffer) *Checker {
	return &Checker{store: s, queue: q, fetcher: f, differ: d}
}

// ConsecutiveErrors reports how many cycles in a row have ended in failure.
// It resets to zero the moment any cycle completes cleanly.
func (c *Checker) ConsecutiveErrors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consecutiveErrors
}

// RunCycle selects the next tile due for a check, fetches it, and — if the
// tile's canvas content changed — diffs every project it overlaps. A cycle
// with no tile due (empty queue) is a clean, no-op success.
func (c *Checker) RunCycle(ctx context.Context) error {
	if err := c.runCycle(ctx); err != nil {
		c.recordFailure()
		return err
	}
	c.recordSuccess()
	return nil
}

func (c *Checker) runCycle(ctx context.Context) error {
	tile, found, err := c.queue.SelectNext()
	if err != nil {
		return fmt.Errorf("checker: select next tile: %w", err)
	}
	if !found {
		return nil
	}

	outcome, err := c.fetcher.Check(ctx, *tile)
	if err != nil {
		return fmt.Errorf("checker: check tile %d: %w", tile.ID, err)
	}
	if err := c.store.UpsertTile(outcome.Tile); err != nil {
		return fmt.Errorf("checker: persist tile %d: %w", tile.ID, err)
	}
	if outcome.Failed {
		var violation *palette.Violation
		if errors.As(outcome.Err, &violation) {
			log.Printf("checker: tile %d: palette violation, skipping: %v", tile.ID, violation)
			return nil
		}
		return fmt.Errorf("checker: tile %d: %s", tile.ID, outcome.Reason)
	}
	if !outcome.Changed {
		return nil
	}

	projects, err := c.store.LookupOverlappingProjects(tile.ID)
	if err != nil {
		return fmt.Errorf("checker: lookup projects for tile %d: %w", tile.ID, err)
	}
	return c.diffAll(projects)
}

// diffAll runs a project's diff in its own goroutine so one project's slow
// I/O doesn't hold up the others; every project is attempted even if earlier
// ones fail. A palette violation (a bad target image) is logged and skipped
// rather than counted as a failure; every other error is joined rather than
// short-circuited.
func (c *Checker) diffAll(projects []models.Project) error {
	var wg sync.WaitGroup
	errs := make([]error, len(projects))

	for i, project := range projects {
		wg.Add(1)
		go func(i int, project models.Project) {
			defer wg.Done()
			_, err := c.differ.Diff(project)
			if err == nil {
				return
			}
			var violation *palette.Violation
			if errors.As(err, &violation) {
				log.Printf("checker: project %d: palette violation, skipping: %v", project.ID, violation)
				return
			}
			errs[i] = fmt.Errorf("project %d: %w", project.ID, err)
		}(i, project)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (c *Checker) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveErrors++
}

func (c *Checker) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveErrors = 0
}
