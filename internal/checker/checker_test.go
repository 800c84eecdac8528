package checker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/wplace-tools/pixelwatch/internal/differ"
	"github.com/wplace-tools/pixelwatch/internal/fetcher"
	"github.com/wplace-tools/pixelwatch/internal/models"
	"github.com/wplace-tools/pixelwatch/internal/palette"
	"github.com/wplace-tools/pixelwatch/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return s
}

type fakeQueue struct {
	tile  *models.Tile
	found bool
	err   error
}

func (f *fakeQueue) SelectNext() (*models.Tile, bool, error) { return f.tile, f.found, f.err }

type fakeFetcher struct {
	outcome fetcher.Outcome
	err     error
}

func (f *fakeFetcher) Check(ctx context.Context, tile models.Tile) (fetcher.Outcome, error) {
	return f.outcome, f.err
}

type fakeDiffer struct {
	mu     sync.Mutex
	calls  []int
	errFor map[int]error
}

func (f *fakeDiffer) Diff(project models.Project) (differ.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, project.ID)
	f.mu.Unlock()
	if f.errFor != nil {
		if err, ok := f.errFor[project.ID]; ok {
			return differ.Result{}, err
		}
	}
	return differ.Result{}, nil
}

func (f *fakeDiffer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func createProjectAndRegister(t *testing.T, s *store.Store, tileID int64) int {
	t.Helper()
	person := &models.Person{DisplayName: "ada"}
	if err := s.DB().Create(person).Error; err != nil {
		t.Fatalf("create person: %v", err)
	}
	project := &models.Project{ID: 1000 + int(person.ID), OwnerID: person.ID, Name: "flag", State: models.ProjectActive}
	if err := s.DB().Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := s.RegisterTileProject(tileID, project.ID); err != nil {
		t.Fatalf("RegisterTileProject: %v", err)
	}
	return project.ID
}

func TestRunCycleEmptyQueueIsSuccess(t *testing.T) {
	s := testStore(t)
	c := New(s, &fakeQueue{found: false}, &fakeFetcher{}, &fakeDiffer{})

	if err := c.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if c.ConsecutiveErrors() != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0", c.ConsecutiveErrors())
	}
}

func TestRunCycleUnchangedTileSkipsDiff(t *testing.T) {
	s := testStore(t)
	tile := models.Tile{ID: 1, X: 0, Y: 0}
	fd := &fakeDiffer{}
	c := New(s, &fakeQueue{tile: &tile, found: true}, &fakeFetcher{outcome: fetcher.Outcome{Tile: tile, Changed: false}}, fd)

	if err := c.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if fd.callCount() != 0 {
		t.Errorf("Diff called %d times, want 0 for an unchanged tile", fd.callCount())
	}
}

func TestRunCycleChangedTileDiffsOverlappingProjects(t *testing.T) {
	s := testStore(t)
	tile := models.Tile{ID: 420017, X: 42, Y: 17}
	p1 := createProjectAndRegister(t, s, tile.ID)
	p2 := createProjectAndRegister(t, s, tile.ID)

	fd := &fakeDiffer{}
	c := New(s, &fakeQueue{tile: &tile, found: true}, &fakeFetcher{outcome: fetcher.Outcome{Tile: tile, Changed: true}}, fd)

	if err := c.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if fd.callCount() != 2 {
		t.Fatalf("Diff called %d times, want 2", fd.callCount())
	}
	seen := map[int]bool{}
	for _, id := range fd.calls {
		seen[id] = true
	}
	if !seen[p1] || !seen[p2] {
		t.Errorf("calls = %v, want both %d and %d", fd.calls, p1, p2)
	}
}

func TestRunCycleFetchFailureIsCountedAndReset(t *testing.T) {
	s := testStore(t)
	tile := models.Tile{ID: 1, X: 0, Y: 0}
	ff := &fakeFetcher{err: errTest("boom")}
	c := New(s, &fakeQueue{tile: &tile, found: true}, ff, &fakeDiffer{})

	if err := c.RunCycle(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if c.ConsecutiveErrors() != 1 {
		t.Fatalf("ConsecutiveErrors = %d, want 1", c.ConsecutiveErrors())
	}

	// A clean cycle resets the counter.
	c.queue = &fakeQueue{found: false}
	if err := c.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if c.ConsecutiveErrors() != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0 after a clean cycle", c.ConsecutiveErrors())
	}
}

func TestRunCycleOutcomeFailedCountsAsFailure(t *testing.T) {
	s := testStore(t)
	tile := models.Tile{ID: 1, X: 0, Y: 0}
	c := New(s, &fakeQueue{tile: &tile, found: true}, &fakeFetcher{outcome: fetcher.Outcome{Tile: tile, Failed: true, Reason: "upstream status 500"}}, &fakeDiffer{})

	err := c.RunCycle(context.Background())
	if err == nil {
		t.Fatal("expected an error for a failed fetch outcome")
	}
	if !strings.Contains(err.Error(), "upstream status 500") {
		t.Errorf("error = %q, want to mention the upstream reason", err.Error())
	}
	if c.ConsecutiveErrors() != 1 {
		t.Errorf("ConsecutiveErrors = %d, want 1", c.ConsecutiveErrors())
	}
}

func TestRunCycleFetchPaletteViolationDoesNotCountAsFailure(t *testing.T) {
	s := testStore(t)
	tile := models.Tile{ID: 1, X: 0, Y: 0}
	outcome := fetcher.Outcome{
		Tile:   tile,
		Failed: true,
		Reason: "palette violation: color #ABCDEF not in palette",
		Err:    &palette.Violation{RGB: 0xABCDEF},
	}
	c := New(s, &fakeQueue{tile: &tile, found: true}, &fakeFetcher{outcome: outcome}, &fakeDiffer{})

	if err := c.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if c.ConsecutiveErrors() != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0 for a palette violation", c.ConsecutiveErrors())
	}
}

func TestDiffAllSkipsPaletteViolationWithoutCountingAsFailure(t *testing.T) {
	s := testStore(t)
	tile := models.Tile{ID: 420017, X: 42, Y: 17}
	p1 := createProjectAndRegister(t, s, tile.ID)
	p2 := createProjectAndRegister(t, s, tile.ID)

	fd := &fakeDiffer{errFor: map[int]error{
		p1: fmt.Errorf("differ: project %d: %w", p1, &palette.Violation{RGB: 0x123456}),
	}}
	c := New(s, &fakeQueue{tile: &tile, found: true}, &fakeFetcher{outcome: fetcher.Outcome{Tile: tile, Changed: true}}, fd)

	if err := c.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if fd.callCount() != 2 {
		t.Fatalf("Diff called %d times, want 2", fd.callCount())
	}
	if c.ConsecutiveErrors() != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0 (a palette violation should not count)", c.ConsecutiveErrors())
	}
	_ = p2
}

func TestDiffAllRunsEveryProjectDespiteOneFailing(t *testing.T) {
	s := testStore(t)
	tile := models.Tile{ID: 420017, X: 42, Y: 17}
	p1 := createProjectAndRegister(t, s, tile.ID)
	p2 := createProjectAndRegister(t, s, tile.ID)

	fd := &fakeDiffer{errFor: map[int]error{p1: errTest("diff failed")}}
	c := New(s, &fakeQueue{tile: &tile, found: true}, &fakeFetcher{outcome: fetcher.Outcome{Tile: tile, Changed: true}}, fd)

	err := c.RunCycle(context.Background())
	if err == nil {
		t.Fatal("expected a joined error from the failing project")
	}
	if fd.callCount() != 2 {
		t.Fatalf("Diff called %d times, want 2 even though project %d failed", fd.callCount(), p1)
	}
	_ = p2
}

type errTest string

func (e errTest) Error() string { return string(e) }
