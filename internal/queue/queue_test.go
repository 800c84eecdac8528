package queue

import (
	"testing"
	"time"

	"github.com/wplace-tools/pixelwatch/internal/models"
	"github.com/wplace-tools/pixelwatch/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := s.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSelectNextReturnsNothingOnEmptyQueue(t *testing.T) {
	s := testStore(t)
	q := New(s, MinHottestBucketSize)
	if err := q.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, found, err := q.SelectNext()
	if err != nil {
		t.Fatalf("SelectNext: %v", err)
	}
	if found {
		t.Fatal("expected no tile on an empty queue")
	}
}

func TestSelectNextVisitsBurningBeforeTemperature(t *testing.T) {
	s := testStore(t)
	now := time.Unix(1000, 0)
	mustCreate(t, s, &models.Tile{ID: 1, X: 0, Y: 1, Heat: models.HeatBurning})
	mustCreate(t, s, &models.Tile{ID: 2, X: 0, Y: 2, Heat: 1, LastUpdate: &now})

	if err := s.RegisterTileProject(1, createActiveProject(t, s)); err != nil {
		t.Fatalf("RegisterTileProject: %v", err)
	}

	q := New(s, MinHottestBucketSize)
	if err := q.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tile, found, err := q.SelectNext()
	if err != nil {
		t.Fatalf("SelectNext: %v", err)
	}
	if !found || tile.ID != 1 {
		t.Fatalf("first selection = %v, want tile 1 (burning)", tile)
	}
}

func TestRebalanceAssignsHottestBucketToMostRecentTiles(t *testing.T) {
	s := testStore(t)
	const n = 30
	for i := 0; i < n; i++ {
		ts := time.Unix(int64(i), 0)
		mustCreate(t, s, &models.Tile{ID: int64(i + 1), X: 0, Y: i + 1, Heat: models.HeatBurning, LastChecked: &ts, LastUpdate: &ts})
	}

	q := New(s, MinHottestBucketSize)
	if err := q.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mostRecent, err := s.LookupTile(n) // i = n-1 has the largest timestamp
	if err != nil {
		t.Fatalf("LookupTile: %v", err)
	}
	if mostRecent.Heat != 1 {
		t.Errorf("most recently updated tile has heat %d, want 1 (hottest)", mostRecent.Heat)
	}

	oldest, err := s.LookupTile(1)
	if err != nil {
		t.Fatalf("LookupTile: %v", err)
	}
	if oldest.Heat == 1 {
		t.Errorf("oldest tile should not land in the hottest bucket, got heat %d", oldest.Heat)
	}
}

func createActiveProject(t *testing.T, s *store.Store) int {
	t.Helper()
	person := &models.Person{DisplayName: "ada"}
	if err := s.DB().Create(person).Error; err != nil {
		t.Fatalf("create person: %v", err)
	}
	proj := &models.Project{ID: 1 + int(person.ID)*1000, OwnerID: person.ID, Name: "flag", State: models.ProjectActive, FirstSeen: time.Unix(0, 0)}
	if err := s.DB().Create(proj).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return proj.ID
}

func mustCreate(t *testing.T, s *store.Store, tile *models.Tile) {
	t.Helper()
	if err := s.UpsertTile(*tile); err != nil {
		t.Fatalf("UpsertTile: %v", err)
	}
	if tile.Heat != models.HeatInactive {
		if err := s.SetTileHeat(tile.ID, tile.Heat); err != nil {
			t.Fatalf("SetTileHeat: %v", err)
		}
	}
}
