package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wplace-tools/pixelwatch/internal/models"
)

// ErrNotFound is returned when a lookup by ID finds no row.
var ErrNotFound = errors.New("store: not found")

// GetProject fetches a project by ID, with its owning Person preloaded for
// log-message attribution.
func (s *Store) GetProject(id int) (*models.Project, error) {
	var p models.Project
	err := s.db.Preload("Owner").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("store: get project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project %d: %w", id, err)
	}
	return &p, nil
}

// LookupOverlappingProjects returns every non-inactive project whose
// watched region overlaps the given tile. Called once per changed tile;
// it is the query-driven replacement for an in-memory spatial index.
func (s *Store) LookupOverlappingProjects(tileID int64) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.
		Preload("Owner").
		Joins("JOIN tile_projects ON tile_projects.project_id = projects.id").
		Where("tile_projects.tile_id = ? AND projects.state != ?", tileID, models.ProjectInactive).
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("store: lookup overlapping projects for tile %d: %w", tileID, err)
	}
	return projects, nil
}

// ProjectStatsDelta carries the outcome of one diff cycle for a project.
// Fields are deltas or new observations, not absolute totals; UpdateProjectStats
// folds them into the stored running totals.
type ProjectStatsDelta struct {
	CompletionPercent    float64
	Progress             int
	Regress              int
	Streak               models.Streak
	LogMessage           string
	RecentRatePerHour    float64
	RecentRateWindowFrom time.Time
	CheckedAt            time.Time
}

// UpdateProjectStats folds a diff outcome into a project's running totals.
func (s *Store) UpdateProjectStats(id int, delta ProjectStatsDelta) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return updateProjectStatsTx(tx, id, delta)
	})
}

func updateProjectStatsTx(tx *gorm.DB, id int, delta ProjectStatsDelta) error {
	var p models.Project
	if err := tx.First(&p, "id = ?", id).Error; err != nil {
		return fmt.Errorf("store: update project stats %d: load: %w", id, err)
	}

	updates := map[string]interface{}{
		"total_progress":              p.TotalProgress + delta.Progress,
		"total_regress":               p.TotalRegress + delta.Regress,
		"streak":                      delta.Streak,
		"last_log_message":            delta.LogMessage,
		"last_check":                  delta.CheckedAt,
		"recent_rate_pixels_per_hour": delta.RecentRatePerHour,
		"recent_rate_window_start":    delta.RecentRateWindowFrom,
	}
	if delta.CompletionPercent > p.MaxCompletionPercent {
		updates["max_completion_percent"] = delta.CompletionPercent
	}
	if delta.Regress > 0 && delta.Regress > p.LargestRegressPixels {
		updates["largest_regress_pixels"] = delta.Regress
		updates["largest_regress_time"] = delta.CheckedAt
	}

	if err := tx.Model(&models.Project{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("store: update project stats %d: %w", id, err)
	}
	return nil
}

// AppendHistory inserts one HistoryChange row. History is append-only.
func (s *Store) AppendHistory(record *models.HistoryChange) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("store: append history for project %d: %w", record.ProjectID, err)
	}
	return nil
}

// CommitDiff folds a diff outcome's stats into the project and appends its
// history row in a single transaction, so a reader never observes updated
// totals without the history event that produced them, or vice versa.
func (s *Store) CommitDiff(id int, delta ProjectStatsDelta, record *models.HistoryChange) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := updateProjectStatsTx(tx, id, delta); err != nil {
			return err
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("store: append history for project %d: %w", id, err)
		}
		return nil
	})
}

// RecentHistory returns the most recent n HistoryChange rows for a project,
// newest first.
func (s *Store) RecentHistory(projectID int, n int) ([]models.HistoryChange, error) {
	var rows []models.HistoryChange
	err := s.db.Where("project_id = ?", projectID).Order("id DESC").Limit(n).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent history for project %d: %w", projectID, err)
	}
	return rows, nil
}

// RegisterTileProject records that a tile overlaps a project's region.
func (s *Store) RegisterTileProject(tileID int64, projectID int) error {
	tp := models.TileProject{TileID: tileID, ProjectID: projectID}
	err := s.db.Clauses(onConflictDoNothing("tile_id", "project_id")).Create(&tp).Error
	if err != nil {
		return fmt.Errorf("store: register tile %d for project %d: %w", tileID, projectID, err)
	}
	return nil
}

// UnregisterTileProject removes a tile/project overlap record.
func (s *Store) UnregisterTileProject(tileID int64, projectID int) error {
	err := s.db.Where("tile_id = ? AND project_id = ?", tileID, projectID).Delete(&models.TileProject{}).Error
	if err != nil {
		return fmt.Errorf("store: unregister tile %d for project %d: %w", tileID, projectID, err)
	}
	return nil
}
