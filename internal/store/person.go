package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/wplace-tools/pixelwatch/internal/models"
)

// ListActivePersons returns every person with at least one active project.
func (s *Store) ListActivePersons() ([]models.Person, error) {
	var people []models.Person
	if err := s.db.Where("active_projects_count > 0").Find(&people).Error; err != nil {
		return nil, fmt.Errorf("store: list active persons: %w", err)
	}
	return people, nil
}

// RecomputePersonTotals recalculates watched_tiles_count and
// active_projects_count for a single person from the current project and
// tile_project rows, and persists the result.
func (s *Store) RecomputePersonTotals(personID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return recomputePersonTotals(tx, personID)
	})
}

// RecomputeAllPersonTotals recomputes totals for every person. Called once
// at engine startup, since tile overlap can drift while the engine is down
// (an admin flow may add or remove projects out of band).
func (s *Store) RecomputeAllPersonTotals() error {
	var ids []uint
	if err := s.db.Model(&models.Person{}).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("store: list person ids: %w", err)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			if err := recomputePersonTotals(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func recomputePersonTotals(tx *gorm.DB, personID uint) error {
	var watched int64
	err := tx.Model(&models.TileProject{}).
		Joins("JOIN projects ON projects.id = tile_projects.project_id").
		Where("projects.owner_id = ? AND projects.state = ?", personID, models.ProjectActive).
		Distinct("tile_projects.tile_id").
		Count(&watched).Error
	if err != nil {
		return fmt.Errorf("store: count watched tiles for person %d: %w", personID, err)
	}

	var active int64
	err = tx.Model(&models.Project{}).
		Where("owner_id = ? AND state = ?", personID, models.ProjectActive).
		Count(&active).Error
	if err != nil {
		return fmt.Errorf("store: count active projects for person %d: %w", personID, err)
	}

	err = tx.Model(&models.Person{}).Where("id = ?", personID).Updates(map[string]interface{}{
		"watched_tiles_count":   watched,
		"active_projects_count": active,
	}).Error
	if err != nil {
		return fmt.Errorf("store: update totals for person %d: %w", personID, err)
	}
	return nil
}
