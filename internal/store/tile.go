package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/wplace-tools/pixelwatch/internal/models"
)

// UpsertTile inserts a tile or updates its mutable fields if it already
// exists. Heat is intentionally excluded: only the queue may change a
// tile's heat, via SetTileHeat.
func (s *Store) UpsertTile(tile models.Tile) error {
	err := s.db.Clauses(onConflictUpdate("id", "last_checked", "last_update", "e_tag", "x", "y")).
		Create(&tile).Error
	if err != nil {
		return fmt.Errorf("store: upsert tile %d: %w", tile.ID, err)
	}
	return nil
}

// SetTileHeat reassigns a single tile's heat bucket.
func (s *Store) SetTileHeat(tileID int64, heat int) error {
	err := s.db.Model(&models.Tile{}).Where("id = ?", tileID).Update("heat", heat).Error
	if err != nil {
		return fmt.Errorf("store: set heat for tile %d: %w", tileID, err)
	}
	return nil
}

// SetTileHeatBatch reassigns many tiles' heat atomically, used by the
// queue's redistribution pass after a full cycle through the buckets.
func (s *Store) SetTileHeatBatch(heatByTileID map[int64]int) error {
	if len(heatByTileID) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for id, heat := range heatByTileID {
			if err := tx.Model(&models.Tile{}).Where("id = ?", id).Update("heat", heat).Error; err != nil {
				return fmt.Errorf("store: batch set heat for tile %d: %w", id, err)
			}
		}
		return nil
	})
}

// ActiveTiles returns every tile with non-zero heat (burning or any
// temperature bucket), ordered by last_update descending. The queue uses
// this ordering to re-slice tiles into buckets during redistribution.
func (s *Store) ActiveTiles() ([]models.Tile, error) {
	var tiles []models.Tile
	err := s.db.Where("heat != ?", models.HeatInactive).
		Order("last_update DESC, id ASC").
		Find(&tiles).Error
	if err != nil {
		return nil, fmt.Errorf("store: list active tiles: %w", err)
	}
	return tiles, nil
}

// QueueScan returns the tiles in a single heat bucket, already ordered per
// the selection contract for that bucket:
//
//   - burning (models.HeatBurning): ordered by the oldest first_seen among
//     each tile's active projects, tile id ascending as a tiebreak.
//   - any temperature bucket: ordered by last_checked ascending (nulls
//     first), tile id ascending as a tiebreak.
func (s *Store) QueueScan(heat int) ([]models.Tile, error) {
	if heat == models.HeatBurning {
		return s.burningTilesInOrder()
	}
	var tiles []models.Tile
	err := s.db.Where("heat = ?", heat).
		Order("last_checked ASC, id ASC").
		Find(&tiles).Error
	if err != nil {
		return nil, fmt.Errorf("store: queue scan heat %d: %w", heat, err)
	}
	return tiles, nil
}

func (s *Store) burningTilesInOrder() ([]models.Tile, error) {
	var tiles []models.Tile
	err := s.db.Table("tiles").
		Select("tiles.*").
		Joins("JOIN tile_projects ON tile_projects.tile_id = tiles.id").
		Joins("JOIN projects ON projects.id = tile_projects.project_id AND projects.state = ?", models.ProjectActive).
		Where("tiles.heat = ?", models.HeatBurning).
		Group("tiles.id").
		Order("MIN(projects.first_seen) ASC, tiles.id ASC").
		Find(&tiles).Error
	if err != nil {
		return nil, fmt.Errorf("store: burning tile order: %w", err)
	}
	return tiles, nil
}

// LookupTile fetches a tile by ID.
func (s *Store) LookupTile(id int64) (*models.Tile, error) {
	var t models.Tile
	err := s.db.First(&t, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("store: lookup tile %d: %w", id, err)
	}
	return &t, nil
}
