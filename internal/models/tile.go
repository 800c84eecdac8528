package models

import "time"

// Tile is one 1000x1000 cell of the canvas lattice, cached locally.
type Tile struct {
	// ID is x*10000 + y, matching geometry.Tile.ID.
	ID int64 `gorm:"primaryKey;autoIncrement:false"`
	X  int   `gorm:"not null;index:idx_tiles_xy"`
	Y  int   `gorm:"not null;index:idx_tiles_xy"`

	// Heat is the scheduler's priority for this tile: HeatBurning (999)
	// means "never checked yet, visited first in every queue lap",
	// HeatInactive (0) means "no project cares",
	// anything else is a temperature bucket assignment from 1..K.
	Heat int `gorm:"not null;default:0;index"`

	LastChecked *time.Time
	LastUpdate  *time.Time
	ETag        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Tile) TableName() string { return "tiles" }

// TileProject records that a tile overlaps a project's watched region.
// Membership is derived from geometry and recomputed whenever a project's
// region changes; it is never edited directly by a person.
type TileProject struct {
	TileID    int64 `gorm:"primaryKey;autoIncrement:false"`
	ProjectID int   `gorm:"primaryKey;autoIncrement:false"`
}

func (TileProject) TableName() string { return "tile_projects" }
