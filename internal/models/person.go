package models

import "time"

// Person is someone who owns projects and receives notifications.
type Person struct {
	ID           uint   `gorm:"primaryKey"`
	DisplayName  string `gorm:"not null"`
	ChatIdentity string `gorm:"index"`

	// AccessBitmask gates which admin operations this person may perform.
	// Interpretation of individual bits is out of scope here.
	AccessBitmask uint `gorm:"not null;default:0"`

	// WatchedTilesCount and ActiveProjectsCount are maintained by
	// store.RecomputePersonTotals, not written directly by callers.
	WatchedTilesCount   int `gorm:"not null;default:0"`
	ActiveProjectsCount int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Person) TableName() string { return "people" }
