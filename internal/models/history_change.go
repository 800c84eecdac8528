package models

import "time"

// HistoryChange is one append-only record of a project's diff outcome. Rows
// are never updated or deleted; the streak trend query scans the most
// recent rows for a project in ID order.
type HistoryChange struct {
	ID        uint      `gorm:"primaryKey"`
	ProjectID int       `gorm:"not null;index"`
	Timestamp time.Time `gorm:"not null"`

	Status            DiffStatus `gorm:"not null"`
	PixelsRemaining   int        `gorm:"not null"`
	CompletionPercent float64    `gorm:"not null"`
	DeltaProgress     int        `gorm:"not null"`
	DeltaRegress      int        `gorm:"not null"`
}

func (HistoryChange) TableName() string { return "history_changes" }
