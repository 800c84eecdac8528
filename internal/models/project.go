package models

import "time"

// Project is a rectangular region of the canvas with a target image that a
// person wants painted.
type Project struct {
	// ID is a random four-digit identifier assigned at creation, not an
	// auto-increment sequence, so IDs stay short and memorable in chat
	// notifications.
	ID      int          `gorm:"primaryKey;autoIncrement:false"`
	OwnerID uint         `gorm:"not null;index"`
	Owner   Person       `gorm:"foreignKey:OwnerID"`
	Name    string       `gorm:"not null"`
	State   ProjectState `gorm:"not null;default:0"`

	// Region, in absolute canvas pixel coordinates. Half-open: [X, X+W) x
	// [Y, Y+H).
	X int `gorm:"not null"`
	Y int `gorm:"not null"`
	W int `gorm:"not null"`
	H int `gorm:"not null"`

	// Completion and progress statistics, updated by store.UpdateProjectStats
	// after each diff.
	MaxCompletionPercent float64    `gorm:"not null;default:0"`
	TotalProgress        int        `gorm:"not null;default:0"`
	TotalRegress         int        `gorm:"not null;default:0"`
	LargestRegressPixels int        `gorm:"not null;default:0"`
	LargestRegressTime   *time.Time
	FirstSeen            time.Time
	LastCheck            *time.Time
	LastSnapshot         *time.Time
	Streak               Streak `gorm:"not null;default:0"`
	LastLogMessage       string

	// RecentRatePixelsPerHour and RecentRateWindowStart support an estimate
	// of the project's current pace (the latest net pixel change over the
	// hours since the window started), used to project a completion ETA. The
	// window restarts once it is older than 24 hours.
	RecentRatePixelsPerHour float64    `gorm:"not null;default:0"`
	RecentRateWindowStart   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Project) TableName() string { return "projects" }
