// Package differ compares a project's watched region against its target
// image and folds the result into the project's running statistics.
package differ

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/wplace-tools/pixelwatch/internal/config"
	"github.com/wplace-tools/pixelwatch/internal/geometry"
	"github.com/wplace-tools/pixelwatch/internal/models"
	"github.com/wplace-tools/pixelwatch/internal/palette"
	"github.com/wplace-tools/pixelwatch/internal/store"
)

// Differ compares one project's current canvas state against its target and
// previous snapshot, and commits the outcome.
type Differ struct {
	nest    config.Nest
	palette *palette.Table
	store   *store.Store
}

// New builds a Differ.
func New(nest config.Nest, pal *palette.Table, s *store.Store) *Differ {
	return &Differ{nest: nest, palette: pal, store: s}
}

// Result summarizes one Diff call. NoOp is true when nothing changed and the
// call made no writes.
type Result struct {
	Status            models.DiffStatus
	CompletionPercent float64
	DeltaProgress     int
	DeltaRegress      int
	NoOp              bool
}

// Diff assembles the project's current region from cached tiles, compares it
// against the project's target and previous snapshot, and — unless nothing
// changed — commits updated stats, a history row, and a new snapshot.
func (d *Differ) Diff(project models.Project) (Result, error) {
	rect := geometry.NewRectangle(geometry.Point{X: project.X, Y: project.Y}, geometry.Size{W: project.W, H: project.H})
	tx, ty, px, py := rect.Point().To4()

	target, err := loadTargetImage(d.nest, d.palette, tx, ty, px, py, project.OwnerID)
	if err != nil {
		return Result{}, fmt.Errorf("differ: project %d: %w", project.ID, err)
	}
	current, err := assembleCurrentImage(d.nest, d.palette, rect)
	if err != nil {
		return Result{}, fmt.Errorf("differ: project %d: %w", project.ID, err)
	}
	previous, err := loadOrBlankSnapshot(d.nest, d.palette, rect.Size(), tx, ty, px, py, project.OwnerID)
	if err != nil {
		return Result{}, fmt.Errorf("differ: project %d: %w", project.ID, err)
	}

	matched, total, deltaProgress, deltaRegress := comparePixels(target, current, previous)

	var completionPercent float64
	if total > 0 {
		completionPercent = float64(matched) / float64(total)
	}
	status := models.DiffNotStarted
	switch {
	case total > 0 && matched == total:
		status = models.DiffComplete
	case matched > 0:
		status = models.DiffInProgress
	}

	result := Result{
		Status:            status,
		CompletionPercent: completionPercent,
		DeltaProgress:     deltaProgress,
		DeltaRegress:      deltaRegress,
	}
	if deltaProgress+deltaRegress == 0 {
		result.NoOp = true
		return result, nil
	}

	recent, err := d.store.RecentHistory(project.ID, 4)
	if err != nil {
		return Result{}, fmt.Errorf("differ: project %d: %w", project.ID, err)
	}
	streak := classifyStreak(recentNets(deltaProgress, deltaRegress, recent))

	now := time.Now()
	rate, windowStart := updateRate(project.RecentRatePixelsPerHour, project.RecentRateWindowStart, deltaProgress, deltaRegress, now)

	delta := store.ProjectStatsDelta{
		CompletionPercent:    completionPercent,
		Progress:             deltaProgress,
		Regress:              deltaRegress,
		Streak:               streak,
		LogMessage:           formatLogMessage(project, matched, total, deltaProgress, deltaRegress, completionPercent, rate),
		RecentRatePerHour:    rate,
		RecentRateWindowFrom: windowStart,
		CheckedAt:            now,
	}
	record := &models.HistoryChange{
		ProjectID:         project.ID,
		Timestamp:         now,
		Status:            status,
		PixelsRemaining:   total - matched,
		CompletionPercent: completionPercent,
		DeltaProgress:     deltaProgress,
		DeltaRegress:      deltaRegress,
	}
	if err := d.store.CommitDiff(project.ID, delta, record); err != nil {
		return Result{}, fmt.Errorf("differ: project %d: %w", project.ID, err)
	}

	if err := writeSnapshot(d.nest, d.palette, tx, ty, px, py, project.OwnerID, current); err != nil {
		return Result{}, fmt.Errorf("differ: project %d: %w", project.ID, err)
	}

	return result, nil
}

// comparePixels walks target's pixels, treating index 0 ("no requirement
// here") as excluded from both the denominator and the delta counts.
func comparePixels(target, current, previous *image.Paletted) (matched, total, deltaProgress, deltaRegress int) {
	bounds := target.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			targetIdx := target.ColorIndexAt(x, y)
			if targetIdx == 0 {
				continue
			}
			total++

			nowMatch := current.ColorIndexAt(x, y) == targetIdx
			prevMatch := previous.ColorIndexAt(x, y) == targetIdx
			if nowMatch {
				matched++
			}
			if nowMatch && !prevMatch {
				deltaProgress++
			}
			if prevMatch && !nowMatch {
				deltaRegress++
			}
		}
	}
	return matched, total, deltaProgress, deltaRegress
}

func recentNets(deltaProgress, deltaRegress int, recent []models.HistoryChange) []int {
	nets := make([]int, 0, len(recent)+1)
	nets = append(nets, deltaProgress-deltaRegress)
	for _, r := range recent {
		nets = append(nets, r.DeltaProgress-r.DeltaRegress)
	}
	return nets
}

func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}
