package differ

import (
	"math"
	"time"
)

// rateWindow is how long a rate estimate accumulates before it resets.
const rateWindow = 24 * time.Hour

// updateRate recomputes a project's decaying net-pixel-rate estimate:
// this cycle's net change (progress minus regress) over the time elapsed
// since the window started. A window older than rateWindow is discarded and
// restarted at zero, so a project that has been stalled for a day doesn't
// keep reporting a rate from its last burst of activity.
func updateRate(prevRate float64, prevWindowStart *time.Time, deltaProgress, deltaRegress int, now time.Time) (rate float64, windowStart time.Time) {
	rate = prevRate
	if prevWindowStart != nil && !prevWindowStart.IsZero() {
		windowStart = *prevWindowStart
		if elapsedHours := now.Sub(windowStart).Hours(); elapsedHours > 0 {
			net := deltaProgress - deltaRegress
			rate = float64(net) / elapsedHours
		}
	} else {
		windowStart = now
	}

	if now.Sub(windowStart) > rateWindow {
		windowStart = now
		rate = 0
	}
	return rate, windowStart
}

// etaDaysHours estimates the time remaining to finish a project at its
// current rate, split into whole days and hours. A rate that isn't
// positive (no progress yet, or net regress) can't project an arrival, so
// it reports 0d0h rather than a misleading or negative estimate.
func etaDaysHours(pixelsRemaining int, ratePerHour float64) (days, hours int) {
	if pixelsRemaining <= 0 || ratePerHour <= 0 {
		return 0, 0
	}
	totalHours := int(math.Round(float64(pixelsRemaining) / ratePerHour))
	return totalHours / 24, totalHours % 24
}
