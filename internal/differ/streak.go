package differ

import "github.com/wplace-tools/pixelwatch/internal/models"

// classifyStreak looks at the net pixel change (progress minus regress) of
// the most recent events, newest first, and classifies the trend. A streak
// needs at least one nonzero event to be anything but none; all-nonnegative
// is progress, all-nonpositive is regress, and a sign flip anywhere in the
// window is mixed.
func classifyStreak(nets []int) models.Streak {
	allNonNeg, allNonPos := true, true
	sawPositive, sawNegative := false, false

	for _, n := range nets {
		if n < 0 {
			allNonNeg = false
			sawNegative = true
		}
		if n > 0 {
			allNonPos = false
			sawPositive = true
		}
	}

	switch {
	case allNonNeg && sawPositive:
		return models.StreakProgress
	case allNonPos && sawNegative:
		return models.StreakRegress
	case sawPositive || sawNegative:
		return models.StreakMixed
	default:
		return models.StreakNone
	}
}
