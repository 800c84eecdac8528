package differ

import (
	"fmt"
	"strings"

	"github.com/wplace-tools/pixelwatch/internal/models"
)

// formatLogMessage builds the short human-readable summary stored as a
// project's last_log_message:
//
//	"<owner>/<project>: <matched>/<total>px (<pct>% complete) [+<Δp>/-<Δr>] ETA <days>d<hours>h"
//
// The "[+/-]" clause is omitted when both deltas are zero.
func formatLogMessage(project models.Project, matched, total, deltaProgress, deltaRegress int, completionPercent, ratePerHour float64) string {
	owner := project.Owner.DisplayName
	if owner == "" {
		owner = fmt.Sprintf("person %d", project.OwnerID)
	}

	parts := []string{
		fmt.Sprintf("%s/%s:", owner, project.Name),
		fmt.Sprintf("%d/%dpx (%.0f%% complete)", matched, total, completionPercent*100),
	}
	if deltaProgress != 0 || deltaRegress != 0 {
		parts = append(parts, fmt.Sprintf("[+%d/-%d]", deltaProgress, deltaRegress))
	}

	days, hours := etaDaysHours(total-matched, ratePerHour)
	parts = append(parts, fmt.Sprintf("ETA %dd%dh", days, hours))

	return strings.Join(parts, " ")
}
