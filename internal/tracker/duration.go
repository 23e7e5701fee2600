package tracker

import "fmt"

// FormatDuration renders seconds as "{H}h {M}m {S}s" without padding and
// without carrying hours into days.
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
}
