package models

import (
	"fmt"
	"time"
)

// FormatRelativeTime renders a timestamp as a human-readable offset from
// now, e.g. "just now", "5 minutes ago", "2 weeks ago".
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	days := int(diff.Hours() / 24)

	switch {
	case days == 0:
		hours := int(diff.Hours())
		if hours == 0 {
			minutes := int(diff.Minutes())
			if minutes == 0 {
				return "just now"
			}
			return fmt.Sprintf("%d minute%s ago", minutes, plural(minutes))
		}
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	case days == 1:
		return "1 day ago"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		weeks := days / 7
		return fmt.Sprintf("%d week%s ago", weeks, plural(weeks))
	default:
		months := days / 30
		return fmt.Sprintf("%d month%s ago", months, plural(months))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
