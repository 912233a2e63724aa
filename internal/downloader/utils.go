package downloader

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration renders d as "5s", "2m30s" or "1h15m".
func FormatDuration(d time.Duration) string {
	totalSeconds := int64(d.Seconds())

	if d < time.Minute {
		return fmt.Sprintf("%ds", totalSeconds)
	} else if d < time.Hour {
		mins := totalSeconds / 60
		secs := totalSeconds % 60
		return fmt.Sprintf("%dm%ds", mins, secs)
	}

	hours := totalSeconds / 3600
	mins := (totalSeconds % 3600) / 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}

// StringsOrFallback returns the first non-empty value.
func StringsOrFallback(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
