package progress

import (
	"fmt"
	"strings"

	"github.com/cwygoda/fetchd/internal/domain"
)

const barWidth = 10

// FormatSize renders a byte count as a human readable size, 1024-based
// with one decimal ("1.5 KB", "1.0 GB"). Zero is special-cased as "0 B".
func FormatSize(n int64) string {
	if n == 0 {
		return "0 B"
	}
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", size)
}

// FormatSpeed renders a transfer rate.
func FormatSpeed(bytesPerSec int64) string {
	return FormatSize(bytesPerSec) + "/s"
}

// EstimateTime renders the remaining transfer time, or "N/A" when the
// speed is zero or nothing remains.
func EstimateTime(completed, total, speed int64) string {
	if speed == 0 || total <= completed {
		return "N/A"
	}
	remaining := (total - completed) / speed
	switch {
	case remaining < 60:
		return fmt.Sprintf("%ds", remaining)
	case remaining < 3600:
		return fmt.Sprintf("%dm %ds", remaining/60, remaining%60)
	default:
		return fmt.Sprintf("%dh %dm", remaining/3600, (remaining%3600)/60)
	}
}

// Percent computes the completed fraction as a percentage clamped to
// [0, 100]. A zero total counts as no progress.
func Percent(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(completed) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Bar renders a fixed-width proportional progress bar.
func Bar(pct float64) string {
	filled := int(pct) / barWidth
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// Render produces the progress message for one status poll. Identical
// input yields identical output, which the tracker relies on to suppress
// redundant edits.
func Render(name string, st *domain.DownloadStatus) string {
	pct := Percent(st.CompletedBytes, st.TotalBytes)
	return fmt.Sprintf(
		"%s\nProgress: %.1f%%\n[%s]\nStatus: %s\nSize: %s / %s\nSpeed: %s\nETA: %s",
		name,
		pct,
		Bar(pct),
		st.Status,
		FormatSize(st.CompletedBytes),
		FormatSize(st.TotalBytes),
		FormatSpeed(st.Speed),
		EstimateTime(st.CompletedBytes, st.TotalBytes, st.Speed),
	)
}

// RenderCompleted produces the terminal success message.
func RenderCompleted(name string, total int64) string {
	return fmt.Sprintf("Completed: %s\nSize: %s", name, FormatSize(total))
}

// RenderFailed produces the terminal failure message.
func RenderFailed(name, errMsg string) string {
	if errMsg == "" {
		errMsg = "Unknown error"
	}
	return fmt.Sprintf("Failed: %s\nError: %s", name, errMsg)
}

// RenderRemoved produces the terminal message for an externally removed
// download.
func RenderRemoved(name string) string {
	return fmt.Sprintf("Removed: %s", name)
}
