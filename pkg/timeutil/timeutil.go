package timeutil

import (
	"fmt"
	"math"
	"strings"
)

// FormatTime formats seconds as H:MM:SS (e.g. 0:01:30, 1:11:22).
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalSeconds := int(seconds)
	hours := totalSeconds / 3600
	mins := (totalSeconds % 3600) / 60
	secs := totalSeconds % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
}

// FormatPrecise formats seconds as H:MM:SS.mmm for the selection readout.
func FormatPrecise(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%s.%03d", FormatTime(float64(ms/1000)), ms%1000)
}

// Compact formats seconds as HHMMSS for file names.
func Compact(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d%02d%02d", total/3600, (total%3600)/60, total%60)
}

// ParseTimeToSeconds parses a time string in HH:MM:SS, MM:SS, or raw seconds format.
// Uses colon count: 2 colons = H:M:S, 1 colon = M:S, 0 colons = raw seconds.
// The seconds field may carry a fraction (1:02.5).
func ParseTimeToSeconds(timeStr string) (float64, error) {
	timeStr = strings.TrimSpace(timeStr)
	colons := strings.Count(timeStr, ":")

	switch colons {
	case 2:
		var hours, minutes int
		var seconds float64
		if n, err := fmt.Sscanf(timeStr, "%d:%d:%g", &hours, &minutes, &seconds); n == 3 && err == nil && valid(minutes, seconds) {
			return float64(hours*3600+minutes*60) + seconds, nil
		}
	case 1:
		var minutes int
		var seconds float64
		if n, err := fmt.Sscanf(timeStr, "%d:%g", &minutes, &seconds); n == 2 && err == nil && valid(minutes, seconds) {
			return float64(minutes*60) + seconds, nil
		}
	case 0:
		var secs float64
		if n, err := fmt.Sscanf(timeStr, "%g", &secs); n == 1 && err == nil && secs >= 0 {
			return secs, nil
		}
	}

	return 0, fmt.Errorf("expected HH:MM:SS, MM:SS, or seconds, got '%s'", timeStr)
}

func valid(minutes int, seconds float64) bool {
	return minutes >= 0 && seconds >= 0 && seconds < 60
}
