package helpers

import (
	"strconv"
	"strings"
	"time"
)

// ShortRevision shortens full commit hashes to 12 characters and leaves branch names alone.
func ShortRevision(rev string) string {
	if len(rev) == 40 && strings.Trim(rev, "0123456789abcdef") == "" {
		return rev[:12]
	}
	return rev
}

// FormatTime renders a timestamp in the local zone with a relative suffix, e.g.
// "2026-03-01 14:02:11 (3 hours ago)".
func FormatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05") + " (" + relative(time.Since(t)) + ")"
}

func relative(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	default:
		return plural(int(d.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
