package meeting

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FormatDuration renders d as "1h 1m 5s", dropping leading zero units.
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, total/60%60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// Truncate returns the first n runes of s followed by "..." when s is
// longer than n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// MeetingName derives the artifact prefix from t.
func MeetingName(t time.Time) string {
	return t.Format("meeting_20060102_150405")
}

// Mentions renders user IDs as "<@a>, <@b>".
func Mentions(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "<@" + id + ">"
	}
	return strings.Join(parts, ", ")
}

// namer issues meeting names that are unique within the process. A second
// name for the same second gets a numeric suffix.
type namer struct {
	mu   sync.Mutex
	last string
	n    int
}

func (nm *namer) next(t time.Time) string {
	base := MeetingName(t)
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if base != nm.last {
		nm.last, nm.n = base, 1
		return base
	}
	nm.n++
	return base + "_" + strconv.Itoa(nm.n)
}
