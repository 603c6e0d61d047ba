package fixedwindow

import (
	"net/http"
	"strconv"
	"time"
)

// Headers computes the <prefix>-Limit/-Remaining/-Reset trio from a
// completed Step. prefix lets callers scope the headers per stage, e.g.
// "X-RateLimit" for ingress traffic or "X-Admin-RateLimit" for the admin
// API.
func Headers(w http.ResponseWriter, step Step, limit int, prefix string, now time.Time) {
	remaining := int64(limit) - step.Count
	if remaining < 0 {
		remaining = 0
	}
	reset := now.Add(time.Duration(step.TTLSeconds) * time.Second).Unix()

	w.Header().Set(prefix+"-Limit", strconv.Itoa(limit))
	w.Header().Set(prefix+"-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set(prefix+"-Reset", strconv.FormatInt(reset, 10))
}

// Allowed reports whether the window's counter is still within limit.
func Allowed(step Step, limit int) bool {
	return step.Count <= int64(limit)
}
