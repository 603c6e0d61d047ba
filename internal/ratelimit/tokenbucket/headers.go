package tokenbucket

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// Headers computes the X-RateLimit-* trio for a completed Step. They are set
// on both the success and the rejection path so a caller can always surface
// the client's current standing.
func Headers(w http.ResponseWriter, step Step, capacity int, refillRate float64, now time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(capacity))

	nowSecs := float64(now.UnixMilli()) / 1000

	if step.Allowed {
		remaining := int(math.Floor(math.Max(0, step.TokensLeft)))
		reset := math.Ceil(nowSecs + (float64(capacity)-step.NewTokens+1)/refillRate)
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(int64(reset), 10))
		return
	}

	deficit := 1 - step.NewTokens
	reset := math.Floor(nowSecs + math.Ceil(deficit/refillRate))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(int64(reset), 10))
}
