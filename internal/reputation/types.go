// Package reputation implements the IP-reputation evaluator: adapter
// fan-out over pluggable third-party providers, request coalescing via an
// in-process singleflight.Group plus a Redis single-flight lock across
// replicas, and verdict caching with TTL.
package reputation

import "context"

// Result is one adapter's reputation finding for an IP. All fields are
// optional — the DTO is a record with all-nullable fields; "missing score"
// is treated as 0 only inside verdict computation.
type Result struct {
	Score      *int      `json:"score,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	LastSeen   *int64    `json:"lastSeen,omitempty"`
	IsProxy    *bool     `json:"isProxy,omitempty"`
	IsTor      *bool     `json:"isTor,omitempty"`
	IsVpn      *bool     `json:"isVpn,omitempty"`
}

// Verdict is the cached aggregate of every adapter's Result for one IP.
type Verdict []Result

// MaxScore returns the maximum score across every result in the verdict,
// treating a missing score as 0; an empty verdict scores 0.
func (v Verdict) MaxScore() int {
	max := 0
	for _, r := range v {
		score := 0
		if r.Score != nil {
			score = *r.Score
		}
		if score > max {
			max = score
		}
	}
	return max
}

// Adapter is the contract every third-party reputation provider implements.
// Check returns an error on a transport, HTTP or decoding failure;
// AdapterSet logs that error and substitutes an empty Result, so no adapter
// error escapes the set.
type Adapter interface {
	Name() string
	Check(ctx context.Context, ip string) (Result, error)
}
