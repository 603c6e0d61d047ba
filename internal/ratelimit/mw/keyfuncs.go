package mw

import (
	"net/http"

	"edgegate/internal/ipresolve"
)

// ByClientIP keys the rate-limit identity off the resolved client IP
// (ipresolve.Middleware must run ahead of this stage in the chain).
func ByClientIP(r *http.Request) string {
	return ipresolve.ClientIP(r.Context())
}

// ByHeader keys the rate-limit identity off a request header, used for the
// partner API's per-API-key stage.
func ByHeader(name string) KeyFunc {
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}

// ByContextValue keys the rate-limit identity off an arbitrary context
// lookup, used for the admin API's per-user stage.
func ByContextValue(lookup func(r *http.Request) string) KeyFunc {
	return lookup
}
