package ipresolve

import (
	"context"
	"net/http"
)

// contextKeyClientIP is an unexported context-key struct for the per-request
// resolved client IP.
type contextKeyClientIP struct{}

// Middleware resolves the client IP for every request and stores it in
// context before any policy stage runs.
func Middleware(r *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip := r.Resolve(req.RemoteAddr, req.Header)
			ctx := context.WithValue(req.Context(), contextKeyClientIP{}, ip)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// ClientIP retrieves the resolved client IP from the context, or "" if the
// middleware has not run.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(contextKeyClientIP{}).(string)
	return ip
}

// WithClientIP injects a client IP into a context directly, for unit tests
// of downstream stages that don't run the full middleware chain.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyClientIP{}, ip)
}
