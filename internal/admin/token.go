package admin

import (
	"crypto/subtle"
	"net/http"

	"edgegate/pkg/apierrors"
	"edgegate/pkg/httputil"
)

// RequireToken guards the admin surface with a single static bearer token,
// compared in constant time to avoid a timing side-channel. There is no
// role hierarchy behind it — every holder of the token can perform every
// admin operation.
func RequireToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("X-Admin-Token"))
			if len(got) != len(expected) || subtle.ConstantTimeCompare(got, expected) != 1 {
				httputil.WriteError(w, apierrors.New(apierrors.InvalidClient, "invalid admin token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
