// Package auth guards the admin API surface: a bearer JWT identifies the
// operator, and a revocation check lets an operator's token be invalidated
// before it expires.
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"edgegate/pkg/apierrors"
	"edgegate/pkg/httputil"
)

// Claims is the subset of an admin token's claims the gateway cares about.
type Claims struct {
	UserID string
	JTI    string
}

// JWTValidator validates a bearer token and extracts its claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RevocationChecker reports whether a token's JTI has been revoked ahead of
// its natural expiry.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type contextKeyUserID struct{}

// UserID retrieves the authenticated admin user id from the context, or ""
// if the request never passed through RequireAuth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyUserID{}).(string)
	return id
}

// RSAValidator validates RS256-signed admin tokens against a fixed public
// key; operator tokens are issued out-of-band and never by this process.
type RSAValidator struct {
	publicKey *rsa.PublicKey
}

// NewRSAValidator parses a PEM-encoded RSA public key.
func NewRSAValidator(pemKey []byte) (*RSAValidator, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemKey)
	if err != nil {
		return nil, err
	}
	return &RSAValidator{publicKey: key}, nil
}

type registeredClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ValidateToken parses and verifies tokenString, returning its claims.
func (v *RSAValidator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &registeredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("auth: unexpected signing method")
		}
		return v.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	return &Claims{UserID: claims.UserID, JTI: claims.ID}, nil
}

// RequireAuth guards a handler behind a valid, unrevoked bearer token.
// revocationChecker may be nil to skip the revocation check entirely.
func RequireAuth(validator JWTValidator, revocationChecker RevocationChecker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, apierrors.New(apierrors.InvalidClient, "missing or malformed Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				if log != nil {
					log.WarnContext(r.Context(), "admin auth: invalid token", "error", err)
				}
				httputil.WriteError(w, apierrors.New(apierrors.InvalidClient, "invalid or expired token"))
				return
			}

			if revocationChecker != nil {
				if claims.JTI == "" {
					httputil.WriteError(w, apierrors.New(apierrors.InvalidClient, "token missing jti"))
					return
				}
				revoked, err := revocationChecker.IsTokenRevoked(r.Context(), claims.JTI)
				if err != nil {
					if log != nil {
						log.ErrorContext(r.Context(), "admin auth: revocation check failed", "error", err)
					}
					httputil.WriteError(w, apierrors.New(apierrors.TransientStore, "failed to validate token"))
					return
				}
				if revoked {
					httputil.WriteError(w, apierrors.New(apierrors.InvalidClient, "token has been revoked"))
					return
				}
			}

			ctx := context.WithValue(r.Context(), contextKeyUserID{}, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
