package policy

import (
	"context"

	"edgegate/internal/ipresolve"
	"edgegate/pkg/apierrors"
)

// GeoResult is the minimal geolocation fact PolicyGate needs.
type GeoResult struct {
	Country string
}

// GeoLookup is the out-of-core synchronous collaborator interface. Returning
// (nil, nil) means "no geo data" and is treated the same as a non-fatal
// lookup error.
type GeoLookup func(ctx context.Context, ip string) (*GeoResult, error)

// Gate enforces the six-step allow/deny decision using a Cache snapshot and
// an external geo lookup.
type Gate struct {
	cache  *Cache
	lookup GeoLookup
}

// NewGate builds a Gate. lookup may be nil, in which case country blocking
// never fires (equivalent to every lookup failing).
func NewGate(cache *Cache, lookup GeoLookup) *Gate {
	return &Gate{cache: cache, lookup: lookup}
}

// Check runs the decision steps in order:
//  1. missing ClientIP -> reject 400
//  2. private/loopback/link-local -> pass (internal traffic)
//  3. allowlisted -> pass (allowlist dominates)
//  4. denylisted (exact or CIDR) -> reject 403
//  5. country blocked -> reject 403
//  6. else pass
func (g *Gate) Check(ctx context.Context, ip string) *apierrors.Error {
	if ip == "" {
		return apierrors.New(apierrors.InvalidClient, "missing client IP")
	}
	if ipresolve.IsPrivateOrLoopback(ip) {
		return nil
	}
	if g.cache.IsAllowlisted(ip) {
		return nil
	}
	if g.cache.IsDenylisted(ip) {
		return apierrors.New(apierrors.PolicyBlock, "IP denylisted")
	}
	if g.lookup != nil {
		if res, err := g.lookup(ctx, ip); err == nil && res != nil && res.Country != "" {
			if g.cache.IsCountryBlocked(res.Country) {
				return apierrors.New(apierrors.PolicyBlock, "country blocked")
			}
		}
		// lookup failure is non-fatal: behaves as "no geo data".
	}
	return nil
}
