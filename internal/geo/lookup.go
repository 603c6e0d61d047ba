// Package geo provides the out-of-core geolocation collaborator interface
// PolicyGate depends on, plus one trivial static
// implementation for local development and tests. Wiring a real
// MaxMind/IP2Location database is explicitly out of scope.
package geo

import (
	"context"
	"net"
	"sort"
	"strings"

	"edgegate/internal/policy"
)

// StaticLookup resolves a country from an ordered list of CIDR prefixes. It
// satisfies policy.GeoLookup when bound as a method value.
type StaticLookup struct {
	entries []entry
}

type entry struct {
	net     *net.IPNet
	country string
}

// NewStaticLookup builds a StaticLookup from a prefix -> country-code map.
// Longer prefixes are checked first so more specific entries win.
func NewStaticLookup(prefixToCountry map[string]string) (*StaticLookup, error) {
	sl := &StaticLookup{}
	for prefix, country := range prefixToCountry {
		_, n, err := net.ParseCIDR(prefix)
		if err != nil {
			return nil, err
		}
		sl.entries = append(sl.entries, entry{net: n, country: strings.ToUpper(country)})
	}
	sort.Slice(sl.entries, func(i, j int) bool {
		si, _ := sl.entries[i].net.Mask.Size()
		sj, _ := sl.entries[j].net.Mask.Size()
		return si > sj
	})
	return sl, nil
}

// Lookup implements policy.GeoLookup.
func (sl *StaticLookup) Lookup(_ context.Context, ip string) (*policy.GeoResult, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, nil
	}
	for _, e := range sl.entries {
		if e.net.Contains(parsed) {
			return &policy.GeoResult{Country: e.country}, nil
		}
	}
	return nil, nil
}
