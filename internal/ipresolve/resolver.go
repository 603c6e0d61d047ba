// Package ipresolve derives the trusted client IP for an inbound request,
// normalize the socket address, then prefer
// cf-connecting-ip behind a trusted proxy, then x-real-ip, then the first
// public entry of x-forwarded-for, falling back to the socket address.
package ipresolve

import (
	"net"
	"net/http"
	"strings"
)

// Resolver is a pure function of the socket address and forwarded headers —
// no I/O, fully unit-testable without a running server.
type Resolver struct {
	trustedProxies []*net.IPNet
}

// New builds a Resolver that trusts cf-connecting-ip only when the request's
// socket address falls within one of the given CIDRs.
func New(trustedProxies []*net.IPNet) *Resolver {
	return &Resolver{trustedProxies: trustedProxies}
}

// FromCIDRStrings parses a list of CIDR literals into a Resolver, a
// convenience used by tests and by cmd/gatewayd wiring.
func FromCIDRStrings(cidrs []string) (*Resolver, error) {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return New(nets), nil
}

// Resolve runs the five-step client-IP resolution algorithm. It never panics; an
// unresolvable IP yields an empty string.
func (r *Resolver) Resolve(remoteAddr string, headers http.Header) string {
	socketIP := normalizeSocketAddr(remoteAddr)

	if socketIP != "" && r.isTrustedProxy(socketIP) {
		if cf := strings.TrimSpace(headers.Get("cf-connecting-ip")); cf != "" && isPublic(cf) {
			return cf
		}
	}

	if xri := strings.TrimSpace(headers.Get("x-real-ip")); xri != "" && isPublic(xri) {
		return xri
	}

	if xff := headers.Get("x-forwarded-for"); xff != "" {
		parts := strings.Split(xff, ",")
		first := ""
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if i == 0 {
				first = p
			}
			if isPublic(p) {
				return p
			}
		}
		if first != "" {
			return first
		}
	}

	return socketIP
}

func (r *Resolver) isTrustedProxy(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range r.trustedProxies {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// normalizeSocketAddr strips the port from a "host:port" remote address and
// unmaps an IPv4-mapped-IPv6 address back to dotted-quad form.
func normalizeSocketAddr(remoteAddr string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
		return ip.String()
	}
	return host
}

// isPublic reports whether candidate is a syntactically valid address that
// is not private (RFC 1918 / ULA fd00::/8), loopback, link-local
// (169.254/16, fe80::/10), reserved(other), or multicast. Syntax failures
// count as "not public".
func isPublic(candidate string) bool {
	ip := net.ParseIP(candidate)
	if ip == nil {
		return false
	}
	switch {
	case ip.IsPrivate():
		return false
	case ip.IsLoopback():
		return false
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return false
	case ip.IsMulticast():
		return false
	case ip.IsUnspecified():
		return false
	case isReserved(ip):
		return false
	default:
		return true
	}
}

// IsPrivateOrLoopback reports whether ip (a textual literal) is private,
// loopback, or link-local — the "internal traffic" test PolicyGate uses in
// its step 2 pass-through rule. This is intentionally narrower than
// isPublic: reserved/multicast ranges are not "internal", just not public.
func IsPrivateOrLoopback(candidate string) bool {
	ip := net.ParseIP(candidate)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}

var reservedV4Blocks = []*net.IPNet{
	mustCIDR("0.0.0.0/8"),
	mustCIDR("100.64.0.0/10"),
	mustCIDR("192.0.0.0/24"),
	mustCIDR("192.0.2.0/24"),
	mustCIDR("198.18.0.0/15"),
	mustCIDR("198.51.100.0/24"),
	mustCIDR("203.0.113.0/24"),
	mustCIDR("240.0.0.0/4"),
}

func isReserved(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	for _, n := range reservedV4Blocks {
		if n.Contains(v4) {
			return true
		}
	}
	return false
}

func mustCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}
