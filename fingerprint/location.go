package fingerprint

import (
	"net"

	"github.com/altwave/sessionguard/session"
)

// GeoResolver resolves a public IP address to a location. Resolvers
// back onto a geolocation database or service; failures degrade to a
// raw-IP-only record and never fail the caller.
type GeoResolver interface {
	Resolve(ip string) (session.LocationInfo, error)
}

// GeoResolverFunc adapts a plain function to [GeoResolver].
type GeoResolverFunc func(ip string) (session.LocationInfo, error)

// Resolve describes the resolve operation and its observable behavior.
//
// Resolve may return an error when input validation, dependency calls, or security checks fail.
// Resolve does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (f GeoResolverFunc) Resolve(ip string) (session.LocationInfo, error) {
	return f(ip)
}

// DeriveLocation builds the immutable [session.LocationInfo] snapshot
// for a request. Private and loopback addresses short-circuit to an
// internal-network pseudo-location that contributes no risk. Public
// addresses resolve through the given resolver; a nil resolver or a
// lookup failure yields a record with only the raw IP populated.
func DeriveLocation(ip string, resolver GeoResolver) session.LocationInfo {
	if IsPrivateIP(ip) {
		return session.LocationInfo{
			IPAddress:  ip,
			Country:    "Internal Network",
			IsInternal: true,
		}
	}

	if resolver == nil {
		return session.LocationInfo{IPAddress: ip}
	}

	loc, err := resolver.Resolve(ip)
	if err != nil {
		return session.LocationInfo{IPAddress: ip}
	}
	loc.IPAddress = ip
	return loc
}

// IsPrivateIP reports whether the address is private, loopback,
// link-local, or unparseable. Unparseable addresses are treated as
// internal so they never reach a geolocation lookup.
func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}

// SameIPv4Subnet reports whether two public IPv4 addresses share a
// /24. Non-IPv4 addresses only match on exact equality.
func SameIPv4Subnet(a, b string) bool {
	if a == b {
		return true
	}

	ipA := net.ParseIP(a)
	ipB := net.ParseIP(b)
	if ipA == nil || ipB == nil {
		return false
	}

	v4A := ipA.To4()
	v4B := ipB.To4()
	if v4A == nil || v4B == nil {
		return false
	}

	return v4A[0] == v4B[0] && v4A[1] == v4B[1] && v4A[2] == v4B[2]
}

// AcceptableIPChange reports whether moving from one source address to
// another is tolerated without a risk penalty: both internal, or both
// public within the same IPv4 /24.
func AcceptableIPChange(stored, observed string) bool {
	if stored == observed {
		return true
	}

	storedPrivate := IsPrivateIP(stored)
	observedPrivate := IsPrivateIP(observed)
	if storedPrivate && observedPrivate {
		return true
	}
	if storedPrivate != observedPrivate {
		return false
	}

	return SameIPv4Subnet(stored, observed)
}
