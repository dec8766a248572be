// Package fingerprint derives stable device identifiers and
// best-effort locations from request metadata. Everything here is a
// pure function of its inputs; the package never touches the session
// store.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/altwave/sessionguard/session"
)

// Header names folded into the device fingerprint, matching what
// browsers send stably across requests.
const (
	HeaderAcceptLanguage = "accept-language"
	HeaderAcceptEncoding = "accept-encoding"
	HeaderAccept         = "accept"
)

const fingerprintLength = 32

var botMarkers = []string{
	"bot", "crawler", "spider", "slurp", "curl", "wget",
	"python-requests", "go-http-client", "headless",
}

// DeriveDevice builds the immutable [session.DeviceInfo] snapshot for
// a request from its user agent and optional extra headers. Header
// names are matched case-insensitively.
func DeriveDevice(userAgent string, headers map[string]string) session.DeviceInfo {
	fp := Hash(userAgent, headers)
	deviceType := classifyDevice(userAgent)

	return session.DeviceInfo{
		DeviceID:    fp,
		DeviceType:  deviceType,
		OS:          OSFamily(userAgent),
		Browser:     BrowserFamily(userAgent),
		IsMobile:    deviceType == session.DeviceMobile || deviceType == session.DeviceTablet,
		IsBot:       deviceType == session.DeviceBot,
		Fingerprint: fp,
	}
}

// Hash computes the stable device fingerprint: a SHA-256 over the user
// agent and the stable accept headers, sorted so the result does not
// depend on map iteration order, truncated to a fixed short length.
func Hash(userAgent string, headers map[string]string) string {
	components := []string{"ua=" + userAgent}
	for _, name := range []string{HeaderAcceptLanguage, HeaderAcceptEncoding, HeaderAccept} {
		if v := headerValue(headers, name); v != "" {
			components = append(components, name+"="+v)
		}
	}
	sort.Strings(components)

	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

func headerValue(headers map[string]string, name string) string {
	if headers == nil {
		return ""
	}
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func classifyDevice(userAgent string) session.DeviceType {
	if userAgent == "" {
		return session.DeviceUnknown
	}

	ua := strings.ToLower(userAgent)
	for _, marker := range botMarkers {
		if strings.Contains(ua, marker) {
			return session.DeviceBot
		}
	}

	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return session.DeviceTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return session.DeviceMobile
	default:
		return session.DeviceDesktop
	}
}

// OSFamily classifies the operating system family from a user agent.
// Version drift within a family does not change the result, which is
// what makes it usable for tolerant device comparison.
func OSFamily(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		return "ios"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		return "macos"
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "linux"):
		return "linux"
	case ua == "":
		return ""
	default:
		return "other"
	}
}

// BrowserFamily classifies the browser family from a user agent.
// Order matters: Edge and Opera embed "chrome", Chrome embeds
// "safari".
func BrowserFamily(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge"):
		return "edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return "opera"
	case strings.Contains(ua, "firefox"):
		return "firefox"
	case strings.Contains(ua, "chrome"), strings.Contains(ua, "crios"):
		return "chrome"
	case strings.Contains(ua, "safari"):
		return "safari"
	case ua == "":
		return ""
	default:
		return "other"
	}
}

// SameDeviceFamily reports whether a stored device snapshot and an
// observed user agent agree on device type, OS family, and browser
// family. Fingerprints that differ only by a version bump pass this
// check; anything else is an unacceptable device change.
func SameDeviceFamily(stored session.DeviceInfo, observedUA string) bool {
	if stored.DeviceType != classifyDevice(observedUA) {
		return false
	}
	if stored.OS != OSFamily(observedUA) {
		return false
	}
	return stored.Browser == BrowserFamily(observedUA)
}
