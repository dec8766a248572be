package fingerprint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altwave/sessionguard/session"
)

const (
	uaChromeWindows  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	uaChromeWindows2 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
	uaFirefoxLinux   = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	uaSafariIPhone   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"
	uaGooglebot      = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestHashStableAndHeaderOrderIndependent(t *testing.T) {
	a := Hash(uaChromeWindows, map[string]string{"Accept-Language": "en-US", "Accept-Encoding": "gzip"})
	b := Hash(uaChromeWindows, map[string]string{"accept-encoding": "gzip", "accept-language": "en-US"})

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, Hash(uaFirefoxLinux, nil))
}

func TestDeriveDeviceClassification(t *testing.T) {
	tests := []struct {
		name       string
		ua         string
		deviceType session.DeviceType
		os         string
		browser    string
		isBot      bool
		isMobile   bool
	}{
		{"chrome windows desktop", uaChromeWindows, session.DeviceDesktop, "windows", "chrome", false, false},
		{"firefox linux desktop", uaFirefoxLinux, session.DeviceDesktop, "linux", "firefox", false, false},
		{"iphone safari mobile", uaSafariIPhone, session.DeviceMobile, "ios", "safari", false, true},
		{"googlebot", uaGooglebot, session.DeviceBot, "other", "other", true, false},
		{"empty ua", "", session.DeviceUnknown, "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DeriveDevice(tt.ua, nil)
			assert.Equal(t, tt.deviceType, d.DeviceType)
			assert.Equal(t, tt.os, d.OS)
			assert.Equal(t, tt.browser, d.Browser)
			assert.Equal(t, tt.isBot, d.IsBot)
			assert.Equal(t, tt.isMobile, d.IsMobile)
			assert.Equal(t, d.Fingerprint, d.DeviceID)
		})
	}
}

func TestSameDeviceFamilyToleratesVersionBump(t *testing.T) {
	stored := DeriveDevice(uaChromeWindows, nil)

	assert.True(t, SameDeviceFamily(stored, uaChromeWindows2))
	assert.False(t, SameDeviceFamily(stored, uaFirefoxLinux))
	assert.False(t, SameDeviceFamily(stored, uaSafariIPhone))
}

func TestDeriveLocationInternal(t *testing.T) {
	for _, ip := range []string{"10.0.0.5", "192.168.1.20", "127.0.0.1", "not-an-ip", ""} {
		loc := DeriveLocation(ip, nil)
		assert.True(t, loc.IsInternal, "ip %q", ip)
		assert.Equal(t, "Internal Network", loc.Country)
		assert.Equal(t, ip, loc.IPAddress)
	}
}

func TestDeriveLocationPublic(t *testing.T) {
	resolver := GeoResolverFunc(func(ip string) (session.LocationInfo, error) {
		return session.LocationInfo{Country: "Germany", CountryCode: "DE", City: "Berlin"}, nil
	})

	loc := DeriveLocation("203.0.113.10", resolver)
	require.False(t, loc.IsInternal)
	assert.Equal(t, "203.0.113.10", loc.IPAddress)
	assert.Equal(t, "DE", loc.CountryCode)
	assert.Equal(t, "Berlin", loc.City)
}

func TestDeriveLocationResolverFailureDegrades(t *testing.T) {
	resolver := GeoResolverFunc(func(ip string) (session.LocationInfo, error) {
		return session.LocationInfo{}, errors.New("lookup down")
	})

	loc := DeriveLocation("203.0.113.10", resolver)
	assert.Equal(t, "203.0.113.10", loc.IPAddress)
	assert.Empty(t, loc.CountryCode)
	assert.False(t, loc.IsInternal)
}

func TestAcceptableIPChange(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		observed string
		want     bool
	}{
		{"identical", "203.0.113.10", "203.0.113.10", true},
		{"same /24", "203.0.113.10", "203.0.113.99", true},
		{"different /24", "203.0.113.10", "203.0.114.10", false},
		{"both private", "10.0.0.5", "192.168.1.9", true},
		{"private to public", "10.0.0.5", "203.0.113.10", false},
		{"public to private", "203.0.113.10", "10.0.0.5", false},
		{"ipv6 exact", "2001:db8::1", "2001:db8::1", true},
		{"ipv6 different", "2001:db8::1", "2001:db8::2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AcceptableIPChange(tt.stored, tt.observed))
		})
	}
}
