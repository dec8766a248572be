package sessionguard

import (
	"bytes"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.Encryption.Secret = []byte("config-test-secret")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secret valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "lifetime zero invalid",
			mutate: func(c *Config) {
				c.Session.Lifetime = 0
			},
			wantValid: false,
		},
		{
			name: "remember me shorter than lifetime invalid",
			mutate: func(c *Config) {
				c.Session.RememberMeLifetime = c.Session.Lifetime - time.Hour
			},
			wantValid: false,
		},
		{
			name: "idle timeout zero valid",
			mutate: func(c *Config) {
				c.Session.IdleTimeout = 0
			},
			wantValid: true,
		},
		{
			name: "idle timeout negative invalid",
			mutate: func(c *Config) {
				c.Session.IdleTimeout = -time.Minute
			},
			wantValid: false,
		},
		{
			name: "session cap zero valid",
			mutate: func(c *Config) {
				c.Session.MaxSessionsPerUser = 0
			},
			wantValid: true,
		},
		{
			name: "lockout max attempts zero invalid",
			mutate: func(c *Config) {
				c.Lockout.MaxAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "lockout disabled skips lockout checks",
			mutate: func(c *Config) {
				c.Lockout.Enabled = false
				c.Lockout.MaxAttempts = 0
			},
			wantValid: true,
		},
		{
			name: "suspicious threshold zero invalid",
			mutate: func(c *Config) {
				c.Risk.SuspiciousThreshold = 0
			},
			wantValid: false,
		},
		{
			name: "suspicious threshold above one invalid",
			mutate: func(c *Config) {
				c.Risk.SuspiciousThreshold = 1.5
			},
			wantValid: false,
		},
		{
			name: "suspicious threshold one valid",
			mutate: func(c *Config) {
				c.Risk.SuspiciousThreshold = 1
			},
			wantValid: true,
		},
		{
			name: "known device ttl zero invalid",
			mutate: func(c *Config) {
				c.Risk.KnownDeviceTTL = 0
			},
			wantValid: false,
		},
		{
			name: "no key material invalid",
			mutate: func(c *Config) {
				c.Encryption.Secret = nil
			},
			wantValid: false,
		},
		{
			name: "key and secret together invalid",
			mutate: func(c *Config) {
				c.Encryption.Key = bytes.Repeat([]byte{0x42}, 32)
			},
			wantValid: false,
		},
		{
			name: "raw 32-byte key valid",
			mutate: func(c *Config) {
				c.Encryption.Secret = nil
				c.Encryption.Key = bytes.Repeat([]byte{0x42}, 32)
			},
			wantValid: true,
		},
		{
			name: "short key invalid",
			mutate: func(c *Config) {
				c.Encryption.Secret = nil
				c.Encryption.Key = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "events buffer zero invalid",
			mutate: func(c *Config) {
				c.Events.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "events disabled skips event checks",
			mutate: func(c *Config) {
				c.Events.Enabled = false
				c.Events.BufferSize = 0
			},
			wantValid: true,
		},
		{
			name: "store timeout negative invalid",
			mutate: func(c *Config) {
				c.StoreTimeout = -time.Second
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestConfigPresetsValidate(t *testing.T) {
	presets := map[string]Config{
		"default":         DefaultConfig(),
		"high security":   HighSecurityConfig(),
		"high throughput": HighThroughputConfig(),
	}

	for name, cfg := range presets {
		cfg.Encryption.Secret = []byte("config-test-secret")
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s preset should validate, got %v", name, err)
		}
	}

	if hs := HighSecurityConfig(); hs.Risk.SuspiciousThreshold >= DefaultConfig().Risk.SuspiciousThreshold {
		t.Fatalf("high security preset should lower the suspicion threshold")
	}
}

func TestDefaultEventRetentionNinetyDays(t *testing.T) {
	if got, want := DefaultConfig().Events.Retention, 90*24*time.Hour; got != want {
		t.Fatalf("default event retention = %v, want %v", got, want)
	}
}

func TestCloneConfigCopiesKeyMaterial(t *testing.T) {
	cfg := validTestConfig()
	cfg.Encryption.Secret = nil
	cfg.Encryption.Key = bytes.Repeat([]byte{0x42}, 32)

	clone := cloneConfig(cfg)
	clone.Encryption.Key[0] = 0xFF

	if cfg.Encryption.Key[0] != 0x42 {
		t.Fatalf("clone shares key material with the original")
	}
}
