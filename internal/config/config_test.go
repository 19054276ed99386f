package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("ALUMNI_DISABLE_AFTER", "")

	cfg := Load()
	if cfg.StoreBackend != "memory" {
		t.Errorf("StoreBackend = %q, want memory", cfg.StoreBackend)
	}
	if cfg.AlumniDisableAfter != 7*24*time.Hour {
		t.Errorf("AlumniDisableAfter = %v", cfg.AlumniDisableAfter)
	}
	if !cfg.QRLegacyScan {
		t.Error("QRLegacyScan should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ACCESS_TTL", "30m")
	t.Setenv("QR_LEGACY_SCAN", "false")
	t.Setenv("RATE_LIMIT_PER_MIN", "15")
	t.Setenv("ALUMNI_DISABLE_AFTER", "not-a-duration")

	cfg := Load()
	if cfg.AccessTTL != 30*time.Minute {
		t.Errorf("AccessTTL = %v", cfg.AccessTTL)
	}
	if cfg.QRLegacyScan {
		t.Error("QRLegacyScan should be false")
	}
	if cfg.RateLimitPerMin != 15 {
		t.Errorf("RateLimitPerMin = %d", cfg.RateLimitPerMin)
	}
	if cfg.AlumniDisableAfter != 7*24*time.Hour {
		t.Errorf("invalid duration should fall back, got %v", cfg.AlumniDisableAfter)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*App)
		wantErr bool
	}{
		{"firestore without project", func(a *App) { a.StoreBackend = "firestore" }, true},
		{"firestore with project", func(a *App) { a.StoreBackend = "firestore"; a.ProjectID = "p" }, false},
		{"unknown store", func(a *App) { a.StoreBackend = "mongo" }, true},
		{"unknown queue", func(a *App) { a.QueueBackend = "kafka" }, true},
		{"bad timezone", func(a *App) { a.PolicyTimezone = "Mars/Olympus" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := App{StoreBackend: "memory", QueueBackend: "memory", PolicyTimezone: "UTC"}
			tc.mutate(&a)
			err := a.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
