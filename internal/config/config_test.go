package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.CallControl.URL == "" {
		t.Error("CallControl URL should not be empty")
	}
	if cfg.LiveKit.PollInterval.Std() <= 0 {
		t.Error("LiveKit PollInterval should be positive")
	}

	if cfg.Session.Mode != "regular" {
		t.Errorf("Session Mode should default to regular, got %q", cfg.Session.Mode)
	}
	if cfg.Session.ConnectTimeout.Std() != 30*time.Second {
		t.Errorf("ConnectTimeout should default to 30s, got %s", cfg.Session.ConnectTimeout.Std())
	}
	if cfg.Session.SettleDelay.Std() != 500*time.Millisecond {
		t.Errorf("SettleDelay should default to 500ms, got %s", cfg.Session.SettleDelay.Std())
	}
	if cfg.Notify.BannerTTL.Std() != 4*time.Second {
		t.Errorf("BannerTTL should default to 4s, got %s", cfg.Notify.BannerTTL.Std())
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		t.Error("Server Port should be valid")
	}
	if cfg.Server.Host == "" {
		t.Error("Server Host should not be empty")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestEnvString(t *testing.T) {
	target := "original"

	t.Run("sets value when env var exists", func(t *testing.T) {
		t.Setenv("CALLBRIDGE_TEST_STRING", "updated")
		envString("CALLBRIDGE_TEST_STRING", &target)
		if target != "updated" {
			t.Errorf("expected updated, got %q", target)
		}
	})

	t.Run("keeps value when env var missing", func(t *testing.T) {
		target = "original"
		envString("CALLBRIDGE_TEST_MISSING", &target)
		if target != "original" {
			t.Errorf("expected original, got %q", target)
		}
	})
}

func TestEnvDuration(t *testing.T) {
	target := Duration(time.Second)

	t.Run("sets valid duration", func(t *testing.T) {
		t.Setenv("CALLBRIDGE_TEST_DURATION", "45s")
		envDuration("CALLBRIDGE_TEST_DURATION", &target)
		if target.Std() != 45*time.Second {
			t.Errorf("expected 45s, got %s", target.Std())
		}
	})

	t.Run("ignores invalid duration", func(t *testing.T) {
		target = Duration(time.Second)
		t.Setenv("CALLBRIDGE_TEST_DURATION", "not-a-duration")
		envDuration("CALLBRIDGE_TEST_DURATION", &target)
		if target.Std() != time.Second {
			t.Errorf("expected 1s, got %s", target.Std())
		}
	})
}

func TestDurationJSON(t *testing.T) {
	d := Duration(90 * time.Second)
	data, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"1m30s"` {
		t.Errorf("expected \"1m30s\", got %s", data)
	}

	var parsed Duration
	if err := parsed.UnmarshalJSON([]byte(`"2m"`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Std() != 2*time.Minute {
		t.Errorf("expected 2m, got %s", parsed.Std())
	}

	if err := parsed.UnmarshalJSON([]byte(`"bogus"`)); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad server port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server port",
		},
		{
			name:    "missing call control URL",
			mutate:  func(c *Config) { c.CallControl.URL = "" },
			wantErr: "call control URL is required",
		},
		{
			name:    "malformed call control URL",
			mutate:  func(c *Config) { c.CallControl.URL = "not a url" },
			wantErr: "valid URL",
		},
		{
			name: "livekit URL without credentials",
			mutate: func(c *Config) {
				c.LiveKit.URL = "ws://localhost:7880"
				c.LiveKit.APIKey = ""
				c.LiveKit.APISecret = ""
			},
			wantErr: "API key and secret",
		},
		{
			name:    "invalid session mode",
			mutate:  func(c *Config) { c.Session.Mode = "passive" },
			wantErr: "session mode",
		},
		{
			name:    "non-positive connect timeout",
			mutate:  func(c *Config) { c.Session.ConnectTimeout = 0 },
			wantErr: "connect timeout",
		},
		{
			name:    "negative settle delay",
			mutate:  func(c *Config) { c.Session.SettleDelay = Duration(-time.Second) },
			wantErr: "settle delay",
		},
		{
			name:    "malformed feed URL",
			mutate:  func(c *Config) { c.Feed.URL = "not a url" },
			wantErr: "feed URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
