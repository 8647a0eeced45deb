package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for callbridge
type Config struct {
	CallControl CallControlConfig `json:"call_control"`
	LiveKit     LiveKitConfig     `json:"livekit"`
	Feed        FeedConfig        `json:"feed"`
	Session     SessionConfig     `json:"session"`
	Notify      NotifyConfig      `json:"notify"`
	Server      ServerConfig      `json:"server"`
}

// CallControlConfig holds the call-control API configuration
type CallControlConfig struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

// LiveKitConfig holds LiveKit server configuration
type LiveKitConfig struct {
	URL          string   `json:"url"`           // WebSocket URL (e.g., wss://localhost:7880)
	APIKey       string   `json:"api_key"`       // LiveKit API key
	APISecret    string   `json:"api_secret"`    // LiveKit API secret
	Identity     string   `json:"identity"`      // Local participant identity
	Name         string   `json:"name"`          // Local participant display name
	PollInterval Duration `json:"poll_interval"` // Room state poll interval (default: 3s)
}

// FeedConfig holds the gateway WebSocket feed configuration
type FeedConfig struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// SessionConfig holds session engine tuning
type SessionConfig struct {
	Mode                 string   `json:"mode"`                   // "outgoing-setup" or "regular"
	ConnectTimeout       Duration `json:"connect_timeout"`        // Outgoing-setup connect watchdog (default: 30s)
	SettleDelay          Duration `json:"settle_delay"`           // Wait after unmute before switching source (default: 500ms)
	StatsRefreshInterval Duration `json:"stats_refresh_interval"` // Call stats poll interval (default: 10s)
}

// NotifyConfig holds notification banner tuning
type NotifyConfig struct {
	BannerTTL Duration `json:"banner_ttl"` // How long a banner stays up (default: 4s)
}

// ServerConfig holds the diagnostics HTTP server configuration
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Duration is a time.Duration that marshals as a string like "30s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CallControl: CallControlConfig{
			URL:    "http://localhost:8090",
			APIKey: "",
		},
		LiveKit: LiveKitConfig{
			URL:          "",
			APIKey:       "",
			APISecret:    "",
			Identity:     "callbridge-client",
			Name:         "Callbridge",
			PollInterval: Duration(3 * time.Second),
		},
		Feed: FeedConfig{
			URL:   "",
			Token: "",
		},
		Session: SessionConfig{
			Mode:                 "regular",
			ConnectTimeout:       Duration(30 * time.Second),
			SettleDelay:          Duration(500 * time.Millisecond),
			StatsRefreshInterval: Duration(10 * time.Second),
		},
		Notify: NotifyConfig{
			BannerTTL: Duration(4 * time.Second),
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envDuration loads a duration environment variable into the target pointer if set and valid
func envDuration(key string, target *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*target = Duration(d)
		}
	}
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("CALLBRIDGE_CALL_CONTROL_URL", &cfg.CallControl.URL)
	envString("CALLBRIDGE_CALL_CONTROL_API_KEY", &cfg.CallControl.APIKey)

	envString("CALLBRIDGE_LIVEKIT_URL", &cfg.LiveKit.URL)
	envString("CALLBRIDGE_LIVEKIT_API_KEY", &cfg.LiveKit.APIKey)
	envString("CALLBRIDGE_LIVEKIT_API_SECRET", &cfg.LiveKit.APISecret)
	envString("CALLBRIDGE_LIVEKIT_IDENTITY", &cfg.LiveKit.Identity)
	envString("CALLBRIDGE_LIVEKIT_NAME", &cfg.LiveKit.Name)
	envDuration("CALLBRIDGE_LIVEKIT_POLL_INTERVAL", &cfg.LiveKit.PollInterval)

	envString("CALLBRIDGE_FEED_URL", &cfg.Feed.URL)
	envString("CALLBRIDGE_FEED_TOKEN", &cfg.Feed.Token)

	envString("CALLBRIDGE_SESSION_MODE", &cfg.Session.Mode)
	envDuration("CALLBRIDGE_CONNECT_TIMEOUT", &cfg.Session.ConnectTimeout)
	envDuration("CALLBRIDGE_SETTLE_DELAY", &cfg.Session.SettleDelay)
	envDuration("CALLBRIDGE_STATS_REFRESH_INTERVAL", &cfg.Session.StatsRefreshInterval)

	envDuration("CALLBRIDGE_BANNER_TTL", &cfg.Notify.BannerTTL)

	envString("CALLBRIDGE_SERVER_HOST", &cfg.Server.Host)
	envInt("CALLBRIDGE_SERVER_PORT", &cfg.Server.Port)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsLiveKitConfigured returns true if LiveKit is properly configured
func (c *Config) IsLiveKitConfigured() bool {
	return c.LiveKit.URL != "" && c.LiveKit.APIKey != "" && c.LiveKit.APISecret != ""
}

// IsFeedConfigured returns true if the gateway WebSocket feed is configured
func (c *Config) IsFeedConfigured() bool {
	return c.Feed.URL != ""
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.CallControl.URL == "" {
		errs = append(errs, "call control URL is required")
	} else if !isValidURL(c.CallControl.URL) {
		errs = append(errs, "call control URL must be a valid URL")
	}

	if c.LiveKit.URL != "" {
		if !isValidURL(c.LiveKit.URL) {
			errs = append(errs, "LiveKit URL must be a valid URL")
		}
		if c.LiveKit.APIKey == "" || c.LiveKit.APISecret == "" {
			errs = append(errs, "LiveKit API key and secret are required when URL is set")
		}
	}

	// The session can run without either feed configured; the join command
	// reports the missing feed when it actually needs one.
	if c.Feed.URL != "" && !isValidURL(c.Feed.URL) {
		errs = append(errs, "feed URL must be a valid URL")
	}

	if c.Session.Mode != "outgoing-setup" && c.Session.Mode != "regular" {
		errs = append(errs, "session mode must be 'outgoing-setup' or 'regular'")
	}
	if c.Session.ConnectTimeout.Std() <= 0 {
		errs = append(errs, "connect timeout must be positive")
	}
	if c.Session.SettleDelay.Std() < 0 {
		errs = append(errs, "settle delay must not be negative")
	}
	if c.Session.StatsRefreshInterval.Std() <= 0 {
		errs = append(errs, "stats refresh interval must be positive")
	}

	if c.Notify.BannerTTL.Std() <= 0 {
		errs = append(errs, "banner TTL must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("CALLBRIDGE_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	configDir := filepath.Join(homeDir, ".config", "callbridge")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	altPath := filepath.Join(homeDir, ".callbridge", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
