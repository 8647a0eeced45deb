package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaverel/callbridge/internal/config"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "callbridge",
		Short: "Callbridge - voice call session client",
		Long: `Callbridge joins a voice call room, reconciles the session state the
media SDK reports, and drives call-control operations against the
call-control API.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			level := slog.LevelInfo
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			return nil
		},
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		joinCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("Call control:")
			fmt.Printf("  URL:     %s\n", cfg.CallControl.URL)
			fmt.Printf("  API Key: %s\n", maskSecret(cfg.CallControl.APIKey))
			fmt.Println()

			fmt.Println("LiveKit:")
			fmt.Printf("  URL:        %s\n", cfg.LiveKit.URL)
			fmt.Printf("  API Key:    %s\n", maskSecret(cfg.LiveKit.APIKey))
			fmt.Printf("  API Secret: %s\n", maskSecret(cfg.LiveKit.APISecret))
			fmt.Printf("  Identity:   %s\n", cfg.LiveKit.Identity)
			fmt.Printf("  Status:     %s\n", boolStatus(cfg.IsLiveKitConfigured()))
			fmt.Println()

			fmt.Println("Feed:")
			fmt.Printf("  URL:    %s\n", cfg.Feed.URL)
			fmt.Printf("  Token:  %s\n", maskSecret(cfg.Feed.Token))
			fmt.Printf("  Status: %s\n", boolStatus(cfg.IsFeedConfigured()))
			fmt.Println()

			fmt.Println("Session:")
			fmt.Printf("  Mode:                 %s\n", cfg.Session.Mode)
			fmt.Printf("  Connect Timeout:      %s\n", cfg.Session.ConnectTimeout.Std())
			fmt.Printf("  Settle Delay:         %s\n", cfg.Session.SettleDelay.Std())
			fmt.Printf("  Stats Refresh:        %s\n", cfg.Session.StatsRefreshInterval.Std())
			fmt.Printf("  Banner TTL:           %s\n", cfg.Notify.BannerTTL.Std())
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  CALLBRIDGE_CALL_CONTROL_URL, CALLBRIDGE_CALL_CONTROL_API_KEY")
			fmt.Println("  CALLBRIDGE_LIVEKIT_URL, CALLBRIDGE_LIVEKIT_API_KEY, CALLBRIDGE_LIVEKIT_API_SECRET")
			fmt.Println("  CALLBRIDGE_FEED_URL, CALLBRIDGE_FEED_TOKEN")
			fmt.Println("  CALLBRIDGE_SESSION_MODE, CALLBRIDGE_CONNECT_TIMEOUT, CALLBRIDGE_SETTLE_DELAY")
			fmt.Println("  CALLBRIDGE_SERVER_HOST, CALLBRIDGE_SERVER_PORT")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Callbridge %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// boolStatus returns a status string for a boolean
func boolStatus(b bool) string {
	if b {
		return "configured"
	}
	return "not configured"
}
