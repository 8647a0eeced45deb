package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaverel/callbridge/internal/adapters/callctl"
	adapterhttp "github.com/kaverel/callbridge/internal/adapters/http"
	"github.com/kaverel/callbridge/internal/adapters/livekit"
	"github.com/kaverel/callbridge/internal/adapters/tracing"
	"github.com/kaverel/callbridge/internal/adapters/wsfeed"
	"github.com/kaverel/callbridge/internal/application/session"
	"github.com/kaverel/callbridge/internal/domain"
	"github.com/kaverel/callbridge/internal/domain/models"
	"github.com/kaverel/callbridge/internal/ports"
	"github.com/kaverel/callbridge/internal/protocol"
)

// joinCmd joins a room and runs the session until interrupted
func joinCmd() *cobra.Command {
	var localName string

	cmd := &cobra.Command{
		Use:   "join <room-name>",
		Short: "Join a room and run the session engine",
		Long: `Join a voice call room and keep the session state reconciled until
interrupted. Session state, call control and metrics are exposed on the
local diagnostics server.

The room feed comes from the gateway WebSocket when CALLBRIDGE_FEED_URL
is set, otherwise directly from LiveKit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), args[0], localName)
		},
	}
	cmd.Flags().StringVar(&localName, "name", "Operator", "Local participant display name")

	return cmd
}

func runSession(ctx context.Context, roomName, localName string) error {
	if strings.TrimSpace(roomName) == "" {
		return domain.ErrRoomNameInvalid
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.InitTracer("callbridge")
	if err != nil {
		slog.Warn("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	feed, mic, err := buildFeed(roomName)
	if err != nil {
		return err
	}

	api := callctl.NewClient(cfg.CallControl.URL, cfg.CallControl.APIKey)

	runner := session.NewRunner(session.RunnerOptions{
		Mode:      models.SessionMode(cfg.Session.Mode),
		RoomName:  roomName,
		LocalName: localName,
		Feed:      feed,
		API:       api,
		Mic:       mic,

		Callbacks: loggingCallbacks(),

		ConnectTimeout:       cfg.Session.ConnectTimeout.Std(),
		SettleDelay:          cfg.Session.SettleDelay.Std(),
		StatsRefreshInterval: cfg.Session.StatsRefreshInterval.Std(),
		BannerTTL:            cfg.Notify.BannerTTL.Std(),

		OnBanner: func(b models.NotificationBanner) {
			slog.Info("banner", "severity", b.Severity, "title", b.Title, "message", b.Message)
		},
		OnConfirmation: func(req models.ConfirmationRequest) {
			slog.Info("confirmation pending", "title", req.Title, "message", req.Message)
		},
	})

	// Gateway call-data pushes replace the polled call data between
	// refresh ticks.
	if ws, ok := feed.(*wsfeed.Client); ok {
		ws.SetCallDataHandler(func(update protocol.CallDataUpdate) {
			runner.SetCallData(update.CallData())
		})
	}

	runner.Start(ctx)
	defer runner.Stop()

	server := adapterhttp.NewServer(cfg.Server.Host, cfg.Server.Port, runner)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	slog.Info("session running", "room", roomName, "mode", cfg.Session.Mode)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("diagnostics server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		slog.Warn("diagnostics server shutdown failed", "error", err)
	}

	return nil
}

// buildFeed picks the session feed: the gateway WebSocket when configured,
// otherwise a direct LiveKit room connection. Only the LiveKit feed can
// control the local microphone.
func buildFeed(roomName string) (ports.SessionFeed, ports.MicrophoneControl, error) {
	if cfg.IsFeedConfigured() {
		return wsfeed.NewClient(cfg.Feed.URL, cfg.Feed.Token, roomName), nil, nil
	}

	if !cfg.IsLiveKitConfigured() {
		return nil, nil, fmt.Errorf("no session feed configured: set CALLBRIDGE_FEED_URL or the CALLBRIDGE_LIVEKIT_* variables")
	}

	feed := livekit.NewFeed(livekit.Config{
		URL:          cfg.LiveKit.URL,
		APIKey:       cfg.LiveKit.APIKey,
		APISecret:    cfg.LiveKit.APISecret,
		RoomName:     roomName,
		Identity:     cfg.LiveKit.Identity,
		Name:         cfg.LiveKit.Name,
		PollInterval: cfg.LiveKit.PollInterval.Std(),
	})
	return feed, feed, nil
}

func loggingCallbacks() ports.SessionCallbacks {
	return ports.SessionCallbacks{
		OnConnectionChange: func(connected bool) {
			slog.Info("session callback: connection changed", "connected", connected)
		},
		OnMicrophoneChange: func(enabled bool) {
			slog.Info("session callback: microphone changed", "enabled", enabled)
		},
		OnParticipantsUpdate: func(participants []models.ParticipantSnapshot) {
			slog.Info("session callback: participants updated", "count", len(participants))
		},
		OnRoomNameUpdate: func(roomName string) {
			slog.Info("session callback: room name updated", "room", roomName)
		},
		OnDisconnect: func(reason models.DisconnectReason) {
			slog.Warn("session callback: disconnected", "kind", reason.Kind, "details", reason.Details)
		},
		OnEndCall: func(callID string) {
			slog.Info("session callback: call ended", "call_id", callID)
		},
	}
}
