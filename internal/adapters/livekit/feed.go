// Package livekit feeds session parameter snapshots from a LiveKit room
// and exposes local microphone control.
package livekit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"

	"github.com/kaverel/callbridge/internal/domain/models"
	"github.com/kaverel/callbridge/internal/ports"
)

// Config holds room connection settings.
type Config struct {
	URL          string
	APIKey       string
	APISecret    string
	RoomName     string
	Identity     string
	Name         string
	PollInterval time.Duration
}

// Feed joins a LiveKit room and reports its state as raw session
// snapshots. Snapshots are pushed on every room event and on a steady
// poll tick so audio levels stay fresh between events.
type Feed struct {
	cfg Config

	mu        sync.RWMutex
	room      *lksdk.Room
	connected bool
	alert     string

	// kick coalesces event-driven snapshot pushes.
	kick chan struct{}
}

var (
	_ ports.SessionFeed       = (*Feed)(nil)
	_ ports.MicrophoneControl = (*Feed)(nil)
)

// NewFeed creates a feed for one room.
func NewFeed(cfg Config) *Feed {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.Identity == "" {
		cfg.Identity = "callbridge-client"
	}
	return &Feed{
		cfg:  cfg,
		kick: make(chan struct{}, 1),
	}
}

// Run joins the room and pushes snapshots at the sink until the context
// ends or the room disconnects.
func (f *Feed) Run(ctx context.Context, sink ports.SessionSink) error {
	slog.Info("livekit: connecting to room", "room", f.cfg.RoomName, "url", f.cfg.URL)

	room := lksdk.NewRoom(&lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed:   f.onTrackSubscribed,
			OnTrackUnsubscribed: f.onTrackUnsubscribed,
			OnTrackMuted:        f.onTrackMuted,
			OnTrackUnmuted:      f.onTrackUnmuted,
		},
		OnParticipantConnected:    f.onParticipantConnected,
		OnParticipantDisconnected: f.onParticipantDisconnected,
		OnDisconnected:            f.onDisconnected,
	})

	connectInfo := lksdk.ConnectInfo{
		APIKey:              f.cfg.APIKey,
		APISecret:           f.cfg.APISecret,
		RoomName:            f.cfg.RoomName,
		ParticipantIdentity: f.cfg.Identity,
		ParticipantName:     f.cfg.Name,
	}
	if err := room.Join(f.cfg.URL, connectInfo, lksdk.WithAutoSubscribe(true)); err != nil {
		slog.Error("livekit: failed to join room", "room", f.cfg.RoomName, "error", err)
		return fmt.Errorf("join room: %w", err)
	}

	f.mu.Lock()
	f.room = room
	f.connected = true
	f.alert = ""
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		if f.room != nil {
			f.room.Disconnect()
			f.room = nil
		}
		f.connected = false
		f.mu.Unlock()
	}()

	slog.Info("livekit: joined room", "room", f.cfg.RoomName, "participants", len(room.GetRemoteParticipants()))

	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	sink.Apply(f.snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.kick:
			raw := f.snapshot()
			sink.Apply(raw)
			if !raw.Socket {
				return fmt.Errorf("room disconnected: %s", raw.AlertMessage)
			}
		case <-ticker.C:
			sink.Apply(f.snapshot())
		}
	}
}

// SetMicEnabled mutes or unmutes the local microphone publication.
func (f *Feed) SetMicEnabled(enabled bool) error {
	f.mu.RLock()
	room := f.room
	f.mu.RUnlock()
	if room == nil {
		return fmt.Errorf("not connected")
	}

	for _, pub := range room.LocalParticipant.TrackPublications() {
		local, ok := pub.(*lksdk.LocalTrackPublication)
		if !ok || local.Source() != livekit.TrackSource_MICROPHONE {
			continue
		}
		local.SetMuted(!enabled)
		slog.Info("livekit: microphone state changed", "enabled", enabled)
		return nil
	}
	return fmt.Errorf("no microphone track published")
}

// snapshot builds a raw session view of the current room state.
func (f *Feed) snapshot() models.RawSession {
	f.mu.RLock()
	room := f.room
	connected := f.connected
	alert := f.alert
	f.mu.RUnlock()

	raw := models.RawSession{
		RoomName:     f.cfg.RoomName,
		Socket:       connected,
		AlertMessage: alert,
	}
	if room == nil || !connected {
		return raw
	}

	for _, p := range room.GetRemoteParticipants() {
		muted := true
		for _, pub := range p.TrackPublications() {
			if pub.Source() != livekit.TrackSource_MICROPHONE {
				continue
			}
			muted = pub.IsMuted()
			if pub.IsSubscribed() {
				raw.AudioOnlyStreams = append(raw.AudioOnlyStreams, p.Identity())
			}
		}
		raw.Participants = append(raw.Participants, models.RawParticipant{
			ID:    p.Identity(),
			Name:  p.Name(),
			Muted: muted,
		})
	}
	raw.AudioAlreadyOn = len(raw.AudioOnlyStreams) > 0

	return raw
}

func (f *Feed) push() {
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

func (f *Feed) onParticipantConnected(p *lksdk.RemoteParticipant) {
	slog.Info("livekit: participant connected", "identity", p.Identity(), "name", p.Name())
	f.push()
}

func (f *Feed) onParticipantDisconnected(p *lksdk.RemoteParticipant) {
	slog.Info("livekit: participant disconnected", "identity", p.Identity())
	f.push()
}

func (f *Feed) onTrackSubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, p *lksdk.RemoteParticipant) {
	slog.Debug("livekit: track subscribed", "participant", p.Identity(), "track_id", track.ID())
	f.push()
}

func (f *Feed) onTrackUnsubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, p *lksdk.RemoteParticipant) {
	slog.Debug("livekit: track unsubscribed", "participant", p.Identity(), "track_id", track.ID())
	f.push()
}

func (f *Feed) onTrackMuted(pub lksdk.TrackPublication, p lksdk.Participant) {
	slog.Debug("livekit: track muted", "participant", p.Identity())
	f.push()
}

func (f *Feed) onTrackUnmuted(pub lksdk.TrackPublication, p lksdk.Participant) {
	slog.Debug("livekit: track unmuted", "participant", p.Identity())
	f.push()
}

func (f *Feed) onDisconnected() {
	slog.Warn("livekit: room disconnected", "room", f.cfg.RoomName)
	f.mu.Lock()
	f.connected = false
	f.alert = "Room connection ended"
	f.mu.Unlock()
	f.push()
}
