package ports

import (
	"context"

	"github.com/kaverel/callbridge/internal/domain/models"
)

// SessionCallbacks are the host-facing signals of the session engine. Every
// field is optional; nil callbacks are skipped. Callbacks fire strictly on
// transition, never on every feed tick.
type SessionCallbacks struct {
	OnConnectionChange   func(connected bool)
	OnMicrophoneChange   func(enabled bool)
	OnParticipantsUpdate func(participants []models.ParticipantSnapshot)
	OnRoomNameUpdate     func(roomName string)
	OnDisconnect         func(reason models.DisconnectReason)
	OnEndCall            func(callID string)
}

// SessionSink consumes raw parameter updates from a session feed. Updates
// replace the previous snapshot wholesale; only the latest matters.
type SessionSink interface {
	Apply(raw models.RawSession)
}

// SessionFeed produces raw session parameter snapshots from the media SDK
// or the call gateway and pushes them at a sink until the context ends.
type SessionFeed interface {
	Run(ctx context.Context, sink SessionSink) error
}

// RoomStateStore exposes the locally-owned room state aggregate to the
// control layer. Patch applies an optimistic local update; the next feed
// tick silently overwrites any guess it disagrees with.
type RoomStateStore interface {
	Snapshot() models.RoomState
	Patch(patch func(*models.RoomState))
}

// MicrophoneControl mutes and unmutes the locally published audio. Owned by
// the media adapter; the engine only flips it during gated take-control.
type MicrophoneControl interface {
	SetMicEnabled(enabled bool) error
}

// Notifier surfaces transient banners to the user.
type Notifier interface {
	Notify(title, message string, severity models.Severity)
	NotifyWithID(id, title, message string, severity models.Severity)
}

// ConfirmationSink receives gated-action confirmation requests. Raise
// reports whether the request was accepted into the single pending slot.
type ConfirmationSink interface {
	Raise(req models.ConfirmationRequest) bool
}
