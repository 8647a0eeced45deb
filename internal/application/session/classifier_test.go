package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kaverel/callbridge/internal/domain/models"
)

func TestConnected(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawSession
		mode models.SessionMode
		want bool
	}{
		{
			name: "regular socket only",
			raw:  models.RawSession{RoomName: "room-1", Socket: true},
			mode: models.ModeRegular,
			want: true,
		},
		{
			name: "regular participants without socket",
			raw: models.RawSession{
				RoomName:     "room-1",
				Participants: []models.RawParticipant{{ID: "p1", Name: "Alice"}},
			},
			mode: models.ModeRegular,
			want: true,
		},
		{
			name: "outgoing setup requires socket, participants alone do not count",
			raw: models.RawSession{
				RoomName:     "room-1",
				Participants: []models.RawParticipant{{ID: "p1", Name: "Alice"}},
			},
			mode: models.ModeOutgoingSetup,
			want: false,
		},
		{
			name: "outgoing setup with socket",
			raw:  models.RawSession{RoomName: "room-1", Socket: true},
			mode: models.ModeOutgoingSetup,
			want: true,
		},
		{
			name: "local socket counts",
			raw:  models.RawSession{RoomName: "room-1", LocalSocket: true},
			mode: models.ModeRegular,
			want: true,
		},
		{
			name: "blank room name is fatal in any mode",
			raw:  models.RawSession{RoomName: "   ", Socket: true},
			mode: models.ModeRegular,
			want: false,
		},
		{
			name: "failure marker overrides a live socket",
			raw:  models.RawSession{RoomName: "room-1", Socket: true, AlertMessage: "Recording failed"},
			mode: models.ModeRegular,
			want: false,
		},
		{
			name: "benign alert does not disconnect",
			raw:  models.RawSession{RoomName: "room-1", Socket: true, AlertMessage: "Participant joined"},
			mode: models.ModeRegular,
			want: true,
		},
		{
			name: "marker matching is case-insensitive",
			raw:  models.RawSession{RoomName: "room-1", Socket: true, AlertMessage: "Connection ERROR detected"},
			mode: models.ModeRegular,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw, tt.mode))
		})
	}
}

func TestForcesDisconnect(t *testing.T) {
	assert.False(t, ForcesDisconnect(models.RawSession{RoomName: "room-1"}))
	assert.True(t, ForcesDisconnect(models.RawSession{RoomName: ""}))
	assert.True(t, ForcesDisconnect(models.RawSession{RoomName: "room-1", AlertMessage: "The meeting has ended"}))
	assert.False(t, ForcesDisconnect(models.RawSession{RoomName: "room-1", AlertMessage: "You are muted"}))
}

func TestDisconnectReasonPrecedence(t *testing.T) {
	tests := []struct {
		name        string
		raw         models.RawSession
		wantKind    models.DisconnectKind
		wantDetails string
	}{
		{
			name:        "meeting ended",
			raw:         models.RawSession{RoomName: "room-1", AlertMessage: "The meeting has ended"},
			wantKind:    models.DisconnectRoomEnded,
			wantDetails: "The meeting has ended",
		},
		{
			name: "meeting ended wins over disconnected when both appear",
			raw:  models.RawSession{RoomName: "room-1", AlertMessage: "the meeting has ended, disconnected"},
			wantKind: models.DisconnectRoomEnded,
			wantDetails: "the meeting has ended, disconnected",
		},
		{
			name:        "socket disconnect",
			raw:         models.RawSession{RoomName: "room-1", AlertMessage: "You were disconnected due to a network error"},
			wantKind:    models.DisconnectSocketError,
			wantDetails: "You were disconnected due to a network error",
		},
		{
			name:        "room not found",
			raw:         models.RawSession{RoomName: "room-1", AlertMessage: "Error: room not found"},
			wantKind:    models.DisconnectRoomEnded,
			wantDetails: "Error: room not found",
		},
		{
			name:        "invalid room",
			raw:         models.RawSession{RoomName: "room-1", AlertMessage: "Invalid room error"},
			wantKind:    models.DisconnectRoomEnded,
			wantDetails: "Invalid room error",
		},
		{
			name:        "blank room name without alert",
			raw:         models.RawSession{RoomName: ""},
			wantKind:    models.DisconnectRoomEnded,
			wantDetails: "Invalid room name detected",
		},
		{
			name:        "unclassified failure falls back to room ended",
			raw:         models.RawSession{RoomName: "room-1", AlertMessage: "Something failed"},
			wantKind:    models.DisconnectRoomEnded,
			wantDetails: "The room has ended",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := DisconnectReasonFor(tt.raw)
			assert.Equal(t, tt.wantKind, reason.Kind)
			assert.Equal(t, tt.wantDetails, reason.Details)
		})
	}
}
