package models

// SessionMode distinguishes a session that is still setting up an outgoing
// call from a regular established session. Connectivity is judged more
// strictly during outgoing setup: the socket alone must be present.
type SessionMode string

const (
	ModeOutgoingSetup SessionMode = "outgoing-setup"
	ModeRegular       SessionMode = "regular"
)

// RoomStatus values derived from the raw session parameters.
const (
	RoomStatusActive = "active"
)

// Media source values carried in the call data.
const (
	MediaSourceAgent = "agent"
	MediaSourceHuman = "human"
	MediaSourceNone  = "none"
)

// CallData is the call-control view of the call attached to this session,
// refreshed from the call-control API and patched optimistically after
// successful control operations.
type CallData struct {
	CallID            string `json:"call_id"`
	ActiveMediaSource string `json:"active_media_source,omitempty"`
	OnHold            bool   `json:"on_hold,omitempty"`
	PlayToAll         bool   `json:"play_to_all,omitempty"`
	SetupComplete     bool   `json:"setup_complete,omitempty"`
}

// RoomState is the locally-owned session aggregate. It is mutated only by
// the session reconciler (fields driven by the external feed) and by the
// control orchestrator (optimistic patches after successful control calls).
type RoomState struct {
	IsConnected     bool                  `json:"is_connected"`
	IsMicEnabled    bool                  `json:"is_mic_enabled"`
	IsAudioEnabled  bool                  `json:"is_audio_enabled"`
	AudioLevel      float64               `json:"audio_level"`
	Participants    []ParticipantSnapshot `json:"participants"`
	RoomAudio       []string              `json:"room_audio,omitempty"`
	RoomStatus      string                `json:"room_status,omitempty"`
	AlertMessage    string                `json:"alert_message,omitempty"`
	CurrentCallData *CallData             `json:"current_call_data,omitempty"`
}

// CallID returns the attached call identifier, or "" when no call data is
// present.
func (s RoomState) CallID() string {
	if s.CurrentCallData == nil {
		return ""
	}
	return s.CurrentCallData.CallID
}

// HasCall reports whether a call is currently attached to the session.
func (s RoomState) HasCall() bool {
	return s.CallID() != ""
}
