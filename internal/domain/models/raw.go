package models

import "strings"

// RawSession is the externally-owned parameter bag the media SDK produces.
// It is replaced wholesale on each update and never mutated by the engine.
// The socket fields are presence markers only; the engine never touches the
// underlying handles.
type RawSession struct {
	RoomName         string           `json:"room_name,omitempty" msgpack:"roomName,omitempty"`
	Socket           bool             `json:"socket,omitempty" msgpack:"socket,omitempty"`
	LocalSocket      bool             `json:"local_socket,omitempty" msgpack:"localSocket,omitempty"`
	Participants     []RawParticipant `json:"participants,omitempty" msgpack:"participants,omitempty"`
	AudioAlreadyOn   bool             `json:"audio_already_on,omitempty" msgpack:"audioAlreadyOn,omitempty"`
	AudioLevel       float64          `json:"audio_level,omitempty" msgpack:"audioLevel,omitempty"`
	AudioOnlyStreams []string         `json:"audio_only_streams,omitempty" msgpack:"audioOnlyStreams,omitempty"`
	AlertMessage     string           `json:"alert_message,omitempty" msgpack:"alertMessage,omitempty"`
}

// RoomNameValid reports whether the room name is usable after trimming.
func (r RawSession) RoomNameValid() bool {
	return strings.TrimSpace(r.RoomName) != ""
}

// HasSocket reports whether either socket handle is present.
func (r RawSession) HasSocket() bool {
	return r.Socket || r.LocalSocket
}

// HasParticipants reports whether the raw participant list is non-empty.
func (r RawSession) HasParticipants() bool {
	return len(r.Participants) > 0
}
