package models

// DisconnectKind classifies why a session disconnected so the host can
// decide between retrying, giving up, or reporting that the room ended.
type DisconnectKind string

const (
	DisconnectUser        DisconnectKind = "user"
	DisconnectRoomEnded   DisconnectKind = "room-ended"
	DisconnectSocketError DisconnectKind = "socket-error"
)

// DisconnectReason is delivered to the host on every disconnect callback.
type DisconnectReason struct {
	Kind    DisconnectKind `json:"kind"`
	Details string         `json:"details,omitempty"`
}

func (r DisconnectReason) String() string {
	if r.Details == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ": " + r.Details
}
