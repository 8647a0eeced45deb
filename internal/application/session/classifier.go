package session

import (
	"strings"

	"github.com/kaverel/callbridge/internal/domain/models"
)

// failureMarkers are the free-text fragments that mark an alert message as a
// failure. The upstream gateway has no formal alert grammar; these markers
// and the reason precedence below are contractual and must not be reordered.
var failureMarkers = []string{"ended", "failed", "error"}

// Facts are the connectivity-relevant booleans derived once per raw update.
type Facts struct {
	RoomNameValid    bool
	HasSocket        bool
	HasParticipants  bool
	NoFailureMessage bool
}

// FactsFor derives the classification facts from a raw parameter bag.
func FactsFor(raw models.RawSession) Facts {
	return Facts{
		RoomNameValid:    raw.RoomNameValid(),
		HasSocket:        raw.HasSocket(),
		HasParticipants:  raw.HasParticipants(),
		NoFailureMessage: !containsFailureMarker(raw.AlertMessage),
	}
}

// Connected applies the connectivity rules for the given session mode.
// A blank room name is a fatal precondition regardless of mode. During
// outgoing setup only the socket counts; in a regular session either the
// socket or a non-empty roster suffices.
func (f Facts) Connected(mode models.SessionMode) bool {
	if !f.RoomNameValid {
		return false
	}
	if mode == models.ModeOutgoingSetup {
		return f.HasSocket && f.NoFailureMessage
	}
	return (f.HasSocket || f.HasParticipants) && f.NoFailureMessage
}

// Classify returns the connected verdict for a raw update.
func Classify(raw models.RawSession, mode models.SessionMode) bool {
	return FactsFor(raw).Connected(mode)
}

// ForcesDisconnect reports whether this update must trigger the disconnect
// callback: an invalid room name or an alert message carrying any failure
// marker.
func ForcesDisconnect(raw models.RawSession) bool {
	return !raw.RoomNameValid() || containsFailureMarker(raw.AlertMessage)
}

// DisconnectReasonFor classifies a forced disconnect. Substring precedence
// on the alert message, first match wins: "meeting has ended" is checked
// before the more general "disconnected" even though a message could
// contain both.
func DisconnectReasonFor(raw models.RawSession) models.DisconnectReason {
	msg := strings.ToLower(raw.AlertMessage)

	switch {
	case strings.Contains(msg, "meeting has ended"):
		return models.DisconnectReason{Kind: models.DisconnectRoomEnded, Details: raw.AlertMessage}
	case strings.Contains(msg, "disconnected"):
		return models.DisconnectReason{Kind: models.DisconnectSocketError, Details: raw.AlertMessage}
	case strings.Contains(msg, "room not found"), strings.Contains(msg, "invalid room"):
		return models.DisconnectReason{Kind: models.DisconnectRoomEnded, Details: raw.AlertMessage}
	case !raw.RoomNameValid():
		return models.DisconnectReason{Kind: models.DisconnectRoomEnded, Details: "Invalid room name detected"}
	default:
		return models.DisconnectReason{Kind: models.DisconnectRoomEnded, Details: "The room has ended"}
	}
}

func containsFailureMarker(alert string) bool {
	if alert == "" {
		return false
	}
	msg := strings.ToLower(alert)
	for _, marker := range failureMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
