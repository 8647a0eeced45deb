// Package protocol defines the msgpack wire envelope of the call-gateway
// session feed.
package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kaverel/callbridge/internal/domain/models"
)

type MessageType string

const (
	// TypeSubscribe asks the gateway for state updates of one room.
	TypeSubscribe MessageType = "subscribe"
	// TypeSessionState carries a full raw session parameter snapshot.
	TypeSessionState MessageType = "session_state"
	// TypeCallData carries the call-control view of the attached call.
	TypeCallData MessageType = "call_data"
)

// Envelope frames every feed message.
type Envelope struct {
	RoomName string      `msgpack:"roomName,omitempty" json:"roomName,omitempty"`
	Type     MessageType `msgpack:"type" json:"type"`
	Body     any         `msgpack:"body" json:"body"`
}

func NewEnvelope(roomName string, msgType MessageType, body any) *Envelope {
	return &Envelope{
		RoomName: roomName,
		Type:     msgType,
		Body:     body,
	}
}

func (e *Envelope) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &e, nil
}

// DecodeBody converts a decoded envelope body (typically map[string]any)
// into the target struct type.
func DecodeBody[T any](e *Envelope) (*T, error) {
	if typed, ok := e.Body.(T); ok {
		return &typed, nil
	}

	// Re-encode and decode to convert map[string]any to struct
	data, err := msgpack.Marshal(e.Body)
	if err != nil {
		return nil, fmt.Errorf("re-encode body: %w", err)
	}

	var result T
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode body to %T: %w", result, err)
	}
	return &result, nil
}

// Subscribe is the body of a TypeSubscribe message.
type Subscribe struct {
	RoomName string `msgpack:"roomName" json:"roomName"`
}

// CallDataUpdate is the body of a TypeCallData message.
type CallDataUpdate struct {
	CallID            string `msgpack:"callId" json:"callId"`
	ActiveMediaSource string `msgpack:"activeMediaSource,omitempty" json:"activeMediaSource,omitempty"`
	OnHold            bool   `msgpack:"onHold,omitempty" json:"onHold,omitempty"`
	PlayToAll         bool   `msgpack:"playToAll,omitempty" json:"playToAll,omitempty"`
	SetupComplete     bool   `msgpack:"setupComplete,omitempty" json:"setupComplete,omitempty"`
}

// CallData converts the update into the engine's call data aggregate. An
// update without a call id reports no attached call.
func (u CallDataUpdate) CallData() *models.CallData {
	if u.CallID == "" {
		return nil
	}
	return &models.CallData{
		CallID:            u.CallID,
		ActiveMediaSource: u.ActiveMediaSource,
		OnHold:            u.OnHold,
		PlayToAll:         u.PlayToAll,
		SetupComplete:     u.SetupComplete,
	}
}
