package ports

import (
	"context"

	"github.com/kaverel/callbridge/internal/domain/models"
)

// HoldRequest configures a hold operation against the call-control API.
type HoldRequest struct {
	CallID         string `json:"call_id"`
	Message        string `json:"message,omitempty"`
	PauseRecording bool   `json:"pause_recording,omitempty"`
}

// SwitchSourceRequest switches the active audio source of a call. HumanName
// is only meaningful when switching to the human source.
type SwitchSourceRequest struct {
	CallID    string `json:"call_id"`
	Target    string `json:"target"`
	HumanName string `json:"human_name,omitempty"`
}

// PlayAudioRequest plays a server-side audio asset into the call.
type PlayAudioRequest struct {
	CallID    string `json:"call_id"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	Loop      bool   `json:"loop,omitempty"`
	Immediate bool   `json:"immediate,omitempty"`
}

// CallStats is the call-control view of the current call, used to refresh
// the locally-held call data.
type CallStats struct {
	CallID            string `json:"call_id"`
	ActiveMediaSource string `json:"active_media_source,omitempty"`
	OnHold            bool   `json:"on_hold,omitempty"`
	PlayToAll         bool   `json:"play_to_all,omitempty"`
	SetupComplete     bool   `json:"setup_complete,omitempty"`
}

// CallData converts the stats into the domain call data aggregate.
func (cs CallStats) CallData() *models.CallData {
	return &models.CallData{
		CallID:            cs.CallID,
		ActiveMediaSource: cs.ActiveMediaSource,
		OnHold:            cs.OnHold,
		PlayToAll:         cs.PlayToAll,
		SetupComplete:     cs.SetupComplete,
	}
}

// CallControl is the remote call-control API consumed by the orchestrator.
// Every method is a single async request/response exchange; failures are
// returned as errors carrying the server-provided message when present.
type CallControl interface {
	HoldCall(ctx context.Context, req HoldRequest) error
	UnholdCall(ctx context.Context, callID string) error
	SwitchSource(ctx context.Context, req SwitchSourceRequest) error
	StartAgent(ctx context.Context, callID string) error
	StopAgent(ctx context.Context, callID string) error
	UpdatePlayToAll(ctx context.Context, callID string, playToAll bool) error
	PlayAudio(ctx context.Context, req PlayAudioRequest) error
	GetCallStats(ctx context.Context) (*CallStats, error)
}
