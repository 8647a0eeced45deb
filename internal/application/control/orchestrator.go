package control

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kaverel/callbridge/internal/adapters/id"
	"github.com/kaverel/callbridge/internal/adapters/metrics"
	"github.com/kaverel/callbridge/internal/domain"
	"github.com/kaverel/callbridge/internal/domain/models"
	"github.com/kaverel/callbridge/internal/ports"
)

// Operation is a control category. At most one instance per category may be
// in flight at a time.
type Operation string

const (
	OpHold          Operation = "hold"
	OpUnhold        Operation = "unhold"
	OpSwitchToAgent Operation = "switch-to-agent"
	OpSwitchToHuman Operation = "switch-to-human"
	OpStartAgent    Operation = "start-agent"
	OpStopAgent     Operation = "stop-agent"
	OpEndCall       Operation = "end-call"
	OpPlayAudio     Operation = "play-audio"
	OpSetPlayToAll  Operation = "set-play-to-all"
)

// Orchestrator serializes call-control operations against the remote API.
// Each operation runs Idle -> Loading -> Success (optimistic room-state
// patch plus a success banner) or Failure (error banner), then back to
// Idle. Optimistic patches are local guesses; they are never rolled back
// explicitly because the next feed tick is the single source of truth.
type Orchestrator struct {
	api        ports.CallControl
	state      ports.RoomStateStore
	notifier   ports.Notifier
	confirm    ports.ConfirmationSink
	mic        ports.MicrophoneControl
	disconnect func(models.DisconnectReason)
	onEndCall  func(callID string)

	mode        models.SessionMode
	localName   string
	settleDelay time.Duration

	mu       sync.Mutex
	inFlight map[Operation]bool
}

// Options carries the orchestrator collaborators and tunables.
type Options struct {
	API        ports.CallControl
	State      ports.RoomStateStore
	Notifier   ports.Notifier
	Confirm    ports.ConfirmationSink
	Mic        ports.MicrophoneControl
	Disconnect func(models.DisconnectReason)
	OnEndCall  func(callID string)

	Mode        models.SessionMode
	LocalName   string
	SettleDelay time.Duration
}

func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		api:         opts.API,
		state:       opts.State,
		notifier:    opts.Notifier,
		confirm:     opts.Confirm,
		mic:         opts.Mic,
		disconnect:  opts.Disconnect,
		onEndCall:   opts.OnEndCall,
		mode:        opts.Mode,
		localName:   opts.LocalName,
		settleDelay: opts.SettleDelay,
		inFlight:    make(map[Operation]bool),
	}
}

// Loading reports whether an operation of this category is in flight. The
// caller uses it to gate repeated requests; the orchestrator rejects them
// as no-ops rather than queueing.
func (o *Orchestrator) Loading(op Operation) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight[op]
}

func (o *Orchestrator) begin(op Operation) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[op] {
		return false
	}
	o.inFlight[op] = true
	return true
}

func (o *Orchestrator) end(op Operation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, op)
}

// run executes one control operation with in-flight gating, tracing and
// notifications. patch is applied only on success and may be nil.
func (o *Orchestrator) run(ctx context.Context, op Operation, callID string, call func(context.Context) error, patch func(*models.RoomState), successTitle string) error {
	if !o.begin(op) {
		metrics.ControlOpsTotal.WithLabelValues(string(op), "rejected").Inc()
		return domain.ErrOperationInFlight
	}
	defer o.end(op)

	opID := id.NewOperation()
	ctx, span := otel.Tracer("callbridge/control").Start(ctx, "control."+string(op),
		trace.WithAttributes(
			attribute.String("call.id", callID),
			attribute.String("control.op", string(op)),
			attribute.String("control.op_id", opID),
		))
	defer span.End()

	started := time.Now()
	err := call(ctx)
	metrics.ControlOpDuration.WithLabelValues(string(op)).Observe(time.Since(started).Seconds())

	if err != nil {
		slog.Error("control: operation failed", "op", op, "op_id", opID, "call_id", callID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "control call failed")
		metrics.ControlOpsTotal.WithLabelValues(string(op), "error").Inc()
		o.notifyError(errorTitle(op), err)
		return err
	}

	if patch != nil {
		o.state.Patch(patch)
	}
	if successTitle != "" && o.notifier != nil {
		o.notifier.Notify(successTitle, "", models.SeveritySuccess)
	}
	span.SetStatus(codes.Ok, "completed")
	metrics.ControlOpsTotal.WithLabelValues(string(op), "ok").Inc()
	return nil
}

// attachedCallID validates the missing-call-id precondition locally, before
// any network call, surfacing a violation as an error banner.
func (o *Orchestrator) attachedCallID(op Operation) (string, error) {
	callID := o.state.Snapshot().CallID()
	if callID == "" {
		metrics.ControlOpsTotal.WithLabelValues(string(op), "rejected").Inc()
		o.notifyError(errorTitle(op), domain.ErrMissingCallID)
		return "", domain.ErrMissingCallID
	}
	return callID, nil
}

// Hold puts the attached call on hold, optionally playing a hold message
// and pausing recording.
func (o *Orchestrator) Hold(ctx context.Context, message string, pauseRecording bool) error {
	callID, err := o.attachedCallID(OpHold)
	if err != nil {
		return err
	}
	return o.run(ctx, OpHold, callID, func(ctx context.Context) error {
		return o.api.HoldCall(ctx, ports.HoldRequest{CallID: callID, Message: message, PauseRecording: pauseRecording})
	}, func(s *models.RoomState) {
		if s.CurrentCallData != nil {
			s.CurrentCallData.OnHold = true
		}
	}, "Call placed on hold")
}

// Unhold resumes the attached call.
func (o *Orchestrator) Unhold(ctx context.Context) error {
	callID, err := o.attachedCallID(OpUnhold)
	if err != nil {
		return err
	}
	return o.run(ctx, OpUnhold, callID, func(ctx context.Context) error {
		return o.api.UnholdCall(ctx, callID)
	}, func(s *models.RoomState) {
		if s.CurrentCallData != nil {
			s.CurrentCallData.OnHold = false
		}
	}, "Call resumed")
}

// SwitchToAgent hands the call audio back to the agent.
func (o *Orchestrator) SwitchToAgent(ctx context.Context) error {
	callID, err := o.attachedCallID(OpSwitchToAgent)
	if err != nil {
		return err
	}
	return o.run(ctx, OpSwitchToAgent, callID, func(ctx context.Context) error {
		return o.api.SwitchSource(ctx, ports.SwitchSourceRequest{CallID: callID, Target: models.MediaSourceAgent})
	}, func(s *models.RoomState) {
		if s.CurrentCallData != nil {
			s.CurrentCallData.ActiveMediaSource = models.MediaSourceAgent
		}
	}, "Agent is back on the call")
}

// SwitchToHuman hands the call audio to the local human operator.
func (o *Orchestrator) SwitchToHuman(ctx context.Context) error {
	callID, err := o.attachedCallID(OpSwitchToHuman)
	if err != nil {
		return err
	}
	return o.run(ctx, OpSwitchToHuman, callID, func(ctx context.Context) error {
		return o.api.SwitchSource(ctx, ports.SwitchSourceRequest{CallID: callID, Target: models.MediaSourceHuman, HumanName: o.localName})
	}, func(s *models.RoomState) {
		if s.CurrentCallData != nil {
			s.CurrentCallData.ActiveMediaSource = models.MediaSourceHuman
		}
	}, "You are now on the call")
}

// StartAgent starts the agent on the attached call.
func (o *Orchestrator) StartAgent(ctx context.Context) error {
	callID, err := o.attachedCallID(OpStartAgent)
	if err != nil {
		return err
	}
	return o.run(ctx, OpStartAgent, callID, func(ctx context.Context) error {
		return o.api.StartAgent(ctx, callID)
	}, func(s *models.RoomState) {
		if s.CurrentCallData != nil {
			s.CurrentCallData.ActiveMediaSource = models.MediaSourceAgent
		}
	}, "Agent started")
}

// StopAgent stops the agent on the attached call.
func (o *Orchestrator) StopAgent(ctx context.Context) error {
	callID, err := o.attachedCallID(OpStopAgent)
	if err != nil {
		return err
	}
	return o.run(ctx, OpStopAgent, callID, func(ctx context.Context) error {
		return o.api.StopAgent(ctx, callID)
	}, func(s *models.RoomState) {
		if s.CurrentCallData != nil {
			s.CurrentCallData.ActiveMediaSource = models.MediaSourceNone
		}
	}, "Agent stopped")
}

// SetPlayToAll toggles whether played audio is heard by all parties.
func (o *Orchestrator) SetPlayToAll(ctx context.Context, playToAll bool) error {
	callID, err := o.attachedCallID(OpSetPlayToAll)
	if err != nil {
		return err
	}
	title := "Audio now plays to you only"
	if playToAll {
		title = "Audio now plays to everyone"
	}
	return o.run(ctx, OpSetPlayToAll, callID, func(ctx context.Context) error {
		return o.api.UpdatePlayToAll(ctx, callID, playToAll)
	}, func(s *models.RoomState) {
		if s.CurrentCallData != nil {
			s.CurrentCallData.PlayToAll = playToAll
		}
	}, title)
}

// PlayAudio plays a server-side audio asset into the call.
func (o *Orchestrator) PlayAudio(ctx context.Context, audioType, value string, loop, immediate bool) error {
	callID, err := o.attachedCallID(OpPlayAudio)
	if err != nil {
		return err
	}
	return o.run(ctx, OpPlayAudio, callID, func(ctx context.Context) error {
		return o.api.PlayAudio(ctx, ports.PlayAudioRequest{CallID: callID, Type: audioType, Value: value, Loop: loop, Immediate: immediate})
	}, nil, "Playing audio")
}

// EndCall detaches the current call and hands termination to the host. The
// call-control API has no end-call endpoint; a missing call identifier is a
// local validation failure and no callback fires.
func (o *Orchestrator) EndCall(ctx context.Context) error {
	callID, err := o.attachedCallID(OpEndCall)
	if err != nil {
		return err
	}
	return o.run(ctx, OpEndCall, callID, func(ctx context.Context) error {
		if o.onEndCall != nil {
			o.onEndCall(callID)
		}
		return nil
	}, func(s *models.RoomState) {
		s.CurrentCallData = nil
	}, "Call ended")
}

// TakeControl switches the active source to the human operator. When the
// local microphone is muted a confirmation is raised first; only on
// explicit confirm does the orchestrator unmute, wait the settle delay,
// then perform the switch. Declining leaves all state unchanged.
func (o *Orchestrator) TakeControl(ctx context.Context) error {
	if o.state.Snapshot().IsMicEnabled {
		return o.SwitchToHuman(ctx)
	}

	// The confirmation resolves after this call has returned, typically
	// long after the triggering request context was cancelled. The unmute
	// and switch must not inherit that cancellation.
	confirmCtx := context.WithoutCancel(ctx)
	req := models.ConfirmationRequest{
		Title:    "Microphone is muted",
		Message:  "Unmute your microphone to take control of this call?",
		Severity: models.SeverityWarning,
		OnConfirm: func() {
			if err := o.unmuteAndSwitch(confirmCtx); err != nil {
				slog.Error("control: take control failed", "error", err)
			}
		},
	}
	if o.confirm == nil || !o.confirm.Raise(req) {
		return domain.ErrConfirmationPending
	}
	return nil
}

func (o *Orchestrator) unmuteAndSwitch(ctx context.Context) error {
	if o.mic != nil {
		if err := o.mic.SetMicEnabled(true); err != nil {
			o.notifyError("Could not unmute microphone", err)
			return err
		}
	}
	o.state.Patch(func(s *models.RoomState) {
		s.IsMicEnabled = true
	})

	// Give the media path a moment to start publishing before the switch.
	if o.settleDelay > 0 {
		select {
		case <-ctx.Done():
			o.notifyError("Could not switch audio source", ctx.Err())
			return ctx.Err()
		case <-time.After(o.settleDelay):
		}
	}

	return o.SwitchToHuman(ctx)
}

// CloseRoom asks the user to confirm leaving; wording depends on whether
// the session is still setting up an outgoing call and whether a call is
// attached. Confirming runs the user-initiated disconnect path.
func (o *Orchestrator) CloseRoom() error {
	snap := o.state.Snapshot()

	var title, message string
	switch {
	case o.mode == models.ModeOutgoingSetup:
		title = "Cancel this call?"
		message = "The call is still being set up. Leaving now will cancel it."
	case snap.HasCall():
		title = "Close this room?"
		message = "Closing this room may end the active call."
	default:
		title = "Leave this room?"
		message = "You can rejoin from the call history."
	}

	req := models.ConfirmationRequest{
		Title:    title,
		Message:  message,
		Severity: models.SeverityWarning,
		OnConfirm: func() {
			if o.disconnect != nil {
				o.disconnect(models.DisconnectReason{Kind: models.DisconnectUser, Details: "User left the room"})
			}
		},
	}
	if o.confirm == nil || !o.confirm.Raise(req) {
		return domain.ErrConfirmationPending
	}
	return nil
}

// RefreshLoop polls call stats on the given interval and replaces the
// locally-held call data, until the context ends. Poll failures are logged
// and skipped; the previous call data stays in place.
func (o *Orchestrator) RefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := o.api.GetCallStats(ctx)
			if err != nil {
				slog.Debug("control: call stats refresh failed", "error", err)
				continue
			}
			if stats == nil || stats.CallID == "" {
				continue
			}
			o.state.Patch(func(s *models.RoomState) {
				s.CurrentCallData = stats.CallData()
			})
		}
	}
}

func (o *Orchestrator) notifyError(title string, err error) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(title, err.Error(), models.SeverityError)
}

func errorTitle(op Operation) string {
	switch op {
	case OpHold:
		return "Could not hold the call"
	case OpUnhold:
		return "Could not resume the call"
	case OpSwitchToAgent, OpSwitchToHuman:
		return "Could not switch audio source"
	case OpStartAgent:
		return "Could not start the agent"
	case OpStopAgent:
		return "Could not stop the agent"
	case OpEndCall:
		return "Could not end the call"
	case OpPlayAudio:
		return "Could not play audio"
	case OpSetPlayToAll:
		return "Could not update audio routing"
	default:
		return "Operation failed"
	}
}
