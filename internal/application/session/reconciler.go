package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kaverel/callbridge/internal/adapters/metrics"
	"github.com/kaverel/callbridge/internal/domain/models"
	"github.com/kaverel/callbridge/internal/ports"
)

// Reconciler folds raw media-SDK snapshots into the locally-owned room
// state and emits host callbacks strictly on transition. It keeps the last
// raw parameter bag and the last emitted aggregate; on each update it
// normalizes the roster, diffs it against the previous snapshot, classifies
// connectivity, and patches only the fields that actually changed.
//
// Updates must be delivered one at a time; feeds replace the previous
// snapshot wholesale, so only the latest matters. Callbacks are invoked
// after the state commit and outside the internal lock.
type Reconciler struct {
	mode           models.SessionMode
	callbacks      ports.SessionCallbacks
	connectTimeout time.Duration

	mu       sync.Mutex
	state    models.RoomState
	roomName string
	lastRaw  models.RawSession
	haveRaw  bool
	watchdog *time.Timer
	tornDown bool
}

// NewReconciler creates a reconciler for one room-display session. roomName
// is the host-provided room name; connectTimeout arms the outgoing-setup
// watchdog and is ignored in regular mode or when zero.
func NewReconciler(mode models.SessionMode, roomName string, connectTimeout time.Duration, callbacks ports.SessionCallbacks) *Reconciler {
	return &Reconciler{
		mode:           mode,
		callbacks:      callbacks,
		connectTimeout: connectTimeout,
		roomName:       strings.TrimSpace(roomName),
	}
}

// Start arms the connection-timeout watchdog. In outgoing-setup mode the
// session must connect within the deadline or a socket-error disconnect is
// emitted exactly once. The watchdog is cancelled on first successful
// connect and on teardown.
func (r *Reconciler) Start() {
	if r.mode != models.ModeOutgoingSetup || r.connectTimeout <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tornDown || r.watchdog != nil {
		return
	}
	r.watchdog = time.AfterFunc(r.connectTimeout, r.watchdogExpired)
}

func (r *Reconciler) watchdogExpired() {
	r.mu.Lock()
	if r.tornDown || r.state.IsConnected {
		r.mu.Unlock()
		return
	}
	r.watchdog = nil
	r.mu.Unlock()

	reason := models.DisconnectReason{
		Kind:    models.DisconnectSocketError,
		Details: "Connection timeout waiting for the room to connect",
	}
	slog.Warn("reconciler: connection timeout", "room", r.roomName, "deadline", r.connectTimeout)
	metrics.DisconnectsTotal.WithLabelValues(string(reason.Kind)).Inc()
	if r.callbacks.OnDisconnect != nil {
		r.callbacks.OnDisconnect(reason)
	}
}

// Apply consumes one raw parameter update. It is the only writer of the
// feed-driven room state fields.
func (r *Reconciler) Apply(raw models.RawSession) {
	r.mu.Lock()
	if r.tornDown {
		r.mu.Unlock()
		return
	}

	metrics.ReconcileTicksTotal.Inc()

	prev := r.state
	normalized := models.NormalizeParticipants(raw.Participants)
	participantsChanged := !models.SnapshotsEqual(prev.Participants, normalized)

	facts := FactsFor(raw)
	connected := facts.Connected(r.mode)

	next := prev
	next.IsConnected = connected
	next.IsMicEnabled = raw.AudioAlreadyOn
	next.IsAudioEnabled = len(raw.AudioOnlyStreams) > 0
	next.AudioLevel = raw.AudioLevel
	if participantsChanged {
		next.Participants = normalized
	}
	if !stringSlicesEqual(prev.RoomAudio, raw.AudioOnlyStreams) {
		next.RoomAudio = raw.AudioOnlyStreams
	}
	if facts.HasSocket && facts.RoomNameValid {
		next.RoomStatus = models.RoomStatusActive
	} else {
		next.RoomStatus = ""
	}
	next.AlertMessage = raw.AlertMessage

	r.state = next
	r.lastRaw = raw
	r.haveRaw = true

	if connected && r.watchdog != nil {
		r.watchdog.Stop()
		r.watchdog = nil
	}

	emitConnection := connected != prev.IsConnected
	emitMic := next.IsMicEnabled != prev.IsMicEnabled

	externalName := strings.TrimSpace(raw.RoomName)
	emitRoomName := externalName != "" && externalName != r.roomName
	if emitRoomName {
		r.roomName = externalName
	}

	forced := ForcesDisconnect(raw)
	var reason models.DisconnectReason
	if forced {
		reason = DisconnectReasonFor(raw)
	}
	r.mu.Unlock()

	if emitConnection {
		slog.Info("reconciler: connection changed", "room", externalName, "connected", connected)
		metrics.SessionSignalsTotal.WithLabelValues("connection").Inc()
		if r.callbacks.OnConnectionChange != nil {
			r.callbacks.OnConnectionChange(connected)
		}
	}
	if emitMic {
		metrics.SessionSignalsTotal.WithLabelValues("microphone").Inc()
		if r.callbacks.OnMicrophoneChange != nil {
			r.callbacks.OnMicrophoneChange(next.IsMicEnabled)
		}
	}
	if participantsChanged {
		metrics.SessionSignalsTotal.WithLabelValues("participants").Inc()
		if r.callbacks.OnParticipantsUpdate != nil {
			r.callbacks.OnParticipantsUpdate(normalized)
		}
	}
	if emitRoomName {
		metrics.SessionSignalsTotal.WithLabelValues("room_name").Inc()
		if r.callbacks.OnRoomNameUpdate != nil {
			r.callbacks.OnRoomNameUpdate(externalName)
		}
	}
	if forced {
		// Fires on every tick while the failure condition persists; the
		// host handles disconnects idempotently.
		slog.Warn("reconciler: forced disconnect", "kind", reason.Kind, "details", reason.Details)
		metrics.DisconnectsTotal.WithLabelValues(string(reason.Kind)).Inc()
		if r.callbacks.OnDisconnect != nil {
			r.callbacks.OnDisconnect(reason)
		}
	}
}

// Snapshot returns a copy of the current room state.
func (r *Reconciler) Snapshot() models.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Patch applies an optimistic local update from the control layer. The next
// feed tick silently overwrites any guess it disagrees with.
func (r *Reconciler) Patch(patch func(*models.RoomState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tornDown {
		return
	}
	patch(&r.state)
}

// ForceDisconnect marks the session disconnected on behalf of the control
// layer (user-initiated leave) and emits the disconnect callback once.
func (r *Reconciler) ForceDisconnect(reason models.DisconnectReason) {
	r.mu.Lock()
	if r.tornDown {
		r.mu.Unlock()
		return
	}
	wasConnected := r.state.IsConnected
	r.state.IsConnected = false
	if r.watchdog != nil {
		r.watchdog.Stop()
		r.watchdog = nil
	}
	r.mu.Unlock()

	if wasConnected {
		metrics.SessionSignalsTotal.WithLabelValues("connection").Inc()
		if r.callbacks.OnConnectionChange != nil {
			r.callbacks.OnConnectionChange(false)
		}
	}
	metrics.DisconnectsTotal.WithLabelValues(string(reason.Kind)).Inc()
	if r.callbacks.OnDisconnect != nil {
		r.callbacks.OnDisconnect(reason)
	}
}

// Teardown stops the watchdog and drops all future updates. It is safe to
// call more than once.
func (r *Reconciler) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tornDown = true
	if r.watchdog != nil {
		r.watchdog.Stop()
		r.watchdog = nil
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
