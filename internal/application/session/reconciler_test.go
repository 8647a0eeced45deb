package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaverel/callbridge/internal/domain/models"
	"github.com/kaverel/callbridge/internal/ports"
)

// callbackRecorder collects every emitted signal for assertions.
type callbackRecorder struct {
	mu           sync.Mutex
	connections  []bool
	microphones  []bool
	participants [][]models.ParticipantSnapshot
	roomNames    []string
	disconnects  []models.DisconnectReason
}

func (r *callbackRecorder) callbacks() ports.SessionCallbacks {
	return ports.SessionCallbacks{
		OnConnectionChange: func(connected bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.connections = append(r.connections, connected)
		},
		OnMicrophoneChange: func(enabled bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.microphones = append(r.microphones, enabled)
		},
		OnParticipantsUpdate: func(p []models.ParticipantSnapshot) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.participants = append(r.participants, p)
		},
		OnRoomNameUpdate: func(name string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.roomNames = append(r.roomNames, name)
		},
		OnDisconnect: func(reason models.DisconnectReason) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.disconnects = append(r.disconnects, reason)
		},
	}
}

func (r *callbackRecorder) disconnectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.disconnects)
}

func connectedRaw(room string) models.RawSession {
	return models.RawSession{RoomName: room, Socket: true}
}

func TestReconcilerEmitsOnTransitionOnly(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeRegular, "room-1", 0, rec.callbacks())

	r.Apply(connectedRaw("room-1"))
	r.Apply(connectedRaw("room-1"))
	r.Apply(connectedRaw("room-1"))

	assert.Equal(t, []bool{true}, rec.connections)
	assert.Empty(t, rec.microphones)
	assert.Empty(t, rec.participants)
	assert.Empty(t, rec.roomNames)
	assert.Empty(t, rec.disconnects)
	assert.True(t, r.Snapshot().IsConnected)
}

func TestReconcilerConnectionLoss(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeRegular, "room-1", 0, rec.callbacks())

	r.Apply(connectedRaw("room-1"))
	r.Apply(models.RawSession{RoomName: "room-1"})

	assert.Equal(t, []bool{true, false}, rec.connections)
	assert.False(t, r.Snapshot().IsConnected)
}

func TestReconcilerParticipantsDiff(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeRegular, "room-1", 0, rec.callbacks())

	raw := connectedRaw("room-1")
	raw.Participants = []models.RawParticipant{
		{ID: "B", Name: "Bob"},
		{ID: "a", Name: "Alice"},
	}
	r.Apply(raw)

	// Same set in a different order must not re-emit.
	raw.Participants = []models.RawParticipant{
		{ID: "a", Name: "Alice"},
		{ID: "B", Name: "Bob"},
	}
	r.Apply(raw)

	require.Len(t, rec.participants, 1)
	assert.Equal(t, []models.ParticipantSnapshot{
		{ID: "a", Name: "Alice"},
		{ID: "B", Name: "Bob"},
	}, rec.participants[0])

	raw.Participants = raw.Participants[:1]
	r.Apply(raw)
	require.Len(t, rec.participants, 2)
}

func TestReconcilerMicrophoneSignal(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeRegular, "room-1", 0, rec.callbacks())

	raw := connectedRaw("room-1")
	raw.AudioAlreadyOn = true
	r.Apply(raw)
	r.Apply(raw)
	raw.AudioAlreadyOn = false
	r.Apply(raw)

	assert.Equal(t, []bool{true, false}, rec.microphones)
}

func TestReconcilerRoomAudioState(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeRegular, "room-1", 0, rec.callbacks())

	raw := connectedRaw("room-1")
	raw.AudioOnlyStreams = []string{"stream-1", "stream-2"}
	r.Apply(raw)

	snap := r.Snapshot()
	assert.True(t, snap.IsAudioEnabled)
	assert.Equal(t, []string{"stream-1", "stream-2"}, snap.RoomAudio)

	raw.AudioOnlyStreams = nil
	r.Apply(raw)
	assert.False(t, r.Snapshot().IsAudioEnabled)
}

func TestReconcilerRoomNameUpdate(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeRegular, "room-1", 0, rec.callbacks())

	r.Apply(connectedRaw("room-1"))
	r.Apply(connectedRaw("room-renamed"))
	r.Apply(connectedRaw("room-renamed"))

	assert.Equal(t, []string{"room-renamed"}, rec.roomNames)
}

func TestReconcilerForcedDisconnectRepeats(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeRegular, "room-1", 0, rec.callbacks())

	r.Apply(connectedRaw("room-1"))

	failed := connectedRaw("room-1")
	failed.AlertMessage = "The meeting has ended"
	r.Apply(failed)
	r.Apply(failed)
	r.Apply(failed)

	// The failure fires the disconnect callback on every tick it persists.
	require.Len(t, rec.disconnects, 3)
	for _, reason := range rec.disconnects {
		assert.Equal(t, models.DisconnectRoomEnded, reason.Kind)
	}
	assert.Equal(t, []bool{true, false}, rec.connections)
}

func TestReconcilerWatchdogFiresOnce(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeOutgoingSetup, "room-1", 20*time.Millisecond, rec.callbacks())
	r.Start()
	defer r.Teardown()

	assert.Eventually(t, func() bool {
		return rec.disconnectCount() == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, rec.disconnectCount())

	rec.mu.Lock()
	reason := rec.disconnects[0]
	rec.mu.Unlock()
	assert.Equal(t, models.DisconnectSocketError, reason.Kind)
	assert.Contains(t, reason.Details, "timeout")
}

func TestReconcilerWatchdogCancelledByConnect(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeOutgoingSetup, "room-1", 30*time.Millisecond, rec.callbacks())
	r.Start()
	defer r.Teardown()

	r.Apply(connectedRaw("room-1"))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, rec.disconnectCount())
}

func TestReconcilerWatchdogOnlyInOutgoingSetup(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeRegular, "room-1", 10*time.Millisecond, rec.callbacks())
	r.Start()
	defer r.Teardown()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.disconnectCount())
}

func TestReconcilerTeardownStopsEverything(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeOutgoingSetup, "room-1", 20*time.Millisecond, rec.callbacks())
	r.Start()
	r.Teardown()

	r.Apply(connectedRaw("room-1"))
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, rec.connections)
	assert.Equal(t, 0, rec.disconnectCount())
}

func TestReconcilerForceDisconnect(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeRegular, "room-1", 0, rec.callbacks())

	r.Apply(connectedRaw("room-1"))
	r.ForceDisconnect(models.DisconnectReason{Kind: models.DisconnectUser, Details: "User left the room"})

	assert.Equal(t, []bool{true, false}, rec.connections)
	require.Len(t, rec.disconnects, 1)
	assert.Equal(t, models.DisconnectUser, rec.disconnects[0].Kind)
	assert.False(t, r.Snapshot().IsConnected)
}

func TestReconcilerPatchIsOverwrittenByFeed(t *testing.T) {
	rec := &callbackRecorder{}
	r := NewReconciler(models.ModeRegular, "room-1", 0, rec.callbacks())

	r.Apply(connectedRaw("room-1"))
	r.Patch(func(s *models.RoomState) {
		s.CurrentCallData = &models.CallData{CallID: "c1", OnHold: true}
		s.IsMicEnabled = true
	})
	assert.True(t, r.Snapshot().IsMicEnabled)
	assert.Equal(t, "c1", r.Snapshot().CallID())

	// The next tick reasserts the feed-owned fields but leaves call data.
	r.Apply(connectedRaw("room-1"))
	assert.False(t, r.Snapshot().IsMicEnabled)
	assert.Equal(t, "c1", r.Snapshot().CallID())
}
