package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaverel/callbridge/internal/domain/models"
)

type bannerRecorder struct {
	mu        sync.Mutex
	shown     []models.NotificationBanner
	dismissed []string
}

func (r *bannerRecorder) onShow(b models.NotificationBanner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, b)
}

func (r *bannerRecorder) onDismiss(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissed = append(r.dismissed, id)
}

func (r *bannerRecorder) dismissCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dismissed)
}

func TestQueueShowsAndExpires(t *testing.T) {
	rec := &bannerRecorder{}
	q := NewQueue(20*time.Millisecond, rec.onShow, rec.onDismiss)
	defer q.Close()

	q.Notify("Saved", "", models.SeveritySuccess)

	current := q.Current()
	require.NotNil(t, current)
	assert.Equal(t, "Saved", current.Title)
	assert.NotEmpty(t, current.ID)

	assert.Eventually(t, func() bool {
		return q.Current() == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.dismissCount())
}

func TestQueueReplacementResetsTimer(t *testing.T) {
	rec := &bannerRecorder{}
	q := NewQueue(50*time.Millisecond, rec.onShow, rec.onDismiss)
	defer q.Close()

	q.NotifyWithID("b1", "First", "", models.SeverityInfo)
	q.NotifyWithID("b2", "Second", "", models.SeverityWarning)

	current := q.Current()
	require.NotNil(t, current)
	assert.Equal(t, "b2", current.ID)
	require.Len(t, rec.shown, 2)

	// The replaced banner's timer must not dismiss the new one.
	time.Sleep(70 * time.Millisecond)
	assert.Nil(t, q.Current())
	assert.Equal(t, []string{"b2"}, rec.dismissed)
}

func TestQueueSameIDLeavesTimerUntouched(t *testing.T) {
	rec := &bannerRecorder{}
	q := NewQueue(60*time.Millisecond, rec.onShow, rec.onDismiss)
	defer q.Close()

	q.NotifyWithID("b1", "Hello", "", models.SeverityInfo)
	time.Sleep(40 * time.Millisecond)

	// Re-raising the same ID is dropped; the original expiry stands.
	q.NotifyWithID("b1", "Hello again", "", models.SeverityInfo)
	require.Len(t, rec.shown, 1)

	assert.Eventually(t, func() bool {
		return q.Current() == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"b1"}, rec.dismissed)
}

func TestQueueManualDismiss(t *testing.T) {
	rec := &bannerRecorder{}
	q := NewQueue(time.Minute, rec.onShow, rec.onDismiss)
	defer q.Close()

	q.NotifyWithID("b1", "Sticky", "", models.SeverityError)
	q.Dismiss()

	assert.Nil(t, q.Current())
	assert.Equal(t, []string{"b1"}, rec.dismissed)

	// Dismissing an empty queue is a no-op.
	q.Dismiss()
	assert.Equal(t, 1, rec.dismissCount())
}

func TestQueueClosedDropsBanners(t *testing.T) {
	rec := &bannerRecorder{}
	q := NewQueue(time.Minute, rec.onShow, rec.onDismiss)
	q.Close()

	q.Notify("Late", "", models.SeverityInfo)
	assert.Nil(t, q.Current())
	assert.Empty(t, rec.shown)
}
