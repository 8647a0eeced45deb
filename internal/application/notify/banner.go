package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kaverel/callbridge/internal/adapters/id"
	"github.com/kaverel/callbridge/internal/adapters/metrics"
	"github.com/kaverel/callbridge/internal/domain/models"
)

// Queue is the depth-1, time-boxed banner slot. A new banner replaces the
// visible one and resets the dismiss timer, except when it carries the same
// ID as the visible banner, in which case it is dropped and the existing
// expiry timer is left untouched.
type Queue struct {
	ttl       time.Duration
	onShow    func(models.NotificationBanner)
	onDismiss func(bannerID string)

	mu      sync.Mutex
	current *models.NotificationBanner
	timer   *time.Timer
	closed  bool
}

// NewQueue creates a banner queue. onShow and onDismiss surface banner
// changes to the user interface and may be nil.
func NewQueue(ttl time.Duration, onShow func(models.NotificationBanner), onDismiss func(bannerID string)) *Queue {
	return &Queue{
		ttl:       ttl,
		onShow:    onShow,
		onDismiss: onDismiss,
	}
}

// Notify raises a banner with a generated ID.
func (q *Queue) Notify(title, message string, severity models.Severity) {
	q.NotifyWithID(id.NewBanner(), title, message, severity)
}

// NotifyWithID raises a banner under a caller-chosen ID, de-duplicating
// against the currently visible banner.
func (q *Queue) NotifyWithID(bannerID, title, message string, severity models.Severity) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	if q.current != nil && bannerID != "" && q.current.ID == bannerID {
		q.mu.Unlock()
		metrics.BannersTotal.WithLabelValues("deduped").Inc()
		return
	}

	banner := models.NotificationBanner{
		ID:        bannerID,
		Title:     title,
		Message:   message,
		Severity:  severity,
		ExpiresAt: time.Now().Add(q.ttl),
	}
	q.current = &banner

	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.ttl, func() { q.expire(bannerID) })
	q.mu.Unlock()

	slog.Debug("notify: banner shown", "id", bannerID, "title", title, "severity", severity)
	metrics.BannersTotal.WithLabelValues("shown").Inc()
	if q.onShow != nil {
		q.onShow(banner)
	}
}

// Current returns the visible banner, or nil when none is showing.
func (q *Queue) Current() *models.NotificationBanner {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return nil
	}
	banner := *q.current
	return &banner
}

// Dismiss clears the visible banner before its timer fires.
func (q *Queue) Dismiss() {
	q.mu.Lock()
	if q.current == nil {
		q.mu.Unlock()
		return
	}
	bannerID := q.current.ID
	q.current = nil
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.mu.Unlock()

	if q.onDismiss != nil {
		q.onDismiss(bannerID)
	}
}

// Close stops the dismiss timer and drops all future banners.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.current = nil
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

func (q *Queue) expire(bannerID string) {
	q.mu.Lock()
	// A newer banner may have replaced this one already.
	if q.closed || q.current == nil || q.current.ID != bannerID {
		q.mu.Unlock()
		return
	}
	q.current = nil
	q.timer = nil
	q.mu.Unlock()

	if q.onDismiss != nil {
		q.onDismiss(bannerID)
	}
}
