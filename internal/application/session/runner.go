package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kaverel/callbridge/internal/adapters/id"
	"github.com/kaverel/callbridge/internal/adapters/metrics"
	"github.com/kaverel/callbridge/internal/application/control"
	"github.com/kaverel/callbridge/internal/application/notify"
	"github.com/kaverel/callbridge/internal/domain/models"
	"github.com/kaverel/callbridge/internal/ports"
)

// RunnerOptions carries everything one room-display session needs.
type RunnerOptions struct {
	Mode      models.SessionMode
	RoomName  string
	LocalName string

	Feed ports.SessionFeed
	API  ports.CallControl
	Mic  ports.MicrophoneControl

	Callbacks ports.SessionCallbacks

	ConnectTimeout       time.Duration
	SettleDelay          time.Duration
	StatsRefreshInterval time.Duration
	BannerTTL            time.Duration

	OnBanner        func(models.NotificationBanner)
	OnBannerDismiss func(bannerID string)
	OnConfirmation  func(models.ConfirmationRequest)
}

// Runner owns the lifecycle of one session: it drives the feed into the
// reconciler, keeps call stats fresh, and exposes call control to the
// host. Stop tears everything down; a stopped runner cannot be reused.
type Runner struct {
	sessionID    string
	reconciler   *Reconciler
	orchestrator *control.Orchestrator
	gate         *control.ConfirmationGate
	banners      *notify.Queue

	feed         ports.SessionFeed
	statsRefresh time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewRunner wires the session components together. The host's OnDisconnect
// callback receives every disconnect, whether user-initiated, forced by
// the feed, or raised by the connect watchdog.
func NewRunner(opts RunnerOptions) *Runner {
	r := &Runner{
		sessionID:    id.NewSession(),
		feed:         opts.Feed,
		statsRefresh: opts.StatsRefreshInterval,
	}

	r.reconciler = NewReconciler(opts.Mode, opts.RoomName, opts.ConnectTimeout, opts.Callbacks)
	r.banners = notify.NewQueue(opts.BannerTTL, opts.OnBanner, opts.OnBannerDismiss)
	r.gate = control.NewConfirmationGate(opts.OnConfirmation)
	r.orchestrator = control.NewOrchestrator(control.Options{
		API:         opts.API,
		State:       r.reconciler,
		Notifier:    r.banners,
		Confirm:     r.gate,
		Mic:         opts.Mic,
		Disconnect:  r.reconciler.ForceDisconnect,
		OnEndCall:   opts.Callbacks.OnEndCall,
		Mode:        opts.Mode,
		LocalName:   opts.LocalName,
		SettleDelay: opts.SettleDelay,
	})

	return r
}

// Start arms the connect watchdog and launches the feed and stats loops.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.reconciler.Start()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.feedLoop(ctx)
	}()

	if r.statsRefresh > 0 {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.orchestrator.RefreshLoop(ctx, r.statsRefresh)
		}()
	}

	slog.Info("session: started", "session_id", r.sessionID)
}

// feedLoop runs the feed, reconnecting with exponential backoff until
// the context ends. Each failed connection surfaces through the normal
// reconcile path on the next successful snapshot.
func (r *Runner) feedLoop(ctx context.Context) {
	delay := time.Second
	const maxDelay = 30 * time.Second

	for {
		err := r.feed.Run(ctx, r.reconciler)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("session: feed stopped, reconnecting", "error", err, "delay", delay)
		metrics.FeedReconnectsTotal.Inc()

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// Stop tears the session down: the feed stops, the watchdog is cancelled,
// pending banners are dropped, and no further callbacks fire.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	cancel := r.cancel
	r.mu.Unlock()

	r.reconciler.Teardown()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.banners.Close()
	slog.Info("session: stopped", "session_id", r.sessionID)
}

// SetCallData replaces the attached call data on behalf of a gateway
// push. A nil value detaches the call.
func (r *Runner) SetCallData(data *models.CallData) {
	r.reconciler.Patch(func(s *models.RoomState) {
		s.CurrentCallData = data
	})
}

// ID returns the engine-local identifier of this session.
func (r *Runner) ID() string {
	return r.sessionID
}

// State returns a copy of the current room state.
func (r *Runner) State() models.RoomState {
	return r.reconciler.Snapshot()
}

// Control exposes the call-control surface of this session.
func (r *Runner) Control() *control.Orchestrator {
	return r.orchestrator
}

// Confirmations exposes the pending-confirmation gate.
func (r *Runner) Confirmations() *control.ConfirmationGate {
	return r.gate
}

// Banners exposes the notification queue.
func (r *Runner) Banners() *notify.Queue {
	return r.banners
}
