package control

import (
	"sync"

	"github.com/kaverel/callbridge/internal/domain"
	"github.com/kaverel/callbridge/internal/domain/models"
)

// ConfirmationGate holds at most one pending user confirmation. A pending
// request is resolved by exactly one of Confirm or Cancel; raising while a
// request is pending is rejected.
type ConfirmationGate struct {
	mu      sync.Mutex
	pending *models.ConfirmationRequest
	onRaise func(models.ConfirmationRequest)
}

// NewConfirmationGate creates a gate. onRaise surfaces the request to the
// user interface and may be nil.
func NewConfirmationGate(onRaise func(models.ConfirmationRequest)) *ConfirmationGate {
	return &ConfirmationGate{onRaise: onRaise}
}

// Raise places a request into the single pending slot. It reports false
// when another request is already pending.
func (g *ConfirmationGate) Raise(req models.ConfirmationRequest) bool {
	g.mu.Lock()
	if g.pending != nil {
		g.mu.Unlock()
		return false
	}
	g.pending = &req
	g.mu.Unlock()

	if g.onRaise != nil {
		g.onRaise(req)
	}
	return true
}

// Pending returns the outstanding request, or nil.
func (g *ConfirmationGate) Pending() *models.ConfirmationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil
	}
	req := *g.pending
	return &req
}

// Confirm resolves the pending request and runs its confirm action.
func (g *ConfirmationGate) Confirm() error {
	g.mu.Lock()
	req := g.pending
	g.pending = nil
	g.mu.Unlock()

	if req == nil {
		return domain.ErrNoPendingConfirmation
	}
	if req.OnConfirm != nil {
		req.OnConfirm()
	}
	return nil
}

// Cancel discards the pending request, leaving all state unchanged.
func (g *ConfirmationGate) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return domain.ErrNoPendingConfirmation
	}
	g.pending = nil
	return nil
}
