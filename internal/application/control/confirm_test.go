package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaverel/callbridge/internal/domain"
	"github.com/kaverel/callbridge/internal/domain/models"
)

func TestConfirmationGateSingleSlot(t *testing.T) {
	gate := NewConfirmationGate(nil)

	assert.True(t, gate.Raise(models.ConfirmationRequest{Title: "first"}))
	assert.False(t, gate.Raise(models.ConfirmationRequest{Title: "second"}))

	pending := gate.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, "first", pending.Title)
}

func TestConfirmationGateConfirmRunsAction(t *testing.T) {
	var raised []string
	gate := NewConfirmationGate(func(req models.ConfirmationRequest) {
		raised = append(raised, req.Title)
	})

	confirmed := false
	gate.Raise(models.ConfirmationRequest{
		Title:     "proceed?",
		OnConfirm: func() { confirmed = true },
	})
	assert.Equal(t, []string{"proceed?"}, raised)

	require.NoError(t, gate.Confirm())
	assert.True(t, confirmed)
	assert.Nil(t, gate.Pending())

	// The slot is free again after resolution.
	assert.True(t, gate.Raise(models.ConfirmationRequest{Title: "next"}))
}

func TestConfirmationGateCancelSkipsAction(t *testing.T) {
	gate := NewConfirmationGate(nil)

	confirmed := false
	gate.Raise(models.ConfirmationRequest{OnConfirm: func() { confirmed = true }})

	require.NoError(t, gate.Cancel())
	assert.False(t, confirmed)
	assert.Nil(t, gate.Pending())
}

func TestConfirmationGateResolveWithoutPending(t *testing.T) {
	gate := NewConfirmationGate(nil)

	assert.ErrorIs(t, gate.Confirm(), domain.ErrNoPendingConfirmation)
	assert.ErrorIs(t, gate.Cancel(), domain.ErrNoPendingConfirmation)
}

func TestConfirmationGateConfirmThenCancel(t *testing.T) {
	gate := NewConfirmationGate(nil)
	gate.Raise(models.ConfirmationRequest{})

	require.NoError(t, gate.Confirm())
	assert.ErrorIs(t, gate.Cancel(), domain.ErrNoPendingConfirmation)
}
