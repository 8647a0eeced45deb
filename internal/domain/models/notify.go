package models

import "time"

// Severity grades user-facing notifications and confirmations.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// NotificationBanner is a transient, depth-1 user message. A banner with the
// same ID as the currently visible one is dropped without resetting the
// expiry timer.
type NotificationBanner struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	Severity  Severity  `json:"severity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConfirmationRequest asks the user to approve a gated control action. At
// most one request is outstanding at a time; OnConfirm runs on confirm only.
type ConfirmationRequest struct {
	Title     string
	Message   string
	Severity  Severity
	OnConfirm func()
}
