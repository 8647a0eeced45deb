package domain

import "errors"

// Common domain errors
var (
	// Session errors
	ErrRoomNameInvalid  = errors.New("room name is missing or blank")
	ErrFeedDisconnected = errors.New("session feed disconnected")

	// Control errors
	ErrMissingCallID      = errors.New("no call attached to this session")
	ErrOperationInFlight  = errors.New("operation already in progress")
	ErrControlUnavailable = errors.New("call-control service unavailable")

	// Confirmation errors
	ErrConfirmationPending   = errors.New("a confirmation is already pending")
	ErrNoPendingConfirmation = errors.New("no confirmation is pending")
)

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error with context
func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}

// IsDomainError checks if an error is a DomainError
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
