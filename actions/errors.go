package actions

import (
	"errors"

	"bountylink-backend/ledger"
)

// ErrorKind classifies every failure the action surface can produce. Nothing
// below the composer leaks a raw error to the wire; each one is mapped to a
// kind and rendered as a well-formed, possibly disabled, action payload.
type ErrorKind int

const (
	// KindNetworkUnavailable covers unreachable collaborators (anchor
	// source, ledger, identity bridge). Retryable.
	KindNetworkUnavailable ErrorKind = iota
	// KindInvalidSignature means the caller's proof did not match the
	// expected challenge. Not retryable without a new challenge.
	KindInvalidSignature
	// KindResourceNotFound means the resource id does not exist. Terminal.
	KindResourceNotFound
	// KindStateConflict means the ledger rejected a write because the
	// submission already transitioned. Rendered as the current state.
	KindStateConflict
	// KindValidation means the hop context was malformed. Terminal.
	KindValidation
)

// Error is the single error type crossing package boundaries on the action
// surface.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NetworkUnavailable wraps an unreachable-collaborator failure.
func NetworkUnavailable(err error) *Error {
	return &Error{Kind: KindNetworkUnavailable, Message: "Service temporarily unavailable, please try again", Err: err}
}

// InvalidSignature is the verification failure every wallet client sees.
func InvalidSignature() *Error {
	return &Error{Kind: KindInvalidSignature, Message: "Invalid signature"}
}

// ResourceNotFound wraps a missing-resource failure.
func ResourceNotFound(err error) *Error {
	return &Error{Kind: KindResourceNotFound, Message: "Resource not found", Err: err}
}

// StateConflict wraps a ledger rejection of an already-transitioned write.
func StateConflict(err error) *Error {
	return &Error{Kind: KindStateConflict, Message: "Already processed", Err: err}
}

// Validation flags a malformed hop context.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Classify maps an arbitrary error into the taxonomy. Ledger sentinels keep
// their meaning; anything unrecognized is treated as a retryable network
// failure so clients always get a coherent next step.
func Classify(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return ResourceNotFound(err)
	case errors.Is(err, ledger.ErrConflict):
		return StateConflict(err)
	default:
		return NetworkUnavailable(err)
	}
}
