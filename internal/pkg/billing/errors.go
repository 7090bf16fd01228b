package billing

import "errors"

var (
	// ErrConfiguration reports missing provider credentials or ids.
	ErrConfiguration = errors.New("billing configuration error")
	// ErrValidation reports bad caller input, e.g. too few credits.
	ErrValidation = errors.New("validation error")
	// ErrSignature reports a forged or corrupted webhook delivery.
	ErrSignature = errors.New("invalid webhook signature")
	// ErrNotFound reports a missing user or webhook event.
	ErrNotFound = errors.New("not found")
	// ErrUpstream wraps any failed call to the payment provider.
	ErrUpstream = errors.New("payment provider error")
	// ErrStoreUnavailable is returned while the store still awaits approval.
	ErrStoreUnavailable = errors.New("store is not approved yet")

	// ErrUserNotFound reports a missing user. It matches ErrNotFound.
	ErrUserNotFound = &notFoundError{what: "user"}
	// ErrEventNotFound reports a missing webhook event. It matches ErrNotFound.
	ErrEventNotFound = &notFoundError{what: "webhook event"}
)

type notFoundError struct {
	what string
}

func (e *notFoundError) Error() string { return e.what + " not found" }

// Unwrap lets errors.Is(err, ErrNotFound) match the specific sentinels.
func (e *notFoundError) Unwrap() error { return ErrNotFound }
