package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrTransient         = errors.New("transient remote error")
	ErrRemote            = errors.New("remote request rejected")
	ErrAddressNotFound   = errors.New("address not recognized")
	ErrInvalidState      = errors.New("invalid conversation state")
	ErrUnroutable        = errors.New("no transition for event")
	ErrPaymentValidation = errors.New("payment payload mismatch")
	ErrLockTimeout       = errors.New("user lock not acquired")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrOperationFailed   = errors.New("operation failed")
)

// IsGatewayError reports whether err is one of the classified remote failures
// a commerce or geocoding adapter can return.
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrRemote)
}
