package service

import "errors"

var (
	ErrShareLinkNotFound = errors.New("share link not found")
	ErrShareLinkRevoked  = errors.New("share link revoked")
	ErrShareLinkExpired  = errors.New("share link expired")
	ErrUsageExceeded     = errors.New("share link usage limit reached")
	// ErrInvalidPassword covers both a wrong and a missing password, so the
	// response never reveals whether a link is password-protected.
	ErrInvalidPassword  = errors.New("invalid share link password")
	ErrClaimConflict    = errors.New("share link claim conflict, retry")
	ErrTooManyAttempts  = errors.New("too many claim attempts")
	ErrStoreUnavailable = errors.New("share link store unavailable")
)

// ValidationError reports malformed create input; the caller can correct the
// request and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
