package services

import (
	"errors"
	"fmt"
)

type AuthReason string

const (
	AuthReasonInvalidEmail   AuthReason = "invalid_email"
	AuthReasonRejected       AuthReason = "rejected"
	AuthReasonUnavailable    AuthReason = "unavailable"
	AuthReasonInvalidLink    AuthReason = "invalid_link"
	AuthReasonExpiredLink    AuthReason = "expired_link"
	AuthReasonInvalidToken   AuthReason = "invalid_token"
	AuthReasonSessionExpired AuthReason = "session_expired"
)

// AuthRequestError is returned for every auth failure the caller can act on.
type AuthRequestError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthRequestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth request failed: %s", e.Reason)
	}
	return fmt.Sprintf("auth request failed: %s: %v", e.Reason, e.Err)
}

func (e *AuthRequestError) Unwrap() error { return e.Err }

func authErr(reason AuthReason, err error) error {
	return &AuthRequestError{Reason: reason, Err: err}
}

// AuthReasonOf reports the reason of an AuthRequestError anywhere in err's chain.
func AuthReasonOf(err error) (AuthReason, bool) {
	var ae *AuthRequestError
	if errors.As(err, &ae) {
		return ae.Reason, true
	}
	return "", false
}
