package core

import "errors"

var (
	ErrInvalidIdentity      = errors.New("invalid identity key")
	ErrSignatureMismatch    = errors.New("signature mismatch")
	ErrUnknownChallenge     = errors.New("unknown challenge")
	ErrChallengeExpired     = errors.New("challenge has expired")
	ErrChallengeMismatch    = errors.New("event does not match challenge")
	ErrChallengeConsumed    = errors.New("challenge already consumed")
	ErrNotFound             = errors.New("provider not found")
	ErrInvalidConfiguration = errors.New("invalid configuration")

	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
)
