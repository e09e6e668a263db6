// Package service implements phone verification issuance: the per-phone rate
// limit, the version lifecycle and the request orchestration around them
package service

import (
	"errors"

	"bitwise74/phone-verify/pkg/phone"
)

var (
	ErrMissingPhone      = phone.ErrMissing
	ErrInvalidPhone      = phone.ErrInvalid
	ErrRateLimitExceeded = errors.New("too many verification attempts for this phone")

	// ErrPersistence wraps every store failure that survived the single
	// conflict retry. Nothing was guaranteed to be written, retrying is safe.
	ErrPersistence = errors.New("verification store failure")

	// ErrDelivery wraps provider failures. The resolved version stays valid,
	// a retry reuses it.
	ErrDelivery = errors.New("verification message delivery failure")
)
