// Package model defines the records persisted by the verification stores
package model

import (
	"fmt"
	"time"

	"bitwise74/phone-verify/pkg/util"

	"github.com/google/uuid"
)

// SecretSize is the length of the HOTP key generated for every version
const SecretSize = 20

// State is derived from the current version of a phone, it is never stored
type State string

const (
	StateNoHistory State = "no_history"
	StatePending   State = "pending"
	StateExpired   State = "expired"
	StateCompleted State = "completed"
)

// Verification is one issuance attempt for a phone number. Phone and Version
// together identify the record, ID is handed to the caller.
type Verification struct {
	Phone     string     `gorm:"primaryKey;not null" dynamodbav:"phone" json:"phone"`
	Version   int64      `gorm:"primaryKey;autoIncrement:false" dynamodbav:"version" json:"version"`
	ID        string     `gorm:"uniqueIndex;not null" dynamodbav:"id" json:"id"`
	SecretKey []byte     `gorm:"not null" dynamodbav:"secret_key" json:"secret_key"`
	Created   time.Time  `gorm:"not null;index" dynamodbav:"created" json:"created"`
	Verified  *time.Time `dynamodbav:"verified,omitempty" json:"verified,omitempty"`
	Attempts  int        `gorm:"not null;default:0" dynamodbav:"attempts" json:"attempts"`
}

// NewVerification builds a fresh, unverified version with a new secret
func NewVerification(phone string, version int64, now time.Time) (*Verification, error) {
	secret, err := util.RandomBytes(SecretSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret key, %w", err)
	}

	return &Verification{
		Phone:     phone,
		Version:   version,
		ID:        uuid.NewString(),
		SecretKey: secret,
		Created:   now.UTC(),
	}, nil
}

// Expired reports whether an unverified version has outlived the validity window.
// Verified versions never expire.
func (v *Verification) Expired(now time.Time, validity time.Duration) bool {
	if v.Verified != nil {
		return false
	}

	return now.Sub(v.Created) > validity
}

// StateAt derives the lifecycle state of v at the given time
func (v *Verification) StateAt(now time.Time, validity time.Duration) State {
	switch {
	case v == nil:
		return StateNoHistory
	case v.Verified != nil:
		return StateCompleted
	case v.Expired(now, validity):
		return StateExpired
	default:
		return StatePending
	}
}
