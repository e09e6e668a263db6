// Package store contains the backends that persist verification records.
// Every backend enforces the same conditional-write contract, the lifecycle
// in internal/service relies on it instead of holding locks.
package store

import (
	"context"
	"errors"
	"time"

	"bitwise74/phone-verify/internal/model"
)

var (
	// ErrConditionFailed is returned when a conditional insert lost a race:
	// version 1 already exists, or the expected version is no longer current.
	ErrConditionFailed = errors.New("conditional write failed")
	ErrNotFound        = errors.New("verification not found")
)

type Repository interface {
	// GetLatestVersion returns the highest version stored for phone. found is
	// false when the phone has no history.
	GetLatestVersion(ctx context.Context, phone string) (version int64, found bool, err error)

	// InsertInitialVersion creates version 1 only if the phone has no record yet
	InsertInitialVersion(ctx context.Context, phone string) (*model.Verification, error)

	// InsertNextVersion creates expectedCurrent+1 only if expectedCurrent is still the highest version
	InsertNextVersion(ctx context.Context, phone string, expectedCurrent int64) (*model.Verification, error)

	GetVerification(ctx context.Context, phone string, version int64) (*model.Verification, error)

	// GetRecentVerifications returns at most limit records, most recent first
	GetRecentVerifications(ctx context.Context, phone string, limit int) ([]model.Verification, error)
}

// Clock lets tests control record creation time
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}

	return c()
}
