package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/phone-verify/internal/model"
	"bitwise74/phone-verify/internal/store"

	"go.uber.org/zap"
)

// Lifecycle resolves the current version of a phone. It keeps no state of its
// own: every call starts from a fresh store read and races are settled by the
// store's conditional inserts.
type Lifecycle struct {
	repo     store.Repository
	validity time.Duration
	now      func() time.Time
}

func NewLifecycle(repo store.Repository, validity time.Duration, now func() time.Time) *Lifecycle {
	if now == nil {
		now = time.Now
	}

	return &Lifecycle{repo: repo, validity: validity, now: now}
}

// ObtainCurrent returns the version a code should be derived from:
//   - no history: version 1 is created
//   - pending: the current version is returned untouched
//   - expired or completed: the next version is created
//
// A lost insert race is recovered by reading the winner's version once.
func (l *Lifecycle) ObtainCurrent(ctx context.Context, phone string) (*model.Verification, error) {
	latest, found, err := l.repo.GetLatestVersion(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if !found {
		v, err := l.repo.InsertInitialVersion(ctx, phone)
		if errors.Is(err, store.ErrConditionFailed) {
			zap.L().Debug("Lost race creating initial version", zap.String("phone", phone))
			return l.reread(ctx, phone)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}

		zap.L().Info("Created initial verification", zap.String("phone", phone), zap.String("id", v.ID))
		return v, nil
	}

	current, err := l.repo.GetVerification(ctx, phone, latest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	state := current.StateAt(l.now(), l.validity)
	if state == model.StatePending {
		zap.L().Debug("Reusing pending verification", zap.String("phone", phone), zap.Int64("version", current.Version))
		return current, nil
	}

	next, err := l.repo.InsertNextVersion(ctx, phone, current.Version)
	if errors.Is(err, store.ErrConditionFailed) {
		zap.L().Debug("Lost race creating next version", zap.String("phone", phone), zap.Int64("version", current.Version+1))
		return l.reread(ctx, phone)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	zap.L().Info("Created next verification",
		zap.String("phone", phone),
		zap.Int64("version", next.Version),
		zap.String("previous_state", string(state)),
	)

	return next, nil
}

// reread is the single recovery read after a conflicting insert. It does not
// loop: a failure here is returned to the caller.
func (l *Lifecycle) reread(ctx context.Context, phone string) (*model.Verification, error) {
	latest, found, err := l.repo.GetLatestVersion(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("%w: reread after conflict, %w", ErrPersistence, err)
	}

	if !found {
		return nil, fmt.Errorf("%w: no version found after conflicting insert", ErrPersistence)
	}

	v, err := l.repo.GetVerification(ctx, phone, latest)
	if err != nil {
		return nil, fmt.Errorf("%w: reread after conflict, %w", ErrPersistence, err)
	}

	return v, nil
}
