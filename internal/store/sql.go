package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/phone-verify/internal/model"

	"gorm.io/gorm"
)

// SQL stores versions in a relational table keyed by (phone, version).
// The composite primary key is what rejects the losing insert of a race.
type SQL struct {
	db    *gorm.DB
	clock Clock
}

// NewSQL expects db to be opened with TranslateError so duplicate keys
// surface as gorm.ErrDuplicatedKey
func NewSQL(db *gorm.DB, clock Clock) *SQL {
	return &SQL{db: db, clock: clock}
}

func (s *SQL) latest(tx *gorm.DB, phone string) (int64, error) {
	var version int64

	err := tx.
		Model(model.Verification{}).
		Where("phone = ?", phone).
		Select("COALESCE(MAX(version), 0)").
		Row().
		Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

func (s *SQL) GetLatestVersion(ctx context.Context, phone string) (int64, bool, error) {
	version, err := s.latest(s.db.WithContext(ctx), phone)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query latest version, %w", err)
	}

	return version, version > 0, nil
}

func (s *SQL) InsertInitialVersion(ctx context.Context, phone string) (*model.Verification, error) {
	return s.insert(ctx, phone, 0)
}

func (s *SQL) InsertNextVersion(ctx context.Context, phone string, expectedCurrent int64) (*model.Verification, error) {
	return s.insert(ctx, phone, expectedCurrent)
}

func (s *SQL) insert(ctx context.Context, phone string, expectedCurrent int64) (*model.Verification, error) {
	v, err := model.NewVerification(phone, expectedCurrent+1, s.clock.now())
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.latest(tx, phone)
		if err != nil {
			return err
		}

		if current != expectedCurrent {
			return ErrConditionFailed
		}

		return tx.Create(v).Error
	})
	if err != nil {
		if errors.Is(err, ErrConditionFailed) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConditionFailed
		}

		return nil, fmt.Errorf("failed to insert version %d, %w", v.Version, err)
	}

	return v, nil
}

func (s *SQL) GetVerification(ctx context.Context, phone string, version int64) (*model.Verification, error) {
	var v model.Verification

	err := s.db.WithContext(ctx).
		Where("phone = ? AND version = ?", phone, version).
		First(&v).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to query verification, %w", err)
	}

	return &v, nil
}

func (s *SQL) GetRecentVerifications(ctx context.Context, phone string, limit int) ([]model.Verification, error) {
	var out []model.Verification

	err := s.db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("version DESC").
		Limit(limit).
		Find(&out).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent verifications, %w", err)
	}

	return out, nil
}

// DeleteSuperseded removes versions created before cutoff that are no longer
// the current version of their phone. The current version is always kept so
// version numbering keeps increasing.
func (s *SQL) DeleteSuperseded(ctx context.Context, cutoff time.Time) (int64, error) {
	r := s.db.WithContext(ctx).
		Where("created < ?", cutoff.UTC()).
		Where("version < (SELECT MAX(v2.version) FROM verifications v2 WHERE v2.phone = verifications.phone)").
		Delete(&model.Verification{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to delete superseded verifications, %w", r.Error)
	}

	return r.RowsAffected, nil
}
