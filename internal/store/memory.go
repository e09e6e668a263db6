package store

import (
	"context"
	"sync"

	"bitwise74/phone-verify/internal/model"
)

// Memory keeps every version in process memory.
// It is only safe for single-process deployments.
type Memory struct {
	mu    sync.Mutex
	items map[string][]model.Verification
	clock Clock
}

func NewMemory(clock Clock) *Memory {
	return &Memory{items: make(map[string][]model.Verification), clock: clock}
}

func (m *Memory) GetLatestVersion(ctx context.Context, phone string) (int64, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.items[phone]
	if len(versions) == 0 {
		return 0, false, nil
	}

	return versions[len(versions)-1].Version, true, nil
}

func (m *Memory) InsertInitialVersion(ctx context.Context, phone string) (*model.Verification, error) {
	return m.insert(ctx, phone, 0)
}

func (m *Memory) InsertNextVersion(ctx context.Context, phone string, expectedCurrent int64) (*model.Verification, error) {
	return m.insert(ctx, phone, expectedCurrent)
}

func (m *Memory) insert(ctx context.Context, phone string, expectedCurrent int64) (*model.Verification, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	if int64(len(m.items[phone])) != expectedCurrent {
		return nil, ErrConditionFailed
	}

	v, err := model.NewVerification(phone, expectedCurrent+1, m.clock.now())
	if err != nil {
		return nil, err
	}

	m.items[phone] = append(m.items[phone], *v)
	return copyVerification(v), nil
}

func (m *Memory) GetVerification(ctx context.Context, phone string, version int64) (*model.Verification, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.items[phone]
	if version < 1 || version > int64(len(versions)) {
		return nil, ErrNotFound
	}

	return copyVerification(&versions[version-1]), nil
}

func (m *Memory) GetRecentVerifications(ctx context.Context, phone string, limit int) ([]model.Verification, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.items[phone]
	out := make([]model.Verification, 0, min(limit, len(versions)))
	for i := len(versions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *copyVerification(&versions[i]))
	}

	return out, nil
}

// Put stores v as the next version of its phone, replacing nothing.
// Used to seed histories with arbitrary timestamps.
func (m *Memory) Put(v model.Verification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if int64(len(m.items[v.Phone]))+1 != v.Version {
		return ErrConditionFailed
	}

	m.items[v.Phone] = append(m.items[v.Phone], *copyVerification(&v))
	return nil
}

func copyVerification(v *model.Verification) *model.Verification {
	c := *v
	c.SecretKey = append([]byte(nil), v.SecretKey...)
	if v.Verified != nil {
		t := *v.Verified
		c.Verified = &t
	}

	return &c
}
