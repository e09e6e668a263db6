package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"bitwise74/phone-verify/internal/model"
	"bitwise74/phone-verify/internal/store"
)

const testPhone = "+16502530000"

var errUnreachable = errors.New("store unreachable")

// spyRepo counts calls and lets tests inject failures or simulated races
type spyRepo struct {
	store.Repository

	latestCalls atomic.Int32
	inserts     atomic.Int32
	reads       atomic.Int32

	// failLatestAfter makes GetLatestVersion fail once it was called this many times (0 disables)
	failLatestAfter int32

	// beforeInsert runs before every insert is forwarded, used to let a
	// competing request win the race
	beforeInsert func()
}

func (s *spyRepo) GetLatestVersion(ctx context.Context, phone string) (int64, bool, error) {
	n := s.latestCalls.Add(1)
	if s.failLatestAfter > 0 && n > s.failLatestAfter {
		return 0, false, errUnreachable
	}
	return s.Repository.GetLatestVersion(ctx, phone)
}

func (s *spyRepo) InsertInitialVersion(ctx context.Context, phone string) (*model.Verification, error) {
	s.inserts.Add(1)
	if s.beforeInsert != nil {
		s.beforeInsert()
	}
	return s.Repository.InsertInitialVersion(ctx, phone)
}

func (s *spyRepo) InsertNextVersion(ctx context.Context, phone string, expected int64) (*model.Verification, error) {
	s.inserts.Add(1)
	if s.beforeInsert != nil {
		s.beforeInsert()
	}
	return s.Repository.InsertNextVersion(ctx, phone, expected)
}

func (s *spyRepo) GetRecentVerifications(ctx context.Context, phone string, limit int) ([]model.Verification, error) {
	s.reads.Add(1)
	return s.Repository.GetRecentVerifications(ctx, phone, limit)
}

// brokenRepo fails every call
type brokenRepo struct{}

func (brokenRepo) GetLatestVersion(context.Context, string) (int64, bool, error) {
	return 0, false, errUnreachable
}

func (brokenRepo) InsertInitialVersion(context.Context, string) (*model.Verification, error) {
	return nil, errUnreachable
}

func (brokenRepo) InsertNextVersion(context.Context, string, int64) (*model.Verification, error) {
	return nil, errUnreachable
}

func (brokenRepo) GetVerification(context.Context, string, int64) (*model.Verification, error) {
	return nil, errUnreachable
}

func (brokenRepo) GetRecentVerifications(context.Context, string, int) ([]model.Verification, error) {
	return nil, errUnreachable
}

type sentMessage struct {
	Phone string
	Body  string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) Send(ctx context.Context, phone, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}

	f.sent = append(f.sent, sentMessage{Phone: phone, Body: body})
	return "msg", nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

var testNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func seed(m *store.Memory, version int64, created time.Time, verified *time.Time) model.Verification {
	v := model.Verification{
		Phone:     testPhone,
		Version:   version,
		ID:        "seed-" + string(rune('0'+version)),
		SecretKey: []byte("secret"),
		Created:   created,
		Verified:  verified,
	}
	if err := m.Put(v); err != nil {
		panic(err)
	}
	return v
}
