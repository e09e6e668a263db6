package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"bitwise74/phone-verify/internal/model"
	"bitwise74/phone-verify/internal/store"

	"github.com/stretchr/testify/require"
)

const validity = 3 * time.Minute

func TestObtainCurrentNoHistory(t *testing.T) {
	mem := store.NewMemory(fixedNow)
	l := NewLifecycle(mem, validity, fixedNow)

	v, err := l.ObtainCurrent(context.Background(), testPhone)
	require.NoError(t, err)
	require.Equal(t, int64(1), v.Version)
	require.Equal(t, testPhone, v.Phone)
	require.Zero(t, v.Attempts)
	require.Nil(t, v.Verified)
}

func TestObtainCurrentPendingIsReused(t *testing.T) {
	mem := store.NewMemory(fixedNow)
	spy := &spyRepo{Repository: mem}
	l := NewLifecycle(spy, validity, fixedNow)
	seeded := seed(mem, 1, testNow.Add(-time.Minute), nil)

	v, err := l.ObtainCurrent(context.Background(), testPhone)
	require.NoError(t, err)
	require.Equal(t, seeded.ID, v.ID)
	require.Equal(t, seeded.SecretKey, v.SecretKey)
	require.Zero(t, spy.inserts.Load())
}

func TestObtainCurrentExpiredRollsForward(t *testing.T) {
	mem := store.NewMemory(fixedNow)
	l := NewLifecycle(mem, validity, fixedNow)
	old := seed(mem, 1, testNow.Add(-4*time.Minute), nil)

	v, err := l.ObtainCurrent(context.Background(), testPhone)
	require.NoError(t, err)
	require.Equal(t, int64(2), v.Version)
	require.NotEqual(t, old.ID, v.ID)
	require.NotEqual(t, old.SecretKey, v.SecretKey)

	stored, err := mem.GetVerification(context.Background(), testPhone, 1)
	require.NoError(t, err)
	require.Equal(t, old.ID, stored.ID)
	require.Equal(t, old.SecretKey, stored.SecretKey)
	require.True(t, old.Created.Equal(stored.Created))
}

func TestObtainCurrentCompletedRollsForward(t *testing.T) {
	mem := store.NewMemory(fixedNow)
	l := NewLifecycle(mem, validity, fixedNow)
	verifiedAt := testNow.Add(-30 * time.Second)
	seed(mem, 1, testNow.Add(-time.Minute), &verifiedAt)

	v, err := l.ObtainCurrent(context.Background(), testPhone)
	require.NoError(t, err)
	require.Equal(t, int64(2), v.Version)
	require.Nil(t, v.Verified)
}

func TestObtainCurrentLostInitialRace(t *testing.T) {
	mem := store.NewMemory(fixedNow)
	var winner *model.Verification

	spy := &spyRepo{Repository: mem}
	spy.beforeInsert = func() {
		if winner == nil {
			var err error
			winner, err = mem.InsertInitialVersion(context.Background(), testPhone)
			require.NoError(t, err)
		}
	}

	v, err := NewLifecycle(spy, validity, fixedNow).ObtainCurrent(context.Background(), testPhone)
	require.NoError(t, err)
	require.Equal(t, winner.ID, v.ID)
	require.Equal(t, int32(1), spy.inserts.Load())
	require.Equal(t, int32(2), spy.latestCalls.Load())
}

func TestObtainCurrentLostNextRace(t *testing.T) {
	mem := store.NewMemory(fixedNow)
	seed(mem, 1, testNow.Add(-time.Hour), nil)
	var winner *model.Verification

	spy := &spyRepo{Repository: mem}
	spy.beforeInsert = func() {
		if winner == nil {
			var err error
			winner, err = mem.InsertNextVersion(context.Background(), testPhone, 1)
			require.NoError(t, err)
		}
	}

	v, err := NewLifecycle(spy, validity, fixedNow).ObtainCurrent(context.Background(), testPhone)
	require.NoError(t, err)
	require.Equal(t, winner.ID, v.ID)
	require.Equal(t, int64(2), v.Version)
	require.Equal(t, int32(1), spy.inserts.Load())

	recent, err := mem.GetRecentVerifications(context.Background(), testPhone, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
}

func TestObtainCurrentRetriesOnlyOnce(t *testing.T) {
	mem := store.NewMemory(fixedNow)
	spy := &spyRepo{Repository: mem, failLatestAfter: 1}
	spy.beforeInsert = func() {
		_, _ = mem.InsertInitialVersion(context.Background(), testPhone)
	}

	_, err := NewLifecycle(spy, validity, fixedNow).ObtainCurrent(context.Background(), testPhone)
	require.ErrorIs(t, err, ErrPersistence)
	require.Equal(t, int32(1), spy.inserts.Load())
	require.Equal(t, int32(2), spy.latestCalls.Load())
}

func TestObtainCurrentStoreUnreachable(t *testing.T) {
	_, err := NewLifecycle(brokenRepo{}, validity, fixedNow).ObtainCurrent(context.Background(), testPhone)
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, errUnreachable)
}

func TestObtainCurrentConcurrentNewPhone(t *testing.T) {
	mem := store.NewMemory(fixedNow)
	l := NewLifecycle(mem, validity, fixedNow)

	const workers = 16
	ids := make([]string, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			v, err := l.ObtainCurrent(context.Background(), testPhone)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			ids[i] = v.ID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}

	recent, err := mem.GetRecentVerifications(context.Background(), testPhone, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}
