package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStep(t *testing.T) {
	for _, value := range []string{"initial", "faq_handling", "ask_details", "suggest_dates", "confirm_date"} {
		step, err := ParseStep(value)
		require.NoError(t, err)
		assert.Equal(t, Step(value), step)
	}

	_, err := ParseStep("book_now")
	assert.Error(t, err)

	_, err = ParseStep("")
	assert.Error(t, err)
}

func TestSession_Validate(t *testing.T) {
	slot := func(id string) OfferedSlot {
		return OfferedSlot{ExternalID: id, Start: time.Now(), End: time.Now().Add(time.Hour), DisplayIndex: 1}
	}

	tests := []struct {
		name    string
		session Session
		wantErr bool
	}{
		{name: "fresh", session: *NewSession("u1")},
		{
			name:    "offer in confirm_date",
			session: Session{ID: "u1", Step: StepConfirmDate, OfferedSlots: []OfferedSlot{slot("a"), slot("b")}},
		},
		{
			name:    "offer outside confirm_date",
			session: Session{ID: "u1", Step: StepAskDetails, OfferedSlots: []OfferedSlot{slot("a")}},
			wantErr: true,
		},
		{
			name:    "duplicate ids",
			session: Session{ID: "u1", Step: StepConfirmDate, OfferedSlots: []OfferedSlot{slot("a"), slot("a")}},
			wantErr: true,
		},
		{
			name:    "unknown step",
			session: Session{ID: "u1", Step: "closing"},
			wantErr: true,
		},
		{
			name:    "pending choice out of range",
			session: Session{ID: "u1", Step: StepConfirmDate, OfferedSlots: []OfferedSlot{slot("a")}, PendingChoice: 2},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSession_MissingFieldsAndReset(t *testing.T) {
	sess := NewSession("")
	assert.Equal(t, DefaultID, sess.ID)
	assert.Equal(t, []string{"name", "university", "date"}, sess.MissingFields())

	sess.Name = "Tanaka"
	sess.RequestedPeriod = "next week"
	assert.Equal(t, []string{"university"}, sess.MissingFields())

	sess.Step = StepSuggestDates
	sess.Reset()
	assert.Equal(t, DefaultID, sess.ID)
	assert.Equal(t, StepInitial, sess.Step)
	assert.Empty(t, sess.Name)
}

func TestMemoryStore_GetPut(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StepInitial, sess.Step)

	sess.Step = StepConfirmDate
	sess.OfferedSlots = []OfferedSlot{{ExternalID: "a", DisplayIndex: 1}}
	require.NoError(t, store.Put(ctx, sess))

	// mutating the caller's copy must not leak into the store
	sess.OfferedSlots[0].ExternalID = "mutated"

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StepConfirmDate, got.Step)
	assert.Equal(t, "a", got.OfferedSlots[0].ExternalID)

	require.NoError(t, store.Delete(ctx, "u1"))
	got, err = store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StepInitial, got.Step)
}

func TestMemoryStore_RejectsInvalid(t *testing.T) {
	store := NewMemoryStore(time.Minute)

	err := store.Put(context.Background(), &Session{ID: "u1", Step: "bogus"})
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC)

	store := NewMemoryStore(10 * time.Minute)
	store.now = func() time.Time { return now }

	sess := NewSession("u1")
	sess.Step = StepAskDetails
	require.NoError(t, store.Put(ctx, sess))
	require.NoError(t, store.Put(ctx, NewSession("u2")))

	now = now.Add(5 * time.Minute)
	require.NoError(t, store.Put(ctx, NewSession("u2")))

	now = now.Add(6 * time.Minute)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StepInitial, got.Step)

	assert.Equal(t, 1, store.CleanupExpired())
	assert.Equal(t, 1, store.Len())
}

func TestKeyedLocker_MutualExclusion(t *testing.T) {
	locker := NewKeyedLocker()
	ctx := context.Background()

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := locker.Lock(ctx, "u1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())

	locker.mu.Lock()
	assert.Empty(t, locker.locks)
	locker.mu.Unlock()
}

func TestKeyedLocker_IndependentKeysAndCancel(t *testing.T) {
	locker := NewKeyedLocker()

	unlock, err := locker.Lock(context.Background(), "u1")
	require.NoError(t, err)

	other, err := locker.Lock(context.Background(), "u2")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := locker.Lock(context.Background(), "u1")
	require.NoError(t, err)
	again()
}

func newRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedisClient(t)
	store := NewRedisStore(client, 10*time.Minute)

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StepInitial, sess.Step)

	sess.Step = StepAskDetails
	sess.Name = "Tanaka"
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StepAskDetails, got.Step)
	assert.Equal(t, "Tanaka", got.Name)

	mr.FastForward(11 * time.Minute)

	got, err = store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StepInitial, got.Step)
}

func TestRedisLocker(t *testing.T) {
	_, client := newRedisClient(t)
	locker := NewRedisLocker(client)

	unlock, err := locker.Lock(context.Background(), "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "u1")
	assert.ErrorIs(t, err, ErrLocked)

	unlock()

	again, err := locker.Lock(context.Background(), "u1")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_RenewsLease(t *testing.T) {
	mr, client := newRedisClient(t)
	locker := NewRedisLocker(client)
	locker.ttl = 300 * time.Millisecond

	unlock, err := locker.Lock(context.Background(), "u1")
	require.NoError(t, err)

	key := lockPrefix + "u1"

	// a turn running longer than the lease keeps the lock
	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL(key) == 300*time.Millisecond
	}, 2*time.Second, 20*time.Millisecond)

	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL(key) == 300*time.Millisecond
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, mr.Exists(key))

	unlock()
	assert.False(t, mr.Exists(key))

	// unlock is idempotent
	unlock()
}
