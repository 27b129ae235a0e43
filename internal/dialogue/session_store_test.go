package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func sampleSession() *Session {
	day := time.Tuesday
	return &Session{
		ID:    "sess-1",
		State: StateOfferingSlots,
		Topic: TopicOnboarding,
		TimePreference: &TimePreference{
			Day:       &day,
			TimeOfDay: TimeOfDayMorning,
		},
		OfferedSlots: offeredSlots(),
		TimeZone:     "IST",
		Messages: []Message{
			{Role: RoleAssistant, Content: "hello", Timestamp: testNow},
		},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	sess := sampleSession()
	require.NoError(t, store.Create(ctx, sess))
	require.Equal(t, 1, store.Len())

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, StateOfferingSlots, got.State)
	require.Len(t, got.OfferedSlots, 3)

	// Mutating the read copy must not leak into the store.
	got.State = StateError
	got.OfferedSlots[0].ID = "mutated"
	again, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, StateOfferingSlots, again.State)
	require.NotEqual(t, "mutated", again.OfferedSlots[0].ID)

	got.State = StateConfirmingBooking
	require.NoError(t, store.Update(ctx, got))
	updated, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, StateConfirmingBooking, updated.State)
}

func TestInMemoryStoreMissing(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)

	err = store.Update(ctx, &Session{ID: "missing"})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour, nil)
	ctx := context.Background()

	sess := sampleSession()
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, sess.State, got.State)
	require.Equal(t, sess.Topic, got.Topic)
	require.NotNil(t, got.TimePreference)
	require.Equal(t, time.Tuesday, *got.TimePreference.Day)
	require.Len(t, got.Messages, 1)

	got.State = StateBookingConfirmed
	got.BookingCode = "AP-XY12"
	require.NoError(t, store.Update(ctx, got))

	final, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, StateBookingConfirmed, final.State)
	require.Equal(t, "AP-XY12", final.BookingCode)
}

func TestRedisStoreMissing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour, nil)

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleSession()))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "sess-1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreSurfacesBackendErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour, nil)

	mr.Close()
	_, err := store.Get(context.Background(), "sess-1")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrSessionNotFound))
}
