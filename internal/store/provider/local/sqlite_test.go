package local

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storetypes "github.com/sealdrop/sealdrop/internal/store/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(burn bool, ttl time.Duration) storetypes.Record {
	return storetypes.Record{
		Envelope:   []byte("envelope"),
		BurnOnRead: burn,
		ExpiresAt:  time.Now().Add(ttl),
	}
}

func TestPutPeekRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "sps-a", record(true, time.Hour)))

	rec, err := s.Peek(ctx, "sps-a")
	require.NoError(t, err)
	assert.Equal(t, []byte("envelope"), rec.Envelope)
	assert.True(t, rec.BurnOnRead)
}

func TestPutRejectsDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "sps-a", record(true, time.Hour)))
	assert.ErrorIs(t, s.Put(ctx, "sps-a", record(true, time.Hour)), storetypes.ErrKeyExists)
}

func TestTakeBurnsExactlyOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "sps-a", record(true, time.Hour)))

	rec, err := s.Take(ctx, "sps-a")
	require.NoError(t, err)
	assert.Equal(t, []byte("envelope"), rec.Envelope)

	_, err = s.Take(ctx, "sps-a")
	assert.ErrorIs(t, err, storetypes.ErrNotFound)
}

func TestTakeKeepsNonBurning(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "sps-a", record(false, time.Hour)))

	for range 3 {
		rec, err := s.Take(ctx, "sps-a")
		require.NoError(t, err)
		assert.False(t, rec.BurnOnRead)
	}
}

func TestExpiryOnReadPaths(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "sps-a", record(true, time.Hour)))

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := s.Peek(ctx, "sps-a")
	assert.ErrorIs(t, err, storetypes.ErrNotFound)
	_, err = s.Take(ctx, "sps-a")
	assert.ErrorIs(t, err, storetypes.ErrNotFound)
}

func TestExternalPayloadOffload(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	big := bytes.Repeat([]byte("x"), inlineLimit+1)

	require.NoError(t, s.Put(ctx, "spf-big", storetypes.Record{
		Envelope:   big,
		BurnOnRead: true,
		ExpiresAt:  time.Now().Add(time.Hour),
	}))

	// The row must not carry the envelope inline.
	var inline []byte
	var external bool
	err := s.db.QueryRow(`SELECT envelope, external FROM records WHERE id = ?`, "spf-big").Scan(&inline, &external)
	require.NoError(t, err)
	assert.True(t, external)
	assert.Empty(t, inline)

	rec, err := s.Take(ctx, "spf-big")
	require.NoError(t, err)
	assert.Equal(t, big, rec.Envelope)

	// Burned record's payload is gone too.
	_, err = s.payloads.Get("spf-big")
	assert.ErrorIs(t, err, storetypes.ErrNotFound)
}

func TestSweepRemovesExpired(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	big := bytes.Repeat([]byte("x"), inlineLimit+1)

	require.NoError(t, s.Put(ctx, "sps-old", record(true, time.Millisecond)))
	require.NoError(t, s.Put(ctx, "spf-old", storetypes.Record{
		Envelope:   big,
		BurnOnRead: false,
		ExpiresAt:  time.Now().Add(time.Millisecond),
	}))
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, s.sweep())

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count))
	assert.Zero(t, count)
	_, err := s.payloads.Get("spf-old")
	assert.ErrorIs(t, err, storetypes.ErrNotFound)
}

func TestPayloadStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.payloads.Put("k", []byte("data")))
	data, err := s.payloads.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	require.NoError(t, s.payloads.Delete("k"))
	_, err = s.payloads.Get("k")
	assert.ErrorIs(t, err, storetypes.ErrNotFound)

	// Deleting an absent payload is a no-op.
	assert.NoError(t, s.payloads.Delete("k"))
}
