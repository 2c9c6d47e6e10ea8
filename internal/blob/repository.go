package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sealdrop/sealdrop/internal/ident"
	"github.com/sealdrop/sealdrop/internal/store/types"
)

// IDFunc mints an identifier under a namespace prefix.
type IDFunc func(prefix string) (string, error)

// Repository maps entry operations onto a RecordStore. It is stateless:
// every operation is a single round-trip and all shared state lives in the
// backing store, so any number of repository instances (in any number of
// processes) can run against the same store.
type Repository struct {
	store      types.RecordStore
	newID      IDFunc
	maxPayload int64
	maxTTL     time.Duration
	now        func() time.Time
}

func NewRepository(store types.RecordStore, maxPayloadBytes int64, maxTTL time.Duration) *Repository {
	return &Repository{
		store:      store,
		newID:      ident.New,
		maxPayload: maxPayloadBytes,
		maxTTL:     maxTTL,
		now:        time.Now,
	}
}

// Store validates, constructs, and persists a new entry, returning it with
// its minted identifier. The size check duplicates the ingress quota on
// purpose: the repository does not trust its callers to have run it.
func (r *Repository) Store(ctx context.Context, ns Namespace, payload []byte, meta *FileMetadata, ttl time.Duration, burnAfterRead bool) (Entry, error) {
	if ttl <= 0 || ttl > r.maxTTL {
		return Entry{}, ErrInvalidTTL
	}
	if int64(len(payload)) > r.maxPayload {
		return Entry{}, ErrPayloadTooLarge
	}

	id, err := r.newID(ns.Prefix())
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrIDGeneration, err)
	}

	now := r.now()
	entry := Entry{
		ID:            id,
		Payload:       payload,
		Metadata:      meta,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
		BurnAfterRead: burnAfterRead,
	}

	env, err := encodeEnvelope(entry)
	if err != nil {
		return Entry{}, err
	}

	err = r.store.Put(ctx, id, types.Record{
		Envelope:   env,
		BurnOnRead: burnAfterRead,
		ExpiresAt:  entry.ExpiresAt,
	})
	if err != nil {
		return Entry{}, storeError(err)
	}
	return entry, nil
}

// Fetch resolves an identifier. With peek set the read is side-effect-free.
// Without it, the backing store's conditional consume decides atomically
// between burning the entry and leaving it in place, based on the burn flag
// stored with the record itself; exactly one of any concurrently racing
// non-peek fetches for a burn-on-read entry gets the value.
func (r *Repository) Fetch(ctx context.Context, ns Namespace, id string, peek bool) (Entry, error) {
	if !ident.Valid(id, ns.Prefix()) {
		return Entry{}, ErrNotFound
	}

	var (
		rec types.Record
		err error
	)
	if peek {
		rec, err = r.store.Peek(ctx, id)
	} else {
		rec, err = r.store.Take(ctx, id)
	}
	if err != nil {
		return Entry{}, storeError(err)
	}

	env, err := decodeEnvelope(rec.Envelope)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		ID:            id,
		Payload:       env.Payload,
		Metadata:      env.Metadata,
		CreatedAt:     time.Unix(env.CreatedAt, 0).UTC(),
		ExpiresAt:     time.Unix(env.ExpiresAt, 0).UTC(),
		BurnAfterRead: rec.BurnOnRead,
	}, nil
}

// storeError maps backing-store failures onto the caller-facing taxonomy.
func storeError(err error) error {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrStorageTimeout, err)
	case errors.Is(err, types.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
}
