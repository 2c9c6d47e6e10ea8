// Package gcp backs the record store with Firestore, offloading envelopes
// that would approach Firestore's document size limit to GCS. The document
// is the single source of truth; the burning read runs inside a Firestore
// transaction so the flag check and the delete commit atomically.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	storetypes "github.com/sealdrop/sealdrop/internal/store/types"
)

// inlineLimit keeps documents under Firestore's 1MiB cap with headroom for
// field overhead.
const inlineLimit = 768 * 1024

// document is the Firestore encoding of a record. expires_at doubles as
// the field a TTL policy should be configured on; that sweep is lazy, so
// reads check expiry themselves.
type document struct {
	Envelope  []byte    `firestore:"envelope,omitempty"`
	BurnRead  bool      `firestore:"burn_read"`
	ExpiresAt time.Time `firestore:"expires_at"`
	External  bool      `firestore:"external"`
}

type Store struct {
	client     *firestore.Client
	collection string
	payloads   *PayloadStore
	now        func() time.Time
}

func New(ctx context.Context, projectID, database, bucket string) (*Store, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	payloads, err := NewPayloadStore(ctx, bucket)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &Store{
		client:     client,
		collection: "entries",
		payloads:   payloads,
		now:        time.Now,
	}, nil
}

func (s *Store) Put(ctx context.Context, key string, rec storetypes.Record) error {
	doc := document{
		BurnRead:  rec.BurnOnRead,
		ExpiresAt: rec.ExpiresAt,
		External:  len(rec.Envelope) > inlineLimit,
	}
	if doc.External {
		if err := s.payloads.Put(ctx, key, rec.Envelope); err != nil {
			return err
		}
	} else {
		doc.Envelope = rec.Envelope
	}

	_, err := s.client.Collection(s.collection).Doc(key).Create(ctx, doc)
	if err != nil {
		if doc.External {
			_ = s.payloads.Delete(context.WithoutCancel(ctx), key)
		}
		if status.Code(err) == codes.AlreadyExists {
			return storetypes.ErrKeyExists
		}
		return fmt.Errorf("%w: %w", storetypes.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Peek(ctx context.Context, key string) (storetypes.Record, error) {
	snap, err := s.client.Collection(s.collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return storetypes.Record{}, storetypes.ErrNotFound
		}
		return storetypes.Record{}, fmt.Errorf("%w: %w", storetypes.ErrUnavailable, err)
	}

	var doc document
	if err := snap.DataTo(&doc); err != nil {
		return storetypes.Record{}, fmt.Errorf("%w: decode document: %w", storetypes.ErrUnavailable, err)
	}
	return s.resolve(ctx, key, doc, false)
}

func (s *Store) Take(ctx context.Context, key string) (storetypes.Record, error) {
	ref := s.client.Collection(s.collection).Doc(key)

	var doc document
	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return storetypes.ErrNotFound
			}
			return err
		}
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
		if !doc.ExpiresAt.After(s.now()) {
			// Lingering past its TTL; the sweep owns the actual delete.
			return storetypes.ErrNotFound
		}
		if doc.BurnRead {
			return tx.Delete(ref)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storetypes.ErrNotFound) {
			return storetypes.Record{}, storetypes.ErrNotFound
		}
		return storetypes.Record{}, fmt.Errorf("%w: %w", storetypes.ErrUnavailable, err)
	}

	return s.resolve(ctx, key, doc, doc.BurnRead)
}

func (s *Store) Close() error {
	if err := s.payloads.Close(); err != nil {
		return err
	}
	return s.client.Close()
}

// resolve turns a fetched document into a record, loading the offloaded
// payload when needed. consumed marks that the document was just burned,
// in which case the orphaned object is removed best-effort.
func (s *Store) resolve(ctx context.Context, key string, doc document, consumed bool) (storetypes.Record, error) {
	if !doc.ExpiresAt.After(s.now()) {
		return storetypes.Record{}, storetypes.ErrNotFound
	}

	rec := storetypes.Record{
		Envelope:   doc.Envelope,
		BurnOnRead: doc.BurnRead,
		ExpiresAt:  doc.ExpiresAt,
	}
	if doc.External {
		var err error
		if rec.Envelope, err = s.payloads.Get(ctx, key); err != nil {
			return storetypes.Record{}, err
		}
		if consumed {
			_ = s.payloads.Delete(context.WithoutCancel(ctx), key)
		}
	}
	return rec, nil
}
