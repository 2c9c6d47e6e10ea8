// Package memory provides an in-process RecordStore. It backs unit tests
// and single-node ad-hoc runs; it offers no durability.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sealdrop/sealdrop/internal/store/types"
)

// Store keeps records in a mutex-guarded map. Expiry is lazy: expired
// records are dropped the next time any operation touches them.
type Store struct {
	mu   sync.Mutex
	recs map[string]types.Record
	now  func() time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock substitutes the time source, for expiry tests.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		recs: make(map[string]types.Record),
		now:  now,
	}
}

func (s *Store) Put(ctx context.Context, key string, rec types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.recs[key]; ok && old.ExpiresAt.After(s.now()) {
		return types.ErrKeyExists
	}
	s.recs[key] = rec
	return nil
}

func (s *Store) Peek(ctx context.Context, key string) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return types.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key)
}

func (s *Store) Take(ctx context.Context, key string) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return types.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.live(key)
	if err != nil {
		return types.Record{}, err
	}
	if rec.BurnOnRead {
		delete(s.recs, key)
	}
	return rec, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = make(map[string]types.Record)
	return nil
}

// live returns the record for key if present and unexpired, dropping it
// otherwise. Callers hold the lock.
func (s *Store) live(key string) (types.Record, error) {
	rec, ok := s.recs[key]
	if !ok {
		return types.Record{}, types.ErrNotFound
	}
	if !rec.ExpiresAt.After(s.now()) {
		delete(s.recs, key)
		return types.Record{}, types.ErrNotFound
	}
	return rec, nil
}
