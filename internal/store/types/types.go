package types

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no live record exists for the key. Absent,
	// expired, and already-consumed records are indistinguishable.
	ErrNotFound = errors.New("store: record not found")

	// ErrKeyExists indicates a write targeted a key that is already present.
	// Keys are minted fresh for every write, so this should never happen.
	ErrKeyExists = errors.New("store: key already exists")

	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Record is the unit a backing store holds per identifier. Envelope is
// opaque to the store. BurnOnRead and ExpiresAt are carried as store-level
// attributes because the consume primitive and expiry enforcement need them
// without decoding the envelope.
type Record struct {
	Envelope   []byte
	BurnOnRead bool
	ExpiresAt  time.Time
}

// RecordStore is the contract consumed from a TTL-capable key-value
// backend. Expiry is owned by the backend: implementations with native TTL
// lean on it, and every implementation checks ExpiresAt on its read paths
// because TTL sweeps are allowed to lag.
type RecordStore interface {
	// Put writes a fresh record. Overwrites are rejected with ErrKeyExists.
	Put(ctx context.Context, key string, rec Record) error

	// Peek reads a record without side effects.
	Peek(ctx context.Context, key string) (Record, error)

	// Take reads a record and, if and only if its stored burn flag is set,
	// deletes it in the same indivisible backend operation. At most one
	// concurrent caller observes a burn-on-read record; the rest get
	// ErrNotFound. Records with the flag unset are returned untouched.
	Take(ctx context.Context, key string) (Record, error)

	// Close releases the backend connection.
	Close() error
}
