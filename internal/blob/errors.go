package blob

import "errors"

var (
	// ErrNotFound covers absent, expired, and already-burned entries.
	// Callers must not be able to tell these apart.
	ErrNotFound = errors.New("blob: entry not found")

	// ErrPayloadTooLarge indicates the payload exceeds the configured ceiling.
	ErrPayloadTooLarge = errors.New("blob: payload too large")

	// ErrInvalidTTL indicates a requested TTL that is not positive or
	// exceeds the configured maximum.
	ErrInvalidTTL = errors.New("blob: invalid ttl")

	// ErrStorageTimeout indicates a backing-store call exceeded its
	// deadline. The outcome of the call is unknown; consuming operations
	// are never retried after it.
	ErrStorageTimeout = errors.New("blob: storage timeout")

	// ErrStorageUnavailable indicates the backing store is unreachable.
	ErrStorageUnavailable = errors.New("blob: storage unavailable")

	// ErrIDGeneration indicates the random source failed while minting an
	// identifier. Fatal for the request, never retried.
	ErrIDGeneration = errors.New("blob: id generation failed")
)
