// Package quota rejects oversized payloads before they reach the
// repository, so rejected uploads never cost a backing-store round-trip.
package quota

import "github.com/sealdrop/sealdrop/internal/blob"

type Enforcer struct {
	maxBytes int64
}

func NewEnforcer(maxBytes int64) Enforcer {
	return Enforcer{maxBytes: maxBytes}
}

// Check returns ErrPayloadTooLarge if size exceeds the configured ceiling.
func (e Enforcer) Check(size int64) error {
	if size > e.maxBytes {
		return blob.ErrPayloadTooLarge
	}
	return nil
}

// MaxBytes is the configured ceiling, for sizing transport body limits.
func (e Enforcer) MaxBytes() int64 {
	return e.maxBytes
}
