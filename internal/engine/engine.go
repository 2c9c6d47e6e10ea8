// Package engine exposes the four boundary operations: store-secret,
// fetch-secret, store-file, fetch-file. It sequences quota, identifier,
// and repository work; no other business logic lives here.
package engine

import (
	"context"
	"time"

	"github.com/sealdrop/sealdrop/internal/blob"
	"github.com/sealdrop/sealdrop/internal/quota"
)

type Engine struct {
	repo    *blob.Repository
	quota   quota.Enforcer
	timeout time.Duration
}

// New wires an engine. timeout bounds every backing-store round-trip; a
// timed-out consuming fetch is surfaced as-is and never retried, since a
// retry could mask a completed burn.
func New(repo *blob.Repository, q quota.Enforcer, timeout time.Duration) *Engine {
	return &Engine{repo: repo, quota: q, timeout: timeout}
}

func (e *Engine) StoreSecret(ctx context.Context, payload []byte, ttl time.Duration, burnAfterRead bool) (blob.Entry, error) {
	if err := e.quota.Check(int64(len(payload))); err != nil {
		return blob.Entry{}, err
	}
	ctx, cancel := e.deadline(ctx)
	defer cancel()
	return e.repo.Store(ctx, blob.NamespaceSecret, payload, nil, ttl, burnAfterRead)
}

func (e *Engine) FetchSecret(ctx context.Context, id string, peek bool) (blob.Entry, error) {
	ctx, cancel := e.deadline(ctx)
	defer cancel()
	return e.repo.Fetch(ctx, blob.NamespaceSecret, id, peek)
}

func (e *Engine) StoreFile(ctx context.Context, payload []byte, meta blob.FileMetadata, ttl time.Duration, burnAfterRead bool) (blob.Entry, error) {
	if err := e.quota.Check(int64(len(payload))); err != nil {
		return blob.Entry{}, err
	}
	ctx, cancel := e.deadline(ctx)
	defer cancel()
	return e.repo.Store(ctx, blob.NamespaceFile, payload, &meta, ttl, burnAfterRead)
}

func (e *Engine) FetchFile(ctx context.Context, id string, peek bool) (blob.Entry, error) {
	ctx, cancel := e.deadline(ctx)
	defer cancel()
	return e.repo.Fetch(ctx, blob.NamespaceFile, id, peek)
}

func (e *Engine) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}
