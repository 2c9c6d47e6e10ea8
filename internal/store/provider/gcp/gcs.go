package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	storetypes "github.com/sealdrop/sealdrop/internal/store/types"
)

// BucketHandle is the slice of the GCS bucket API the payload store uses.
type BucketHandle interface {
	Object(name string) ObjectHandle
}

// ObjectHandle is the slice of the GCS object API the payload store uses.
type ObjectHandle interface {
	NewReader(ctx context.Context) (io.ReadCloser, error)
	NewWriter(ctx context.Context) io.WriteCloser
	Delete(ctx context.Context) error
}

type bucketHandleWrapper struct {
	bucket *storage.BucketHandle
}

func (b *bucketHandleWrapper) Object(name string) ObjectHandle {
	return &objectHandleWrapper{obj: b.bucket.Object(name)}
}

type objectHandleWrapper struct {
	obj *storage.ObjectHandle
}

func (o *objectHandleWrapper) NewReader(ctx context.Context) (io.ReadCloser, error) {
	return o.obj.NewReader(ctx)
}

func (o *objectHandleWrapper) NewWriter(ctx context.Context) io.WriteCloser {
	return o.obj.NewWriter(ctx)
}

func (o *objectHandleWrapper) Delete(ctx context.Context) error {
	return o.obj.Delete(ctx)
}

// PayloadStore holds envelopes too large for a Firestore document. Objects
// are only reachable through their document, so lifecycle stays with the
// record store.
type PayloadStore struct {
	client *storage.Client
	bucket BucketHandle
}

func NewPayloadStore(ctx context.Context, bucket string) (*PayloadStore, error) {
	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &PayloadStore{
		client: client,
		bucket: &bucketHandleWrapper{bucket: client.Bucket(bucket)},
	}, nil
}

func (p *PayloadStore) Put(ctx context.Context, key string, data []byte) error {
	w := p.bucket.Object(objectKey(key)).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return fmt.Errorf("%w: upload payload: %w", storetypes.ErrUnavailable, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: upload payload: %w", storetypes.ErrUnavailable, err)
	}
	return nil
}

func (p *PayloadStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := p.bucket.Object(objectKey(key)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: download payload: %w", storetypes.ErrUnavailable, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read payload: %w", storetypes.ErrUnavailable, err)
	}
	return data, nil
}

func (p *PayloadStore) Delete(ctx context.Context, key string) error {
	if err := p.bucket.Object(objectKey(key)).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return fmt.Errorf("%w: delete payload: %w", storetypes.ErrUnavailable, err)
	}
	return nil
}

func (p *PayloadStore) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func objectKey(key string) string {
	return key + ".env"
}
