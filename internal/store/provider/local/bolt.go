package local

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	storetypes "github.com/sealdrop/sealdrop/internal/store/types"
)

var payloadBucket = []byte("payloads")

// PayloadStore holds envelopes too large to inline in the records table.
// A payload is only reachable through its record row, so lifecycle stays
// with the SQLite store.
type PayloadStore struct {
	db *bolt.DB
}

func OpenPayloadStore(path string) (*PayloadStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open payload database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(payloadBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create payload bucket: %w", err)
	}
	return &PayloadStore{db: db}, nil
}

func (p *PayloadStore) Put(key string, data []byte) error {
	err := p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(payloadBucket).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("%w: store payload: %w", storetypes.ErrUnavailable, err)
	}
	return nil
}

func (p *PayloadStore) Get(key string) ([]byte, error) {
	var data []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(payloadBucket).Get([]byte(key))
		if v == nil {
			return storetypes.ErrNotFound
		}
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (p *PayloadStore) Delete(key string) error {
	err := p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(payloadBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: delete payload: %w", storetypes.ErrUnavailable, err)
	}
	return nil
}

func (p *PayloadStore) Close() error {
	return p.db.Close()
}
