// Package local backs the record store with SQLite, offloading large
// envelopes to a bbolt database beside it. SQLite has no native TTL, so
// every read path compares expiry itself and a background sweep clears
// expired rows; the burning read is a single DELETE ... RETURNING so the
// flag check and the removal are one statement.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	storetypes "github.com/sealdrop/sealdrop/internal/store/types"
)

// inlineLimit keeps the records table lean; larger envelopes land in bbolt.
const inlineLimit = 64 * 1024

const sweepInterval = time.Minute

type Store struct {
	db       *sql.DB
	payloads *PayloadStore
	now      func() time.Time
	done     chan struct{}
}

func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, "records.db"))
	if err != nil {
		return nil, fmt.Errorf("open records database: %w", err)
	}

	payloads, err := OpenPayloadStore(filepath.Join(dataDir, "payloads.db"))
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:       db,
		payloads: payloads,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	if err := s.createTable(); err != nil {
		s.payloads.Close()
		db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}

	go s.sweepLoop()

	log.Printf("local store initialized at %s", dataDir)
	return s, nil
}

func (s *Store) createTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		envelope BLOB,
		external INTEGER NOT NULL,
		burn_read INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_expires_at ON records(expires_at);
	`)
	return err
}

func (s *Store) Put(ctx context.Context, key string, rec storetypes.Record) error {
	external := len(rec.Envelope) > inlineLimit
	var inline []byte
	if external {
		if err := s.payloads.Put(key, rec.Envelope); err != nil {
			return err
		}
	} else {
		inline = rec.Envelope
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, envelope, external, burn_read, expires_at) VALUES (?, ?, ?, ?, ?)`,
		key, inline, external, rec.BurnOnRead, rec.ExpiresAt.Unix(),
	)
	if err != nil {
		if external {
			_ = s.payloads.Delete(key)
		}
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return storetypes.ErrKeyExists
		}
		return fmt.Errorf("%w: %w", storetypes.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Peek(ctx context.Context, key string) (storetypes.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT envelope, external, burn_read, expires_at FROM records WHERE id = ? AND expires_at > ?`,
		key, s.now().Unix(),
	)
	return s.scanRecord(row, key)
}

func (s *Store) Take(ctx context.Context, key string) (storetypes.Record, error) {
	now := s.now().Unix()

	// Burning path: one statement checks the flag, checks expiry, and
	// removes the row.
	row := s.db.QueryRowContext(ctx,
		`DELETE FROM records WHERE id = ? AND burn_read = 1 AND expires_at > ?
		 RETURNING envelope, external, burn_read, expires_at`,
		key, now,
	)
	rec, err := s.scanRecord(row, key)
	if err == nil {
		// Row is gone; any offloaded payload is unreachable now.
		_ = s.payloads.Delete(key)
		return rec, nil
	}
	if !errors.Is(err, storetypes.ErrNotFound) {
		return storetypes.Record{}, err
	}

	// Absent, expired, or not burn-on-read. Non-burning rows are read in
	// place; they are never deleted by a fetch, so there is no window here.
	row = s.db.QueryRowContext(ctx,
		`SELECT envelope, external, burn_read, expires_at FROM records WHERE id = ? AND burn_read = 0 AND expires_at > ?`,
		key, now,
	)
	return s.scanRecord(row, key)
}

func (s *Store) Close() error {
	close(s.done)
	if err := s.payloads.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

func (s *Store) scanRecord(row *sql.Row, key string) (storetypes.Record, error) {
	var (
		inline   []byte
		external bool
		burn     bool
		expires  int64
	)
	err := row.Scan(&inline, &external, &burn, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return storetypes.Record{}, storetypes.ErrNotFound
	}
	if err != nil {
		return storetypes.Record{}, fmt.Errorf("%w: %w", storetypes.ErrUnavailable, err)
	}

	rec := storetypes.Record{
		Envelope:   inline,
		BurnOnRead: burn,
		ExpiresAt:  time.Unix(expires, 0),
	}
	if external {
		if rec.Envelope, err = s.payloads.Get(key); err != nil {
			return storetypes.Record{}, err
		}
	}
	return rec, nil
}

// sweepLoop clears expired rows and their offloaded payloads. Readers never
// depend on it: expiry is enforced on every read.
func (s *Store) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.sweep(); err != nil {
				log.Printf("expiry sweep: %v", err)
			}
		}
	}
}

func (s *Store) sweep() error {
	rows, err := s.db.Query(
		`DELETE FROM records WHERE expires_at <= ? RETURNING id, external`, s.now().Unix(),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       string
			external bool
		)
		if err := rows.Scan(&id, &external); err != nil {
			return err
		}
		if external {
			_ = s.payloads.Delete(id)
		}
	}
	return rows.Err()
}
