// Package blob implements the entry lifecycle: storing opaque ciphertext
// under short-lived identifiers and resolving burning, non-burning, and
// peek reads against a TTL-capable backing store.
package blob

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/sealdrop/sealdrop/internal/ident"
)

// Namespace partitions the identifier space. Secrets and files never
// resolve against each other.
type Namespace string

const (
	NamespaceSecret Namespace = "secret"
	NamespaceFile   Namespace = "file"
)

// Prefix returns the identifier prefix entries of this namespace carry.
func (ns Namespace) Prefix() string {
	if ns == NamespaceFile {
		return ident.FilePrefix
	}
	return ident.SecretPrefix
}

// FileMetadata is client-supplied and opaque; none of it is validated for
// meaning.
type FileMetadata struct {
	Filename    string `json:"originalFilename,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	SizeBytes   int64  `json:"sizeBytes,omitempty"`
}

// Entry is a stored blob as seen by callers. Payload is ciphertext the
// service never interprets.
type Entry struct {
	ID            string
	Payload       []byte
	Metadata      *FileMetadata
	CreatedAt     time.Time
	ExpiresAt     time.Time
	BurnAfterRead bool
}

// envelope is the on-store encoding of an entry: JSON, brotli-compressed.
// Payload and metadata travel together so the backing store holds one
// atomic unit per entry.
type envelope struct {
	Payload   []byte        `json:"payload"`
	Metadata  *FileMetadata `json:"metadata,omitempty"`
	CreatedAt int64         `json:"createdAt"`
	ExpiresAt int64         `json:"expiresAt"`
}

func encodeEnvelope(e Entry) ([]byte, error) {
	raw, err := json.Marshal(envelope{
		Payload:   e.Payload,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt.Unix(),
		ExpiresAt: e.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compress envelope: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress envelope: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return envelope{}, fmt.Errorf("decompress envelope: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
