// Package config loads process configuration from the environment once at
// startup. The rest of the service receives it as a single struct and never
// reads the environment itself.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultPort         = "8080"
	defaultMaxPayloadMB = 2
	defaultMaxTTL       = 7 * 24 * time.Hour
	defaultStoreTimeout = 5 * time.Second
	defaultDataDir      = "./data"
)

type Config struct {
	Port         string
	MaxPayloadMB int
	MaxTTL       time.Duration
	StoreTimeout time.Duration
	LogLevel     string

	// Backend forces a provider (aws, gcp, local, memory). Empty means
	// detect from the provider-specific variables below.
	Backend string

	AWSRegion   string
	DynamoTable string
	S3Bucket    string

	GCPProjectID      string
	FirestoreDatabase string
	GCSBucket         string

	DataDir string
}

func Load() (*Config, error) {
	c := &Config{
		Port:         envOr("PORT", defaultPort),
		MaxPayloadMB: defaultMaxPayloadMB,
		MaxTTL:       defaultMaxTTL,
		StoreTimeout: defaultStoreTimeout,
		LogLevel:     envOr("LOG_LEVEL", "info"),
		Backend:      os.Getenv("STORE_BACKEND"),

		AWSRegion:   envOr("AWS_REGION", "us-east-1"),
		DynamoTable: os.Getenv("DYNAMO_TABLE"),
		S3Bucket:    os.Getenv("S3_BUCKET"),

		GCPProjectID:      os.Getenv("GCP_PROJECT_ID"),
		FirestoreDatabase: os.Getenv("FIRESTORE_DATABASE"),
		GCSBucket:         os.Getenv("GCS_BUCKET"),

		DataDir: envOr("DATA_DIR", defaultDataDir),
	}

	if v, ok := os.LookupEnv("MAX_PAYLOAD_MB"); ok && v != "" {
		mb, err := strconv.Atoi(v)
		if err != nil || mb <= 0 {
			return nil, fmt.Errorf("invalid MAX_PAYLOAD_MB %q", v)
		}
		c.MaxPayloadMB = mb
	}

	if v, ok := os.LookupEnv("MAX_TTL_SECONDS"); ok && v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid MAX_TTL_SECONDS %q", v)
		}
		c.MaxTTL = time.Duration(secs) * time.Second
	}

	if v, ok := os.LookupEnv("STORE_TIMEOUT_MS"); ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid STORE_TIMEOUT_MS %q", v)
		}
		c.StoreTimeout = time.Duration(ms) * time.Millisecond
	}

	return c, nil
}

// MaxPayloadBytes is the payload ceiling enforced at ingress.
func (c *Config) MaxPayloadBytes() int64 {
	return int64(c.MaxPayloadMB) * 1024 * 1024
}

func (c *Config) UsesAWS() bool {
	return c.DynamoTable != "" && c.S3Bucket != ""
}

func (c *Config) UsesGCP() bool {
	return c.GCPProjectID != "" && c.FirestoreDatabase != "" && c.GCSBucket != ""
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
