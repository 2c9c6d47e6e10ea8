// Package store selects and opens the backing record store.
package store

import (
	"context"
	"fmt"
	"log"

	"github.com/sealdrop/sealdrop/internal/config"
	"github.com/sealdrop/sealdrop/internal/store/memory"
	"github.com/sealdrop/sealdrop/internal/store/provider/aws"
	"github.com/sealdrop/sealdrop/internal/store/provider/gcp"
	"github.com/sealdrop/sealdrop/internal/store/provider/local"
	"github.com/sealdrop/sealdrop/internal/store/types"
)

// Open picks a provider from the configuration and connects to it. The
// returned store is shared by all requests for the process lifetime and
// closed once on shutdown.
func Open(ctx context.Context, cfg *config.Config) (types.RecordStore, error) {
	switch cfg.Backend {
	case "aws":
		return openAWS(ctx, cfg)
	case "gcp":
		return openGCP(ctx, cfg)
	case "local":
		return openLocal(cfg)
	case "memory":
		log.Println("using in-memory store; entries will not survive a restart")
		return memory.New(), nil
	case "":
		// Detect from provider-specific variables.
		switch {
		case cfg.UsesAWS():
			return openAWS(ctx, cfg)
		case cfg.UsesGCP():
			return openGCP(ctx, cfg)
		default:
			return openLocal(cfg)
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func openAWS(ctx context.Context, cfg *config.Config) (types.RecordStore, error) {
	if !cfg.UsesAWS() {
		return nil, fmt.Errorf("aws backend requires DYNAMO_TABLE and S3_BUCKET")
	}
	log.Println("initializing AWS store (DynamoDB and S3)")
	return aws.New(ctx, cfg.AWSRegion, cfg.DynamoTable, cfg.S3Bucket)
}

func openGCP(ctx context.Context, cfg *config.Config) (types.RecordStore, error) {
	if !cfg.UsesGCP() {
		return nil, fmt.Errorf("gcp backend requires GCP_PROJECT_ID, FIRESTORE_DATABASE, and GCS_BUCKET")
	}
	log.Println("initializing GCP store (Firestore and GCS)")
	return gcp.New(ctx, cfg.GCPProjectID, cfg.FirestoreDatabase, cfg.GCSBucket)
}

func openLocal(cfg *config.Config) (types.RecordStore, error) {
	log.Println("initializing local store (SQLite and bbolt)")
	return local.Open(cfg.DataDir)
}
