package aws

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	storetypes "github.com/sealdrop/sealdrop/internal/store/types"
)

// S3API is the slice of the S3 client the payload store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PayloadStore holds envelopes too large for a DynamoDB item. Objects are
// only reachable through their DynamoDB record, so lifecycle (burn,
// expiry) is still decided by the record alone.
type PayloadStore struct {
	client S3API
	bucket string
}

func NewPayloadStore(cfg aws.Config, bucket string) *PayloadStore {
	return &PayloadStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}
}

func (p *PayloadStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(p.bucket),
		Key:                  aws.String(objectKey(key)),
		Body:                 bytes.NewReader(data),
		ACL:                  s3types.ObjectCannedACLPrivate,
		ServerSideEncryption: s3types.ServerSideEncryptionAwsKms,
	})
	if err != nil {
		return fmt.Errorf("%w: upload payload: %w", storetypes.ErrUnavailable, err)
	}
	return nil
}

func (p *PayloadStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: download payload: %w", storetypes.ErrUnavailable, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read payload: %w", storetypes.ErrUnavailable, err)
	}
	return data, nil
}

func (p *PayloadStore) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("%w: delete payload: %w", storetypes.ErrUnavailable, err)
	}
	return nil
}

func objectKey(key string) string {
	return key + ".env"
}
