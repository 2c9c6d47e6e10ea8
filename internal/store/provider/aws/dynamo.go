// Package aws backs the record store with DynamoDB, offloading payloads
// that would breach DynamoDB's item size limit to S3. The DynamoDB item is
// the single source of truth: a record is live exactly while its item
// exists and is unexpired, and the burning read is a conditional DeleteItem
// so the flag check and the removal are one indivisible backend operation.
package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	storetypes "github.com/sealdrop/sealdrop/internal/store/types"
)

// inlineLimit keeps items comfortably under DynamoDB's 400KB cap; larger
// envelopes move to S3 under a key derived from the record key.
const inlineLimit = 256 * 1024

// DynamoDBAPI is the slice of the DynamoDB client this store uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type Store struct {
	client   DynamoDBAPI
	table    string
	payloads *PayloadStore
	now      func() time.Time
}

// New connects to DynamoDB and S3. The table must have "id" as its
// partition key and TTL enabled on "expires_at"; DynamoDB's TTL sweep is
// lazy, so reads additionally check expiry themselves.
func New(ctx context.Context, region, table, bucket string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Store{
		client:   dynamodb.NewFromConfig(cfg),
		table:    table,
		payloads: NewPayloadStore(cfg, bucket),
		now:      time.Now,
	}, nil
}

func (s *Store) Put(ctx context.Context, key string, rec storetypes.Record) error {
	item := map[string]dynamotypes.AttributeValue{
		"id":         &dynamotypes.AttributeValueMemberS{Value: key},
		"burn_read":  &dynamotypes.AttributeValueMemberBOOL{Value: rec.BurnOnRead},
		"expires_at": &dynamotypes.AttributeValueMemberN{Value: strconv.FormatInt(rec.ExpiresAt.Unix(), 10)},
	}

	external := len(rec.Envelope) > inlineLimit
	item["external"] = &dynamotypes.AttributeValueMemberBOOL{Value: external}
	if external {
		if err := s.payloads.Put(ctx, key, rec.Envelope); err != nil {
			return err
		}
	} else {
		item["envelope"] = &dynamotypes.AttributeValueMemberB{Value: rec.Envelope}
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if external {
			// The record never became visible; drop the orphaned payload.
			_ = s.payloads.Delete(context.WithoutCancel(ctx), key)
		}
		var cond *dynamotypes.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return storetypes.ErrKeyExists
		}
		return fmt.Errorf("%w: %w", storetypes.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Peek(ctx context.Context, key string) (storetypes.Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]dynamotypes.AttributeValue{"id": &dynamotypes.AttributeValueMemberS{Value: key}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return storetypes.Record{}, fmt.Errorf("%w: %w", storetypes.ErrUnavailable, err)
	}
	if out.Item == nil {
		return storetypes.Record{}, storetypes.ErrNotFound
	}

	rec, external, err := s.recordFromItem(out.Item)
	if err != nil {
		return storetypes.Record{}, err
	}
	if !rec.ExpiresAt.After(s.now()) {
		return storetypes.Record{}, storetypes.ErrNotFound
	}
	if external {
		if rec.Envelope, err = s.payloads.Get(ctx, key); err != nil {
			return storetypes.Record{}, err
		}
	}
	return rec, nil
}

func (s *Store) Take(ctx context.Context, key string) (storetypes.Record, error) {
	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.table),
		Key:                 map[string]dynamotypes.AttributeValue{"id": &dynamotypes.AttributeValueMemberS{Value: key}},
		ConditionExpression: aws.String("burn_read = :burn AND expires_at > :now"),
		ExpressionAttributeValues: map[string]dynamotypes.AttributeValue{
			":burn": &dynamotypes.AttributeValueMemberBOOL{Value: true},
			":now":  &dynamotypes.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Unix(), 10)},
		},
		ReturnValues:                        dynamotypes.ReturnValueAllOld,
		ReturnValuesOnConditionCheckFailure: dynamotypes.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var cond *dynamotypes.ConditionalCheckFailedException
		if !errors.As(err, &cond) {
			return storetypes.Record{}, fmt.Errorf("%w: %w", storetypes.ErrUnavailable, err)
		}
		// The item is absent, expired, or not burn-on-read. Only the last
		// case yields a value.
		if cond.Item == nil {
			return storetypes.Record{}, storetypes.ErrNotFound
		}
		rec, external, err := s.recordFromItem(cond.Item)
		if err != nil {
			return storetypes.Record{}, err
		}
		if rec.BurnOnRead || !rec.ExpiresAt.After(s.now()) {
			return storetypes.Record{}, storetypes.ErrNotFound
		}
		if external {
			if rec.Envelope, err = s.payloads.Get(ctx, key); err != nil {
				return storetypes.Record{}, err
			}
		}
		return rec, nil
	}

	// The delete won; this caller is the single consumer.
	rec, external, err := s.recordFromItem(out.Attributes)
	if err != nil {
		return storetypes.Record{}, err
	}
	if external {
		rec.Envelope, err = s.payloads.Get(ctx, key)
		if err != nil {
			return storetypes.Record{}, err
		}
		// The pointer record is gone, so the object is unreachable either way.
		_ = s.payloads.Delete(context.WithoutCancel(ctx), key)
	}
	return rec, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) recordFromItem(item map[string]dynamotypes.AttributeValue) (storetypes.Record, bool, error) {
	var rec storetypes.Record

	if v, ok := item["burn_read"].(*dynamotypes.AttributeValueMemberBOOL); ok {
		rec.BurnOnRead = v.Value
	}

	v, ok := item["expires_at"].(*dynamotypes.AttributeValueMemberN)
	if !ok {
		return rec, false, fmt.Errorf("%w: item missing expires_at", storetypes.ErrUnavailable)
	}
	epoch, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return rec, false, fmt.Errorf("%w: bad expires_at %q", storetypes.ErrUnavailable, v.Value)
	}
	rec.ExpiresAt = time.Unix(epoch, 0)

	external := false
	if v, ok := item["external"].(*dynamotypes.AttributeValueMemberBOOL); ok {
		external = v.Value
	}
	if !external {
		env, ok := item["envelope"].(*dynamotypes.AttributeValueMemberB)
		if !ok {
			return rec, false, fmt.Errorf("%w: item missing envelope", storetypes.ErrUnavailable)
		}
		rec.Envelope = env.Value
	}
	return rec, external, nil
}
