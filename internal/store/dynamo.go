package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/preset"
)

// DynamoDB key layout. All presets share one partition so listing is a
// single Query; the sort key carries the preset id.
const (
	pkPresets = "PRESETS"
	skPrefix  = "PRESET#"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore stores custom presets in a DynamoDB table with PK/SK keys.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

// presetItem is the stored shape; timestamps are kept for operators.
type presetItem struct {
	preset.Preset
	UpdatedAt int64 `dynamodbav:"updatedAt"`
}

func presetSK(id string) string {
	return skPrefix + id
}

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pkPresets},
		"SK": &types.AttributeValueMemberS{Value: presetSK(id)},
	}
}

// PutPreset creates or replaces a preset record.
func (s *DynamoStore) PutPreset(ctx context.Context, p preset.Preset) error {
	item, err := attributevalue.MarshalMap(presetItem{Preset: p, UpdatedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("marshal preset %s: %w", p.ID, err)
	}
	for k, v := range s.key(p.ID) {
		item[k] = v
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem SK=%s: %w", presetSK(p.ID), err)
	}
	return nil
}

// DeletePreset removes a preset record. Deleting a missing record is not an error.
func (s *DynamoStore) DeletePreset(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       s.key(id),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem SK=%s: %w", presetSK(id), err)
	}
	return nil
}

// ListPresets returns every stored preset, following pagination.
func (s *DynamoStore) ListPresets(ctx context.Context) ([]preset.Preset, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pkPresets},
			":skPrefix": &types.AttributeValueMemberS{Value: skPrefix},
		},
	}

	var out []preset.Preset
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s: %w", pkPresets, err)
		}
		for _, raw := range result.Items {
			var item presetItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				log.Warn().Err(err).Msg("Skipping unreadable preset record")
				continue
			}
			if item.ID == "" {
				if sk, ok := raw["SK"].(*types.AttributeValueMemberS); ok {
					item.ID = strings.TrimPrefix(sk.Value, skPrefix)
				}
			}
			out = append(out, item.Preset)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return out, nil
}
