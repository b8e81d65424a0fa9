// Package dynamodb provides a DynamoDB backed session storage, for clients
// that share one login across machines.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	apperrors "ideaclient/pkg/errors"
)

const (
	keyPrefix  = "SESSION#"
	sortKey    = "SESSION"
	entityType = "Session"
)

// API is the subset of the DynamoDB client the storage needs
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// sessionItem is the stored record. TTL holds epoch seconds so the table's
// TTL setting can expire it.
type sessionItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Data       []byte `dynamodbav:"Data"`
	TTL        int64  `dynamodbav:"TTL,omitempty"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

// SessionStorage is a ports.SessionStorage over a DynamoDB table keyed by
// PK and SK
type SessionStorage struct {
	client    API
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionStorage creates a storage writing to tableName
func NewSessionStorage(client API, tableName string, logger *zap.Logger) *SessionStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStorage{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

func buildKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: keyPrefix + key},
		"SK": &types.AttributeValueMemberS{Value: sortKey},
	}
}

// Get retrieves the data stored under key. TTL deletion in DynamoDB is lazy,
// so records past their TTL are reported as absent here.
func (s *SessionStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	proj := expression.NamesList(expression.Name("Data"), expression.Name("TTL"))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(s.tableName),
		Key:                      buildKey(key),
		ConsistentRead:           aws.Bool(true),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return nil, false, classify(err, "get session")
	}
	if result.Item == nil {
		return nil, false, nil
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false, fmt.Errorf("failed to parse session item: %w", err)
	}
	if item.TTL > 0 && s.now().Unix() >= item.TTL {
		return nil, false, nil
	}

	return item.Data, true, nil
}

// Set stores data under key until expiresAt, overwriting any previous value
func (s *SessionStorage) Set(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	now := s.now()
	item := sessionItem{
		PK:         keyPrefix + key,
		SK:         sortKey,
		EntityType: entityType,
		Data:       data,
		UpdatedAt:  now.Format(time.RFC3339),
	}
	if !expiresAt.IsZero() {
		item.TTL = expiresAt.Unix()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal session item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return classify(err, "save session")
	}

	s.logger.Debug("Session saved",
		zap.String("key", key),
		zap.Int64("ttl", item.TTL))
	return nil
}

// Delete removes key. Missing keys are a no-op.
func (s *SessionStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       buildKey(key),
	}); err != nil {
		return classify(err, "delete session")
	}
	return nil
}

// classify maps DynamoDB API errors onto client error types
func classify(err error, operation string) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return fmt.Errorf("failed to %s: %w", operation, err)
	}

	switch ae.ErrorCode() {
	case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
		return apperrors.NewUnavailableError("dynamodb").WithCause(err)
	case "ResourceNotFoundException":
		return apperrors.NewNotFoundError("session table").WithCause(err)
	default:
		return fmt.Errorf("failed to %s: %s: %w", operation, ae.ErrorCode(), err)
	}
}
