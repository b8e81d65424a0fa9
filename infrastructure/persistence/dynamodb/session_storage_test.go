package dynamodb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ideaclient/pkg/errors"
)

// fakeTable keeps items by PK and records the table each call targeted
type fakeTable struct {
	mu     sync.Mutex
	items  map[string]map[string]types.AttributeValue
	tables []string
	err    error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func pk(key map[string]types.AttributeValue) string {
	return key["PK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables = append(f.tables, *in.TableName)
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[pk(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables = append(f.tables, *in.TableName)
	if f.err != nil {
		return nil, f.err
	}
	f.items[pk(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables = append(f.tables, *in.TableName)
	if f.err != nil {
		return nil, f.err
	}
	delete(f.items, pk(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestSessionStorage_SetGetDelete(t *testing.T) {
	table := newFakeTable()
	s := NewSessionStorage(table, "sessions", nil)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "user", []byte(`{"token":"abc"}`), time.Now().Add(time.Hour)))

	stored := table.items["SESSION#user"]
	require.NotNil(t, stored)
	assert.Equal(t, "SESSION", stored["SK"].(*types.AttributeValueMemberS).Value)
	assert.Contains(t, stored, "TTL")

	data, found, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"token":"abc"}`, string(data))

	require.NoError(t, s.Delete(ctx, "user"))
	_, found, err = s.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, found)

	for _, name := range table.tables {
		assert.Equal(t, "sessions", name)
	}
}

func TestSessionStorage_ExpiredItemIsAbsent(t *testing.T) {
	table := newFakeTable()
	s := NewSessionStorage(table, "sessions", nil)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(ctx, "user", []byte("x"), now.Add(time.Minute)))

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, found, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionStorage_NoExpiryOmitsTTL(t *testing.T) {
	table := newFakeTable()
	s := NewSessionStorage(table, "sessions", nil)

	require.NoError(t, s.Set(context.Background(), "user", []byte("x"), time.Time{}))
	assert.NotContains(t, table.items["SESSION#user"], "TTL")
}

func TestSessionStorage_ClassifiesAPIErrors(t *testing.T) {
	tests := []struct {
		code     string
		wantType apperrors.ErrorType
	}{
		{"ThrottlingException", apperrors.ErrorTypeUnavailable},
		{"ProvisionedThroughputExceededException", apperrors.ErrorTypeUnavailable},
		{"ResourceNotFoundException", apperrors.ErrorTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			table := newFakeTable()
			table.err = &smithy.GenericAPIError{Code: tt.code, Message: "boom"}
			s := NewSessionStorage(table, "sessions", nil)

			_, _, err := s.Get(context.Background(), "user")
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
		})
	}

	table := newFakeTable()
	table.err = &smithy.GenericAPIError{Code: "ValidationException", Message: "bad key"}
	err := NewSessionStorage(table, "sessions", nil).Delete(context.Background(), "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ValidationException")
	assert.False(t, apperrors.IsAppError(err))
}
