package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/payos/mandate-engine/pkg/models"
	"github.com/payos/mandate-engine/pkg/storage"
	"github.com/payos/mandate-engine/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func executionItems(t *testing.T, executions ...models.Execution) []map[string]types.AttributeValue {
	t.Helper()
	items := make([]map[string]types.AttributeValue, len(executions))
	for i, ex := range executions {
		av, err := attributevalue.MarshalMap(ex)
		assert.NoError(t, err)
		items[i] = av
	}
	return items
}

func TestListExecutions(t *testing.T) {
	t.Run("Sorts By Index", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		// The table's range key is the idempotency key, so results arrive in
		// key order, not index order.
		items := executionItems(t,
			models.Execution{Id: "ex2", MandateId: "m1", Index: 2, IdempotencyKey: "aaa"},
			models.Execution{Id: "ex1", MandateId: "m1", Index: 1, IdempotencyKey: "zzz"},
		)
		mockClient.On("Query", mock.Anything, mock.AnythingOfType("*dynamodb.QueryInput")).Return(&dynamodb.QueryOutput{Items: items}, nil).Once()

		executions, err := store.ListExecutions(context.Background(), "m1")

		assert.NoError(t, err)
		assert.Len(t, executions, 2)
		assert.Equal(t, "ex1", executions[0].Id)
		assert.Equal(t, "ex2", executions[1].Id)
		mockClient.AssertExpectations(t)
	})

	t.Run("Empty", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil).Once()

		executions, err := store.ListExecutions(context.Background(), "m1")

		assert.NoError(t, err)
		assert.Empty(t, executions)
		mockClient.AssertExpectations(t)
	})
}

func TestListStuckExecutions(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Queries The Status Index For Pending Rows", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		items := executionItems(t,
			models.Execution{Id: "ex1", MandateId: "m1", Index: 1, Status: models.ExecutionPending, IdempotencyKey: "key1"},
		)
		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(input *dynamodb.QueryInput) bool {
			status, ok := input.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS)
			return ok && *input.IndexName == stuckExecutionGSI && status.Value == string(models.ExecutionPending)
		})).Return(&dynamodb.QueryOutput{Items: items}, nil).Once()

		stuck, err := store.ListStuckExecutions(context.Background(), cutoff)

		assert.NoError(t, err)
		assert.Len(t, stuck, 1)
		assert.Equal(t, "ex1", stuck[0].Id)
		mockClient.AssertExpectations(t)
	})

	t.Run("Query Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("Query", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

		_, err := store.ListStuckExecutions(context.Background(), cutoff)

		assert.Error(t, err)
		mockClient.AssertExpectations(t)
	})
}

func TestGetExecutionByIdempotencyKey(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		ex := models.Execution{Id: "ex1", MandateId: "m1", Index: 1, IdempotencyKey: "key1"}
		av, _ := attributevalue.MarshalMap(ex)
		mockClient.On("GetItem", mock.Anything, mock.AnythingOfType("*dynamodb.GetItemInput")).Return(&dynamodb.GetItemOutput{Item: av}, nil).Once()

		got, err := store.GetExecutionByIdempotencyKey(context.Background(), "m1", "key1")

		assert.NoError(t, err)
		assert.Equal(t, "ex1", got.Id)
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: nil}, nil).Once()

		_, err := store.GetExecutionByIdempotencyKey(context.Background(), "m1", "missing")

		assert.ErrorIs(t, err, storage.ErrExecutionNotFound)
		mockClient.AssertExpectations(t)
	})
}
