package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/payos/mandate-engine/pkg/storage"
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses. Mocked
// with mockery for tests.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client              DynamoDBAPI
	MandatesTableName   string
	ExecutionsTableName string
	SessionsTableName   string
}

// New creates a new Store.
func New(client DynamoDBAPI, mandatesTable, executionsTable, sessionsTable string) *Store {
	return &Store{
		Client:              client,
		MandatesTableName:   mandatesTable,
		ExecutionsTableName: executionsTable,
		SessionsTableName:   sessionsTable,
	}
}

// Make sure we conform to the interfaces
var _ storage.Storage = (*Store)(nil)
var _ storage.SessionManager = (*Store)(nil)

// maxMutateAttempts bounds the optimistic-concurrency retry loop in
// MutateMandate before surfacing storage.ErrStoreConflict.
const maxMutateAttempts = 5
