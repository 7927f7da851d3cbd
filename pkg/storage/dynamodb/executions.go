package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/payos/mandate-engine/pkg/models"
	"github.com/payos/mandate-engine/pkg/storage"
)

// The executions table is keyed on (mandate_id, idempotency_key): the key
// itself is the idempotency guard for the conditional Put in MutateMandate.

const stuckExecutionGSI = "status-created_at-index"

// ListExecutions retrieves all executions for a mandate, ordered by index.
func (s *Store) ListExecutions(ctx context.Context, mandateID string) ([]models.Execution, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.ExecutionsTableName),
		KeyConditionExpression: aws.String("mandate_id = :mandateID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":mandateID": &types.AttributeValueMemberS{Value: mandateID},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	var executions []models.Execution
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &executions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal executions: %w", err)
	}

	// The range key is the idempotency key, so re-order by index.
	sort.Slice(executions, func(i, j int) bool { return executions[i].Index < executions[j].Index })

	return executions, nil
}

// GetExecutionByIdempotencyKey retrieves the execution committed under the
// given idempotency key.
func (s *Store) GetExecutionByIdempotencyKey(ctx context.Context, mandateID, key string) (*models.Execution, error) {
	av, err := attributevalue.MarshalMap(map[string]string{
		"mandate_id":      mandateID,
		"idempotency_key": key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution key: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.ExecutionsTableName),
		Key:       av,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get execution from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrExecutionNotFound
	}

	var ex models.Execution
	if err := attributevalue.UnmarshalMap(result.Item, &ex); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}

	return &ex, nil
}

// ListStuckExecutions retrieves executions, across all mandates, that have
// sat in pending since before cutoff.
func (s *Store) ListStuckExecutions(ctx context.Context, cutoff time.Time) ([]models.Execution, error) {
	cutoffText, err := cutoff.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cutoff time: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.ExecutionsTableName),
		IndexName:              aws.String(stuckExecutionGSI),
		KeyConditionExpression: aws.String("#status = :status AND created_at < :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(models.ExecutionPending)},
			":cutoff": &types.AttributeValueMemberS{Value: string(cutoffText)},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for stuck executions: %w", err)
	}

	var executions []models.Execution
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &executions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stuck executions: %w", err)
	}

	return executions, nil
}
