package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/payos/mandate-engine/pkg/models"
	"github.com/payos/mandate-engine/pkg/storage"
)

// MutateMandate applies fn to the current mandate snapshot and commits the
// result with a single TransactWriteItems call, conditioned on the version
// read. A version conflict means another mutation committed in between; the
// loop re-reads and re-applies fn, so concurrent mutations of one mandate
// serialize as if applied one at a time.
func (s *Store) MutateMandate(ctx context.Context, id string, fn storage.MutateFunc) (*storage.Mutation, error) {
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		snapshot, err := s.GetMandate(ctx, id)
		if err != nil {
			return nil, err
		}
		expectedVersion := snapshot.Version

		mut, err := fn(snapshot)
		if err != nil {
			// fn aborted: no write happened.
			return nil, err
		}

		updated := mut.Mandate
		updated.Version = expectedVersion + 1
		updated.UpdatedAt = time.Now()

		items, err := s.buildTransactItems(mut, expectedVersion)
		if err != nil {
			return nil, err
		}

		_, err = s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
		if err == nil {
			return mut, nil
		}

		retry, err := classifyTransactError(err, mut)
		if err != nil {
			return nil, err
		}
		if !retry {
			return nil, storage.ErrStoreConflict
		}
	}
	return nil, storage.ErrStoreConflict
}

// buildTransactItems assembles the conditional writes for one mutation:
// the mandate overwrite guarded by its version, an optional new execution
// guarded against idempotency-key reuse, and an optional finalization of a
// pending execution guarded by its status.
func (s *Store) buildTransactItems(mut *storage.Mutation, expectedVersion int64) ([]types.TransactWriteItem, error) {
	mandateAV, err := attributevalue.MarshalMap(mut.Mandate)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mandate: %w", err)
	}

	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(s.MandatesTableName),
				Item:                mandateAV,
				ConditionExpression: aws.String("version = :version"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":version": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
				},
			},
		},
	}

	if mut.NewExecution != nil {
		exAV, err := attributevalue.MarshalMap(mut.NewExecution)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal execution: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.ExecutionsTableName),
				Item:                exAV,
				ConditionExpression: aws.String("attribute_not_exists(idempotency_key)"),
			},
		})
	}

	if mut.FinalizedExecution != nil {
		exAV, err := attributevalue.MarshalMap(mut.FinalizedExecution)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal finalized execution: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.ExecutionsTableName),
				Item:                exAV,
				ConditionExpression: aws.String("#status = :pending"),
				ExpressionAttributeNames: map[string]string{
					"#status": "status",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pending": &types.AttributeValueMemberS{Value: string(models.ExecutionPending)},
				},
			},
		})
	}

	return items, nil
}

// classifyTransactError maps a failed transact write to either a retry (the
// mandate's version check lost a race), a domain error (execution guard
// failed), or a hard failure.
func classifyTransactError(err error, mut *storage.Mutation) (retry bool, out error) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false, fmt.Errorf("failed to execute mandate mutation: %w", err)
	}

	for i, reason := range tce.CancellationReasons {
		if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
			continue
		}
		if i == 0 {
			// Version conflict on the mandate row.
			return true, nil
		}
		if mut.NewExecution != nil && i == 1 {
			return false, storage.ErrExecutionExists
		}
		return false, storage.ErrExecutionNotPending
	}
	return false, fmt.Errorf("mandate mutation cancelled: %w", err)
}
