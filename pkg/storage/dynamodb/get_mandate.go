package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/payos/mandate-engine/pkg/models"
	"github.com/payos/mandate-engine/pkg/storage"
)

// GetMandate retrieves a mandate from DynamoDB by its ID.
func (s *Store) GetMandate(ctx context.Context, id string) (*models.Mandate, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mandate ID: %w", err)
	}

	input := &dynamodb.GetItemInput{
		TableName: &s.MandatesTableName,
		Key:       key,
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get mandate from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrMandateNotFound
	}

	var m models.Mandate
	if err := attributevalue.UnmarshalMap(result.Item, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mandate: %w", err)
	}

	return &m, nil
}
