package dynamodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/payos/mandate-engine/pkg/models"
)

// CreateMandate persists a new mandate in draft status with a fresh id and
// version 1.
func (s *Store) CreateMandate(ctx context.Context, m *models.Mandate) (*models.Mandate, error) {
	now := time.Now()
	m.Id = uuid.New().String()
	m.Status = models.DRAFT
	m.Version = 1
	m.CreatedAt = now
	m.UpdatedAt = now

	slog.Log(ctx, slog.LevelDebug, "creating mandate", "mandate", m)

	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mandate: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.MandatesTableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put mandate: %w", err)
	}

	return m, nil
}
