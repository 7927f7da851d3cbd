package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/payos/mandate-engine/pkg/models"
)

const (
	expiryGSI  = "status-valid_until-index"
	payerIDGSI = "payer_id-index"
)

// ListExpiredCandidates retrieves active and suspended mandates whose
// valid_until lies before now. Drafts and terminal mandates are not
// expirable and are excluded by the status key.
func (s *Store) ListExpiredCandidates(ctx context.Context, now time.Time) ([]models.Mandate, error) {
	cutoff, err := now.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cutoff time: %w", err)
	}

	var candidates []models.Mandate
	for _, status := range []models.MandateStatus{models.ACTIVE, models.SUSPENDED} {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(s.MandatesTableName),
			IndexName:              aws.String(expiryGSI),
			KeyConditionExpression: aws.String("#status = :status AND valid_until < :cutoff"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":status": &types.AttributeValueMemberS{Value: string(status)},
				":cutoff": &types.AttributeValueMemberS{Value: string(cutoff)},
			},
		}

		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query for expired mandates: %w", err)
		}

		var mandates []models.Mandate
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &mandates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal expired mandates: %w", err)
		}
		candidates = append(candidates, mandates...)
	}

	return candidates, nil
}

// ListMandatesByPayerID retrieves all mandates granted by a payer.
func (s *Store) ListMandatesByPayerID(ctx context.Context, payerID string) ([]models.Mandate, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.MandatesTableName),
		IndexName:              aws.String(payerIDGSI),
		KeyConditionExpression: aws.String("payer_id = :payerID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":payerID": &types.AttributeValueMemberS{Value: payerID},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for mandates by payer ID: %w", err)
	}

	var mandates []models.Mandate
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &mandates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mandates: %w", err)
	}

	return mandates, nil
}
