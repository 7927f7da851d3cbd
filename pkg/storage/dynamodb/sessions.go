package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// AgentSession represents a record in the agent notification sessions table.
type AgentSession struct {
	SessionID string `dynamodbav:"session_id"`
	PK        string `dynamodbav:"pk"`
}

// AddSession saves a new agent notification session ID to the database.
func (s *Store) AddSession(ctx context.Context, sessionID string) error {
	session := AgentSession{SessionID: sessionID, PK: "sessions"}
	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.SessionsTableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}

	return nil
}

// RemoveSession deletes an agent notification session ID from the database.
func (s *Store) RemoveSession(ctx context.Context, sessionID string) error {
	key, err := attributevalue.MarshalMap(map[string]string{
		"session_id": sessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session key: %w", err)
	}

	_, err = s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.SessionsTableName),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	return nil
}

// GetAllSessions retrieves all active agent notification session IDs.
func (s *Store) GetAllSessions(ctx context.Context) ([]string, error) {
	queryOutput, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.SessionsTableName),
		IndexName:              aws.String("pk-index"),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "sessions"},
		},
		ProjectionExpression: aws.String("session_id"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions table: %w", err)
	}

	var sessions []AgentSession
	if err := attributevalue.UnmarshalListOfMaps(queryOutput.Items, &sessions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sessions: %w", err)
	}

	sessionIDs := make([]string, len(sessions))
	for i, session := range sessions {
		sessionIDs[i] = session.SessionID
	}

	return sessionIDs, nil
}
