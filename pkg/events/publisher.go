package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
)

// AllSessionsGetter defines an interface for getting all session IDs.
type AllSessionsGetter interface {
	GetAllSessions(ctx context.Context) ([]string, error)
}

// DefaultPublisher fans a message out to every connected agent session over
// the API Gateway management API.
type DefaultPublisher struct {
	store          AllSessionsGetter
	sessionManager SessionManager
	apiGwClient    *apigatewaymanagementapi.Client
}

// NewPublisher creates a new DefaultPublisher.
func NewPublisher(store AllSessionsGetter, sessionManager SessionManager, apiEndpoint string) (*DefaultPublisher, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	apiGwClient := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(apiEndpoint)
	})

	return &DefaultPublisher{
		store:          store,
		sessionManager: sessionManager,
		apiGwClient:    apiGwClient,
	}, nil
}

// Publish sends a message to all connected agent sessions. Stale sessions
// are pruned as they are discovered.
func (p *DefaultPublisher) Publish(ctx context.Context, message Message) error {
	sessionIDs, err := p.store.GetAllSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to get all sessions: %w", err)
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	for _, sessionID := range sessionIDs {
		_, err := p.apiGwClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(sessionID),
			Data:         payload,
		})

		if err != nil {
			var goneErr *apigwtypes.GoneException
			if errors.As(err, &goneErr) {
				slog.Info("stale session found, deleting", "sessionId", sessionID)
				if err := p.sessionManager.RemoveSession(ctx, sessionID); err != nil {
					slog.Error("failed to delete stale session", "error", err)
				}
			} else {
				slog.Error("failed to post to session", "sessionId", sessionID, "error", err)
			}
		}
	}

	return nil
}
