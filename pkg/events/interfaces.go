package events

import (
	"context"
)

// SessionManager defines the interface for managing agent notification
// sessions.
type SessionManager interface {
	AddSession(ctx context.Context, sessionID string) error
	RemoveSession(ctx context.Context, sessionID string) error
}

// Publisher defines the interface for publishing messages to connected
// agents.
type Publisher interface {
	Publish(ctx context.Context, message Message) error
}
