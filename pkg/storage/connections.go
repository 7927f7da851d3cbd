package storage

import "context"

// SessionManager defines the interface for storing and retrieving the
// notification session IDs of connected agents.
type SessionManager interface {
	AddSession(ctx context.Context, sessionID string) error
	RemoveSession(ctx context.Context, sessionID string) error
	GetAllSessions(ctx context.Context) ([]string, error)
}
