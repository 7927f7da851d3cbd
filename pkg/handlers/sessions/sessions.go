package sessions

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	engineevents "github.com/payos/mandate-engine/pkg/events"
)

// Handler manages agent notification sessions: agents connect to receive
// mandate updates and payment decisions pushed by the engine.
type Handler struct {
	sessionManager engineevents.SessionManager
}

// NewHandler creates a new Handler.
func NewHandler(sessionManager engineevents.SessionManager) *Handler {
	return &Handler{
		sessionManager: sessionManager,
	}
}

// HandleConnect handles new agent connections.
func (h *Handler) HandleConnect(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	slog.Info("Agent connected", "sessionId", request.RequestContext.ConnectionID)

	if err := h.sessionManager.AddSession(ctx, request.RequestContext.ConnectionID); err != nil {
		slog.Error("failed to save session ID", "error", err)
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}

	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

// HandleDisconnect handles agent disconnections.
func (h *Handler) HandleDisconnect(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	slog.Info("Agent disconnected", "sessionId", request.RequestContext.ConnectionID)

	if err := h.sessionManager.RemoveSession(ctx, request.RequestContext.ConnectionID); err != nil {
		slog.Error("failed to delete session ID", "error", err)
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}

	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all connections by default for local development.
		return true
	},
}

// ServeHTTP handles WebSocket requests for the local development server.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	slog.Info("Agent connected locally", "sessionId", sessionID)

	ctx := r.Context()
	if err := h.sessionManager.AddSession(ctx, sessionID); err != nil {
		slog.Error("failed to save local session ID", "error", err)
		return
	}

	defer func() {
		slog.Info("Agent disconnected locally", "sessionId", sessionID)
		if err := h.sessionManager.RemoveSession(ctx, sessionID); err != nil {
			slog.Error("failed to delete local session ID", "error", err)
		}
	}()

	// Agents only receive pushes; the read loop exists to detect the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("unexpected close error", "error", err)
			}
			break
		}
	}
}
