package handlers

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/realtime"
	"github.com/yungbote/dossier-backend/internal/requestdata"
	"github.com/yungbote/dossier-backend/internal/workspace"
)

type RealtimeHandler struct {
	log     *logger.Logger
	hub     *realtime.SSEHub
	metrics *observability.Metrics
	orgID   string

	mu      sync.Mutex
	clients map[uuid.UUID]*realtime.SSEClient // key: session id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, metrics *observability.Metrics, orgID string) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		metrics: metrics,
		orgID:   orgID,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// SSEStream subscribes the caller to its session channel and the org channel.
// A session has at most one stream; a new one replaces the old.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if !rd.Authenticated() {
		respondErr(c, workspace.ErrNotAuthenticated)
		return
	}
	sessionID := rd.SessionID

	h.mu.Lock()
	if existing, ok := h.clients[sessionID]; ok {
		h.hub.CloseClient(existing)
	}
	client := h.hub.NewSSEClient(rd.UserID)
	h.clients[sessionID] = client
	h.mu.Unlock()

	h.hub.AddChannel(client, realtime.SessionChannel(sessionID))
	h.hub.AddChannel(client, realtime.OrgChannel(h.orgID))
	h.metrics.SSEClientConnected()
	h.log.Info("SSE stream open", "session_id", sessionID, "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[sessionID] == client {
		delete(h.clients, sessionID)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
	h.metrics.SSEClientDisconnected()
	h.log.Info("SSE stream closed", "session_id", sessionID, "client_id", client.ID)
}
