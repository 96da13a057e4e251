package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type SSEEvent string

const (
	SSEEventSignedIn       SSEEvent = "SignedIn"
	SSEEventSignedOut      SSEEvent = "SignedOut"
	SSEEventTokenRefreshed SSEEvent = "TokenRefreshed"
	SSEEventDossierChanged SSEEvent = "DossierChanged"
	SSEEventDossierDeleted SSEEvent = "DossierDeleted"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// SessionChannel is where auth changes for a single session are published.
func SessionChannel(sessionID uuid.UUID) string { return "session:" + sessionID.String() }

// OrgChannel carries dossier changes visible to everyone in an organization.
func OrgChannel(orgID string) string { return "org:" + orgID }

type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}
