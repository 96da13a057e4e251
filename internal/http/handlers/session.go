package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/requestdata"
	"github.com/yungbote/dossier-backend/internal/workspace"
)

type SessionHandler struct {
	registry *workspace.Registry
}

func NewSessionHandler(registry *workspace.Registry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{
		"session":   e.Session.State(),
		"workspace": e.Workspace.Snapshot().Phase,
	})
}

// openEntry returns the caller's session entry, writing the error response
// itself when there is none.
func openEntry(c *gin.Context, reg *workspace.Registry) (*workspace.Entry, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if !rd.Authenticated() {
		respondErr(c, workspace.ErrNotAuthenticated)
		return nil, false
	}
	e, err := reg.Open(c.Request.Context(), rd.SessionID, rd.TokenString)
	if err != nil {
		respondErr(c, err)
		return nil, false
	}
	return e, true
}
