package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/dossier-backend/internal/domain/dossier"
	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/platform/apierr"
	"github.com/yungbote/dossier-backend/internal/workspace"
)

type DossierHandler struct {
	registry *workspace.Registry
}

func NewDossierHandler(registry *workspace.Registry) *DossierHandler {
	return &DossierHandler{registry: registry}
}

// List returns the workspace snapshot, loading the list on first use.
// ?refresh=true forces a reload.
func (h *DossierHandler) List(c *gin.Context) {
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	var (
		snap workspace.Snapshot
		err  error
	)
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		snap, err = e.Workspace.Refresh(c.Request.Context())
	} else {
		snap, err = e.Workspace.EnsureLoaded(c.Request.Context())
	}
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, snap)
}

func (h *DossierHandler) Create(c *gin.Context) {
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	d, err := e.Workspace.Create(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"dossier": d})
}

func (h *DossierHandler) Select(c *gin.Context) {
	id, ok := dossierID(c)
	if !ok {
		return
	}
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	snap, err := e.Workspace.Select(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, snap)
}

// Patch applies a JSON object of column -> value as one storage patch.
func (h *DossierHandler) Patch(c *gin.Context) {
	id, ok := dossierID(c)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	patch, err := dossier.ParsePatch(raw)
	if err != nil {
		respondErr(c, err)
		return
	}
	if patch.Empty() {
		respondErr(c, apierr.BadRequest("invalid_patch", errors.New("patch has no fields")))
		return
	}
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	d, err := e.Workspace.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"dossier": d})
}

// Delete needs ?confirm=true; without it nothing is removed.
func (h *DossierHandler) Delete(c *gin.Context) {
	id, ok := dossierID(c)
	if !ok {
		return
	}
	confirm, _ := strconv.ParseBool(c.Query("confirm"))
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	snap, err := e.Workspace.Delete(c.Request.Context(), id, confirm)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, snap)
}

func dossierID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, apierr.BadRequest("invalid_id", err))
		return uuid.Nil, false
	}
	return id, true
}
