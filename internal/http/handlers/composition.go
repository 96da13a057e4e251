package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/composition"
	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/platform/apierr"
	"github.com/yungbote/dossier-backend/internal/workspace"
)

type CompositionHandler struct {
	registry *workspace.Registry
}

func NewCompositionHandler(registry *workspace.Registry) *CompositionHandler {
	return &CompositionHandler{registry: registry}
}

func (h *CompositionHandler) AddRow(c *gin.Context) {
	id, ok := dossierID(c)
	if !ok {
		return
	}
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	d, err := e.Workspace.AddCompositionRow(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"dossier": d})
}

func (h *CompositionHandler) UpdateRow(c *gin.Context) {
	id, ok := dossierID(c)
	if !ok {
		return
	}
	index, ok := rowIndex(c)
	if !ok {
		return
	}
	var p composition.RowPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		respondErr(c, apierr.BadRequest("invalid_request", err))
		return
	}
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	d, err := e.Workspace.UpdateCompositionRow(c.Request.Context(), id, index, p)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"dossier": d})
}

func (h *CompositionHandler) RemoveRow(c *gin.Context) {
	id, ok := dossierID(c)
	if !ok {
		return
	}
	index, ok := rowIndex(c)
	if !ok {
		return
	}
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	d, err := e.Workspace.RemoveCompositionRow(c.Request.Context(), id, index)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"dossier": d})
}

func rowIndex(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondErr(c, apierr.BadRequest("invalid_row_index", err))
		return 0, false
	}
	return i, true
}
