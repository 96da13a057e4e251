package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/attachment"
	"github.com/yungbote/dossier-backend/internal/domain/dossier"
	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/platform/apierr"
	"github.com/yungbote/dossier-backend/internal/workspace"
)

type AttachmentHandler struct {
	registry *workspace.Registry
	maxBytes int64
}

func NewAttachmentHandler(registry *workspace.Registry, maxBytes int64) *AttachmentHandler {
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &AttachmentHandler{registry: registry, maxBytes: maxBytes}
}

// Upload takes a multipart "file" field and stores it in the slot.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	id, ok := dossierID(c)
	if !ok {
		return
	}
	slot, ok := attachmentSlot(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		respondErr(c, apierr.BadRequest("invalid_upload", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondErr(c, apierr.BadRequest("invalid_upload", err))
		return
	}
	defer f.Close()

	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	d, err := e.Workspace.UploadAttachment(c.Request.Context(), id, slot, attachment.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"dossier": d})
}

// Download returns a short-lived signed URL, or redirects to it with
// ?redirect=true.
func (h *AttachmentHandler) Download(c *gin.Context) {
	id, ok := dossierID(c)
	if !ok {
		return
	}
	slot, ok := attachmentSlot(c)
	if !ok {
		return
	}
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	u, err := e.Workspace.DownloadURL(c.Request.Context(), id, slot)
	if err != nil {
		respondErr(c, err)
		return
	}
	if redirect, _ := strconv.ParseBool(c.Query("redirect")); redirect {
		c.Redirect(http.StatusFound, u)
		return
	}
	response.RespondOK(c, gin.H{
		"url":        u,
		"expires_at": time.Now().Add(attachment.DownloadTTL).UTC(),
	})
}

// Remove clears the slot; the stored file is removed best effort.
func (h *AttachmentHandler) Remove(c *gin.Context) {
	id, ok := dossierID(c)
	if !ok {
		return
	}
	slot, ok := attachmentSlot(c)
	if !ok {
		return
	}
	e, ok := openEntry(c, h.registry)
	if !ok {
		return
	}
	d, err := e.Workspace.RemoveAttachment(c.Request.Context(), id, slot)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"dossier": d})
}

func attachmentSlot(c *gin.Context) (dossier.Slot, bool) {
	slot, err := dossier.ParseSlot(c.Param("slot"))
	if err != nil {
		respondErr(c, apierr.BadRequest("invalid_slot", err))
		return "", false
	}
	return slot, true
}
