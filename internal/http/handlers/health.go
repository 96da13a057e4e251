package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	missing     []string
	storageMode string
}

// NewHealthHandler reports the keys still missing so an unconfigured server
// is visible without reading logs.
func NewHealthHandler(missing []string, storageMode string) *HealthHandler {
	return &HealthHandler{missing: missing, storageMode: storageMode}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":       "ok",
		"configured":   len(h.missing) == 0,
		"storage_mode": h.storageMode,
	}
	if len(h.missing) > 0 {
		body["missing"] = h.missing
	}
	c.JSON(http.StatusOK, body)
}
