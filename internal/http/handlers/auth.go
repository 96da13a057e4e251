package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/platform/apierr"
	"github.com/yungbote/dossier-backend/internal/requestdata"
	"github.com/yungbote/dossier-backend/internal/services"
	"github.com/yungbote/dossier-backend/internal/workspace"
)

type AuthHandler struct {
	authService services.AuthService
	registry    *workspace.Registry
}

func NewAuthHandler(authService services.AuthService, registry *workspace.Registry) *AuthHandler {
	return &AuthHandler{authService: authService, registry: registry}
}

func (ah *AuthHandler) SignIn(c *gin.Context) {
	var req struct {
		Email      string `json:"email"`
		RedirectTo string `json:"redirect_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := ah.authService.RequestSignIn(c.Request.Context(), req.Email, req.RedirectTo); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

// Callback completes a magic link. The token is single use.
func (ah *AuthHandler) Callback(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		respondErr(c, apierr.BadRequest("invalid_request", errors.New("token required")))
		return
	}
	sess, err := ah.authService.CompleteSignIn(c.Request.Context(), token)
	if err != nil {
		respondErr(c, err)
		return
	}
	ah.respondTokens(c, sess)
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sess, err := ah.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondErr(c, err)
		return
	}
	if e, ok := ah.registry.Get(sess.Identity.SessionID); ok {
		e.Session.SetAccessToken(sess.AccessToken)
	}
	ah.respondTokens(c, sess)
}

func (ah *AuthHandler) SignOut(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if !rd.Authenticated() {
		respondErr(c, workspace.ErrNotAuthenticated)
		return
	}
	var err error
	if e, ok := ah.registry.Get(rd.SessionID); ok {
		e.Session.SetAccessToken(rd.TokenString)
		err = e.Session.SignOut(c.Request.Context())
	} else {
		err = ah.authService.SignOut(c.Request.Context(), rd.TokenString)
	}
	ah.registry.Drop(rd.SessionID)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (ah *AuthHandler) respondTokens(c *gin.Context, sess *services.SessionTokens) {
	response.RespondOK(c, gin.H{
		"access_token":  sess.AccessToken,
		"refresh_token": sess.RefreshToken,
		"expires_in":    int(ah.authService.GetAccessTTL().Seconds()),
		"expires_at":    sess.ExpiresAt,
		"identity":      sess.Identity,
		"redirect_to":   sess.RedirectTo,
	})
}
