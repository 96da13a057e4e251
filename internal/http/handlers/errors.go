package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/attachment"
	"github.com/yungbote/dossier-backend/internal/composition"
	"github.com/yungbote/dossier-backend/internal/domain/dossier"
	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/platform/apierr"
	"github.com/yungbote/dossier-backend/internal/services"
	"github.com/yungbote/dossier-backend/internal/storage"
	"github.com/yungbote/dossier-backend/internal/workspace"
)

// respondErr maps an error from the layers below to one response envelope.
func respondErr(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.RespondError(c, status, code, err)
}

func classify(err error) (int, string) {
	if ae := apierr.From(err); ae != nil {
		return ae.Status, ae.Code
	}

	if reason, ok := services.AuthReasonOf(err); ok {
		switch reason {
		case services.AuthReasonInvalidEmail, services.AuthReasonRejected:
			return http.StatusBadRequest, string(reason)
		case services.AuthReasonUnavailable:
			return http.StatusServiceUnavailable, string(reason)
		default:
			return http.StatusUnauthorized, string(reason)
		}
	}

	var se *storage.StorageError
	if errors.As(err, &se) {
		code := "storage_" + string(se.Reason)
		switch se.Reason {
		case storage.ReasonNotFound:
			return http.StatusNotFound, code
		case storage.ReasonTimeout:
			return http.StatusGatewayTimeout, code
		default:
			return http.StatusServiceUnavailable, code
		}
	}

	var idxErr *composition.IndexError
	switch {
	case errors.As(err, &idxErr):
		return http.StatusBadRequest, "invalid_row_index"
	case errors.Is(err, workspace.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, workspace.ErrNotInList):
		return http.StatusNotFound, "not_in_list"
	case errors.Is(err, workspace.ErrConfirmationRequired):
		return http.StatusConflict, "confirmation_required"
	case errors.Is(err, workspace.ErrNoAttachment):
		return http.StatusNotFound, "no_attachment"
	case errors.Is(err, workspace.ErrForeignKey):
		return http.StatusForbidden, "attachment_forbidden"
	case errors.Is(err, attachment.ErrMissingName):
		return http.StatusBadRequest, "invalid_upload"
	case errors.Is(err, dossier.ErrUnknownField),
		errors.Is(err, dossier.ErrAttachmentField),
		errors.Is(err, dossier.ErrImmutableField),
		errors.Is(err, dossier.ErrNullField),
		errors.Is(err, dossier.ErrInvalidValue):
		return http.StatusBadRequest, "invalid_patch"
	}
	return http.StatusInternalServerError, "internal_error"
}
