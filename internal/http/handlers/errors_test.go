package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/yungbote/dossier-backend/internal/attachment"
	"github.com/yungbote/dossier-backend/internal/domain/dossier"
	"github.com/yungbote/dossier-backend/internal/storage"
	"github.com/yungbote/dossier-backend/internal/workspace"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"blank upload name", fmt.Errorf("upload SDS: %w", attachment.ErrMissingName), http.StatusBadRequest, "invalid_upload"},
		{"foreign key", fmt.Errorf("%w: SDS", workspace.ErrForeignKey), http.StatusForbidden, "attachment_forbidden"},
		{"attachment column", fmt.Errorf("%w: sds_path", dossier.ErrAttachmentField), http.StatusBadRequest, "invalid_patch"},
		{"confirm", workspace.ErrConfirmationRequired, http.StatusConflict, "confirmation_required"},
		{"storage not found", &storage.StorageError{Op: "delete", Reason: storage.ReasonNotFound, Err: errors.New("gone")}, http.StatusNotFound, "storage_not_found"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := classify(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("classify: want=%d/%q got=%d/%q", tc.status, tc.code, status, code)
			}
		})
	}
}
