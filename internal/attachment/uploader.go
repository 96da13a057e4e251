// Package attachment moves SDS and CoA files in and out of the files bucket.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yungbote/dossier-backend/internal/domain/dossier"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
)

// DownloadTTL is how long a signed download link stays valid.
const DownloadTTL = 60 * time.Second

var (
	ErrNoAttachment = errors.New("no attachment in slot")
	ErrMissingName  = errors.New("file name required")
	ErrForeignKey   = errors.New("attachment key outside dossier prefix")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeName replaces every character outside [A-Za-z0-9._-] with '_'.
// The mapping is per character, so it is idempotent and length preserving
// in runes.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Prefix is the key namespace of one dossier: "{org}/dossiers/{dossier}/".
func Prefix(orgID, dossierID string) string {
	return orgID + "/dossiers/" + dossierID + "/"
}

// Key builds "{org}/dossiers/{dossier}/{label}_{millis}_{sanitized}".
func Key(orgID, dossierID string, slot dossier.Slot, at time.Time, filename string) string {
	return fmt.Sprintf("%s%s_%d_%s",
		Prefix(orgID, dossierID), strings.ToLower(slot.Label()), at.UnixMilli(), SanitizeName(filename))
}

// Owns reports whether key lies under d's own prefix.
func Owns(d *dossier.Dossier, key string) bool {
	if d == nil || d.OrgID == "" {
		return false
	}
	return strings.HasPrefix(key, Prefix(d.OrgID, d.ID.String()))
}

// Blobs is the subset of the storage client the uploader needs.
type Blobs interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration, opts objectstore.SignOptions) (string, error)
}

// File is an uploaded file: its original display name and content.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type Uploader struct {
	log   *logger.Logger
	blobs Blobs
	now   func() time.Time
}

func NewUploader(log *logger.Logger, blobs Blobs) *Uploader {
	return &Uploader{log: log.With("service", "AttachmentUploader"), blobs: blobs, now: time.Now}
}

// Upload stores the file and returns what the caller must persist on the
// slot. The record itself is not touched here.
func (u *Uploader) Upload(ctx context.Context, slot dossier.Slot, orgID, dossierID string, f File) (dossier.Attachment, error) {
	if strings.TrimSpace(f.Name) == "" {
		return dossier.Attachment{}, fmt.Errorf("upload %s: %w", slot.Label(), ErrMissingName)
	}
	key := Key(orgID, dossierID, slot, u.now(), f.Name)
	contentType := f.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name)))
	}
	if err := u.blobs.PutObject(ctx, key, f.Body, contentType); err != nil {
		return dossier.Attachment{}, err
	}
	u.log.Info("attachment uploaded", "slot", slot, "dossier_id", dossierID, "key", key)
	return dossier.Attachment{Name: f.Name, Path: key}, nil
}

// DownloadURL signs the slot's object for DownloadTTL.
func (u *Uploader) DownloadURL(ctx context.Context, d *dossier.Dossier, slot dossier.Slot) (string, error) {
	a, ok := d.Attachment(slot)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoAttachment, slot.Label())
	}
	if !Owns(d, a.Path) {
		return "", fmt.Errorf("%w: %s", ErrForeignKey, slot.Label())
	}
	filename := a.Name
	if filename == "" {
		filename = slot.Label()
	}
	return u.blobs.SignedURL(ctx, a.Path, DownloadTTL, objectstore.SignOptions{Filename: filename})
}
