package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/dossier-backend/internal/data/repos"
	types "github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/dbctx"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
)

// Client is the one gateway to the dossiers table and the files bucket.
// Every failure comes back as *StorageError.
type Client struct {
	log     *logger.Logger
	repo    repos.DossierRepo
	blobs   objectstore.Store
	metrics *observability.Metrics
}

func NewClient(log *logger.Logger, repo repos.DossierRepo, blobs objectstore.Store, metrics *observability.Metrics) *Client {
	return &Client{
		log:     log.With("service", "StorageClient"),
		repo:    repo,
		blobs:   blobs,
		metrics: metrics,
	}
}

func (c *Client) observe(op string, err error) error {
	c.metrics.ObserveStorageOp(op, err)
	return wrap(op, err)
}

func (c *Client) ListByOrg(ctx context.Context, orgID string) ([]*types.Dossier, error) {
	out, err := c.repo.ListByOrg(dbctx.New(ctx), orgID)
	if err := c.observe("list", err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Insert(ctx context.Context, d *types.Dossier) (*types.Dossier, error) {
	out, err := c.repo.Insert(dbctx.New(ctx), d)
	if err := c.observe("insert", err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Patch(ctx context.Context, orgID string, id uuid.UUID, patch types.DossierPatch) (*types.Dossier, error) {
	out, err := c.repo.Patch(dbctx.New(ctx), orgID, id, patch)
	if err := c.observe("patch", err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, orgID string, id uuid.UUID) error {
	return c.observe("delete", c.repo.Delete(dbctx.New(ctx), orgID, id))
}

// PutObject writes body under key, replacing any existing object.
func (c *Client) PutObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	return c.observe("put_object", c.blobs.Put(ctx, key, body, contentType))
}

func (c *Client) SignedURL(ctx context.Context, key string, ttl time.Duration, opts objectstore.SignOptions) (string, error) {
	u, err := c.blobs.SignedURL(ctx, key, ttl, opts)
	if err := c.observe("signed_url", err); err != nil {
		return "", err
	}
	return u, nil
}

// RemoveObject deletes key; a missing object counts as removed.
func (c *Client) RemoveObject(ctx context.Context, key string) error {
	err := c.blobs.Remove(ctx, key)
	if errors.Is(err, objectstore.ErrNotFound) {
		c.log.Debug("object already absent", "key", key)
		err = nil
	}
	return c.observe("remove_object", err)
}
