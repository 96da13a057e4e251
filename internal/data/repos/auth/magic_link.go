package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/platform/dbctx"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

var (
	ErrMagicLinkNotFound = errors.New("magic link not found")
	ErrMagicLinkConsumed = errors.New("magic link already used")
)

type MagicLinkRepo interface {
	Create(dbc dbctx.Context, link *types.MagicLink) (*types.MagicLink, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MagicLink, error)
	Consume(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	DeleteExpired(dbc dbctx.Context, before time.Time) (int64, error)
}

type magicLinkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMagicLinkRepo(db *gorm.DB, baseLog *logger.Logger) MagicLinkRepo {
	return &magicLinkRepo{db: db, log: baseLog.With("repo", "MagicLinkRepo")}
}

func (r *magicLinkRepo) Create(dbc dbctx.Context, link *types.MagicLink) (*types.MagicLink, error) {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	if err := dbc.DB(r.db).Create(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

func (r *magicLinkRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MagicLink, error) {
	var out types.MagicLink
	err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMagicLinkNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Consume marks the link used. Only the first caller wins.
func (r *magicLinkRepo) Consume(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	res := dbc.DB(r.db).
		Model(&types.MagicLink{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMagicLinkConsumed
	}
	return nil
}

func (r *magicLinkRepo) DeleteExpired(dbc dbctx.Context, before time.Time) (int64, error) {
	res := dbc.DB(r.db).Where("expires_at < ?", before.UTC()).Delete(&types.MagicLink{})
	return res.RowsAffected, res.Error
}
