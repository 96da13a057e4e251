package dossier

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/dossier-backend/internal/domain"
	domain "github.com/yungbote/dossier-backend/internal/domain/dossier"
	"github.com/yungbote/dossier-backend/internal/platform/dbctx"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

// ErrNotFound is returned when no row matches id within the org.
var ErrNotFound = errors.New("dossier not found")

type DossierRepo interface {
	ListByOrg(dbc dbctx.Context, orgID string) ([]*types.Dossier, error)
	GetByID(dbc dbctx.Context, orgID string, id uuid.UUID) (*types.Dossier, error)
	Insert(dbc dbctx.Context, d *types.Dossier) (*types.Dossier, error)
	Patch(dbc dbctx.Context, orgID string, id uuid.UUID, patch types.DossierPatch) (*types.Dossier, error)
	Delete(dbc dbctx.Context, orgID string, id uuid.UUID) error
}

type dossierRepo struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewDossierRepo(db *gorm.DB, baseLog *logger.Logger) DossierRepo {
	return &dossierRepo{db: db, log: baseLog.With("repo", "DossierRepo"), now: time.Now}
}

// ListByOrg returns the org's dossiers, most recently updated first.
func (r *dossierRepo) ListByOrg(dbc dbctx.Context, orgID string) ([]*types.Dossier, error) {
	transaction := dbc.DB(r.db)

	results := []*types.Dossier{}
	if err := transaction.
		Where("org_id = ?", orgID).
		Order("updated_at DESC").
		Order("id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	for _, d := range results {
		d.Normalize()
	}
	return results, nil
}

func (r *dossierRepo) GetByID(dbc dbctx.Context, orgID string, id uuid.UUID) (*types.Dossier, error) {
	transaction := dbc.DB(r.db)

	var out types.Dossier
	err := transaction.Where("org_id = ? AND id = ?", orgID, id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

func (r *dossierRepo) Insert(dbc dbctx.Context, d *types.Dossier) (*types.Dossier, error) {
	transaction := dbc.DB(r.db)

	rec := d.Clone()
	rec.Normalize()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := domain.Timestamp(r.now())
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	rec.CreatedAt = domain.Timestamp(rec.CreatedAt)
	rec.UpdatedAt = domain.Timestamp(rec.UpdatedAt)

	if err := transaction.Create(rec).Error; err != nil {
		return nil, err
	}
	return r.GetByID(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, rec.OrgID, rec.ID)
}

// Patch applies the partial update and re-stamps updated_at strictly after
// the stored value, then returns the full row.
func (r *dossierRepo) Patch(dbc dbctx.Context, orgID string, id uuid.UUID, patch types.DossierPatch) (*types.Dossier, error) {
	var out *types.Dossier
	run := func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		current, err := r.GetByID(txc, orgID, id)
		if err != nil {
			return err
		}
		updates := patch.Updates()
		updates[domain.ColumnUpdatedAt] = domain.NextUpdatedAt(current.UpdatedAt, r.now())

		res := txc.DB(r.db).
			Model(&types.Dossier{}).
			Where("org_id = ? AND id = ?", orgID, id).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		out, err = r.GetByID(txc, orgID, id)
		return err
	}

	if dbc.Tx != nil {
		if err := run(dbc.Tx); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := dbc.DB(r.db).Transaction(run); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dossierRepo) Delete(dbc dbctx.Context, orgID string, id uuid.UUID) error {
	transaction := dbc.DB(r.db)

	res := transaction.Where("org_id = ? AND id = ?", orgID, id).Delete(&types.Dossier{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
