package dossier

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/dossier-backend/internal/composition"
)

const DefaultName = "New Chemical"

// Dossier is one chemical's compliance record, partitioned by OrgID.
type Dossier struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	OrgID string    `gorm:"not null;column:org_id;index:idx_dossiers_org_updated,priority:1" json:"org_id"`
	Owner uuid.UUID `gorm:"type:uuid;not null;index;column:owner" json:"owner"`
	Name  string    `gorm:"not null;column:name" json:"name"`

	CASNumber              *string `gorm:"column:cas_number" json:"cas_number"`
	TDSNotes               *string `gorm:"column:tds_notes" json:"tds_notes"`
	CompositionNotes       *string `gorm:"column:composition_notes" json:"composition_notes"`
	ManufacturingFlowchart *string `gorm:"column:manufacturing_flowchart" json:"manufacturing_flowchart"`
	SharedEquipmentNotes   *string `gorm:"column:shared_equipment_notes" json:"shared_equipment_notes"`
	AllergensPesachNotes   *string `gorm:"column:allergens_pesach_notes" json:"allergens_pesach_notes"`
	ChangeControlNotes     *string `gorm:"column:change_control_notes" json:"change_control_notes"`
	UsePointNotes          *string `gorm:"column:use_point_notes" json:"use_point_notes"`
	ContactConditions      *string `gorm:"column:contact_conditions" json:"contact_conditions"`
	FateRemovalNotes       *string `gorm:"column:fate_removal_notes" json:"fate_removal_notes"`
	EquipmentTemperatures  *string `gorm:"column:equipment_temperatures" json:"equipment_temperatures"`
	CampaigningSegregation *string `gorm:"column:campaigning_segregation" json:"campaigning_segregation"`
	CleaningValidation     *string `gorm:"column:cleaning_validation" json:"cleaning_validation"`

	CompositionRows datatypes.JSONSlice[composition.Row] `gorm:"not null;column:composition_rows" json:"composition_rows"`

	SDSName *string `gorm:"column:sds_name" json:"sds_name"`
	SDSPath *string `gorm:"column:sds_path" json:"sds_path"`
	COAName *string `gorm:"column:coa_name" json:"coa_name"`
	COAPath *string `gorm:"column:coa_path" json:"coa_path"`

	CreatedAt time.Time `gorm:"not null;column:created_at;autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at;autoUpdateTime:false;index:idx_dossiers_org_updated,priority:2,sort:desc" json:"updated_at"`
}

func (Dossier) TableName() string { return "dossiers" }

// New returns a fresh record with the default name and an empty composition.
func New(id uuid.UUID, orgID string, owner uuid.UUID, now time.Time) *Dossier {
	ts := Timestamp(now)
	return &Dossier{
		ID:              id,
		OrgID:           orgID,
		Owner:           owner,
		Name:            DefaultName,
		CompositionRows: datatypes.JSONSlice[composition.Row]{},
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}

// Rows returns the composition table; never nil.
func (d *Dossier) Rows() []composition.Row {
	return composition.Normalize([]composition.Row(d.CompositionRows))
}

// Normalize restores invariants that JSON or the database may have dropped.
func (d *Dossier) Normalize() {
	if d.CompositionRows == nil {
		d.CompositionRows = datatypes.JSONSlice[composition.Row]{}
	}
}

func (d *Dossier) Clone() *Dossier {
	if d == nil {
		return nil
	}
	c := *d
	c.CompositionRows = datatypes.JSONSlice[composition.Row](composition.Clone(d.CompositionRows))
	for _, col := range TextColumns {
		if p := c.textField(col); p != nil && *p != nil {
			v := **p
			*p = &v
		}
	}
	return &c
}

// Timestamp truncates to the microsecond resolution both databases keep.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// NextUpdatedAt returns a stamp strictly after prev, preferring now.
func NextUpdatedAt(prev, now time.Time) time.Time {
	next := Timestamp(now)
	if !next.After(prev) {
		next = Timestamp(prev).Add(time.Microsecond)
	}
	return next
}
