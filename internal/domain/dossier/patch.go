package dossier

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gorm.io/datatypes"

	"github.com/yungbote/dossier-backend/internal/composition"
)

var (
	ErrUnknownField   = errors.New("unknown dossier field")
	ErrImmutableField = errors.New("dossier field is immutable")
	ErrNullField      = errors.New("dossier field cannot be null")
	ErrInvalidValue   = errors.New("invalid dossier field value")
	// ErrAttachmentField rejects raw writes to slot columns; only uploads
	// and slot clears set them.
	ErrAttachmentField = errors.New("attachment fields are set by upload")
)

const (
	ColumnName            = "name"
	ColumnCompositionRows = "composition_rows"
	ColumnUpdatedAt       = "updated_at"
)

// TextColumns are the nullable free-text columns, attachment columns included.
var TextColumns = []string{
	"cas_number",
	"tds_notes",
	"composition_notes",
	"manufacturing_flowchart",
	"shared_equipment_notes",
	"allergens_pesach_notes",
	"change_control_notes",
	"use_point_notes",
	"contact_conditions",
	"fate_removal_notes",
	"equipment_temperatures",
	"campaigning_segregation",
	"cleaning_validation",
	"sds_name",
	"sds_path",
	"coa_name",
	"coa_path",
}

var immutableColumns = map[string]bool{
	"id":         true,
	"org_id":     true,
	"owner":      true,
	"created_at": true,
	"updated_at": true,
}

func (d *Dossier) textField(col string) **string {
	switch col {
	case "cas_number":
		return &d.CASNumber
	case "tds_notes":
		return &d.TDSNotes
	case "composition_notes":
		return &d.CompositionNotes
	case "manufacturing_flowchart":
		return &d.ManufacturingFlowchart
	case "shared_equipment_notes":
		return &d.SharedEquipmentNotes
	case "allergens_pesach_notes":
		return &d.AllergensPesachNotes
	case "change_control_notes":
		return &d.ChangeControlNotes
	case "use_point_notes":
		return &d.UsePointNotes
	case "contact_conditions":
		return &d.ContactConditions
	case "fate_removal_notes":
		return &d.FateRemovalNotes
	case "equipment_temperatures":
		return &d.EquipmentTemperatures
	case "campaigning_segregation":
		return &d.CampaigningSegregation
	case "cleaning_validation":
		return &d.CleaningValidation
	case "sds_name":
		return &d.SDSName
	case "sds_path":
		return &d.SDSPath
	case "coa_name":
		return &d.COAName
	case "coa_path":
		return &d.COAPath
	default:
		return nil
	}
}

func isTextColumn(col string) bool {
	return (&Dossier{}).textField(col) != nil
}

// Patch is a partial update keyed by column name. The zero value is empty.
type Patch struct {
	name  *string
	rows  []composition.Row
	texts map[string]*string
	set   map[string]bool
}

func (p *Patch) mark(col string) {
	if p.set == nil {
		p.set = map[string]bool{}
	}
	p.set[col] = true
}

func (p Patch) Empty() bool { return len(p.set) == 0 }

func (p Patch) Has(col string) bool { return p.set[col] }

// Columns lists the patched columns in sorted order.
func (p Patch) Columns() []string {
	out := make([]string, 0, len(p.set))
	for c := range p.set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (p *Patch) SetName(name string) *Patch {
	p.name = &name
	p.mark(ColumnName)
	return p
}

// SetText sets a nullable text column; nil clears it.
func (p *Patch) SetText(col string, v *string) error {
	if !isTextColumn(col) {
		return columnError(col)
	}
	if p.texts == nil {
		p.texts = map[string]*string{}
	}
	if v != nil {
		s := *v
		v = &s
	}
	p.texts[col] = v
	p.mark(col)
	return nil
}

func (p *Patch) SetCompositionRows(rows []composition.Row) *Patch {
	p.rows = composition.Clone(rows)
	p.mark(ColumnCompositionRows)
	return p
}

// SetAttachment fills both columns of a slot.
func (p *Patch) SetAttachment(slot Slot, a Attachment) error {
	name, path := a.Name, a.Path
	if err := p.SetText(slot.NameColumn(), &name); err != nil {
		return err
	}
	return p.SetText(slot.PathColumn(), &path)
}

// ClearAttachment nulls both columns of a slot.
func (p *Patch) ClearAttachment(slot Slot) error {
	if err := p.SetText(slot.NameColumn(), nil); err != nil {
		return err
	}
	return p.SetText(slot.PathColumn(), nil)
}

// Updates renders the patch as a column map for gorm. updated_at is not
// included.
func (p Patch) Updates() map[string]any {
	out := make(map[string]any, len(p.set))
	if p.name != nil {
		out[ColumnName] = *p.name
	}
	if p.Has(ColumnCompositionRows) {
		out[ColumnCompositionRows] = datatypes.JSONSlice[composition.Row](composition.Normalize(composition.Clone(p.rows)))
	}
	for col, v := range p.texts {
		if v == nil {
			out[col] = nil
		} else {
			out[col] = *v
		}
	}
	return out
}

// ParsePatch decodes a JSON object of column -> value. Text columns take a
// string or null, name takes a string and composition_rows an array.
func ParsePatch(raw map[string]json.RawMessage) (Patch, error) {
	var p Patch
	for col, val := range raw {
		isNull := string(val) == "null"
		switch {
		case immutableColumns[col]:
			return Patch{}, fmt.Errorf("%w: %s", ErrImmutableField, col)
		case isAttachmentColumn(col):
			return Patch{}, fmt.Errorf("%w: %s", ErrAttachmentField, col)
		case col == ColumnName:
			if isNull {
				return Patch{}, fmt.Errorf("%w: %s", ErrNullField, col)
			}
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return Patch{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, col, err)
			}
			p.SetName(s)
		case col == ColumnCompositionRows:
			if isNull {
				return Patch{}, fmt.Errorf("%w: %s", ErrNullField, col)
			}
			var rows []composition.Row
			if err := json.Unmarshal(val, &rows); err != nil {
				return Patch{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, col, err)
			}
			p.SetCompositionRows(rows)
		case isTextColumn(col):
			var s *string
			if err := json.Unmarshal(val, &s); err != nil {
				return Patch{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, col, err)
			}
			_ = p.SetText(col, s)
		default:
			return Patch{}, columnError(col)
		}
	}
	return p, nil
}

func isAttachmentColumn(col string) bool {
	for _, s := range Slots {
		if col == s.NameColumn() || col == s.PathColumn() {
			return true
		}
	}
	return false
}

func columnError(col string) error {
	if immutableColumns[col] {
		return fmt.Errorf("%w: %s", ErrImmutableField, col)
	}
	return fmt.Errorf("%w: %s", ErrUnknownField, col)
}
