// Package composition edits the ordered ingredient table of a dossier.
// Every operation returns a new slice and leaves its input untouched.
package composition

import "fmt"

// Row is one ingredient line. Percent is free text; no numeric checks apply.
type Row struct {
	Ingredient string `json:"ingredient"`
	CAS        string `json:"cas"`
	Percent    string `json:"percent"`
}

// RowPatch carries the fields to overwrite on a single row. Nil leaves the
// field as is.
type RowPatch struct {
	Ingredient *string `json:"ingredient,omitempty"`
	CAS        *string `json:"cas,omitempty"`
	Percent    *string `json:"percent,omitempty"`
}

func (p RowPatch) Empty() bool {
	return p.Ingredient == nil && p.CAS == nil && p.Percent == nil
}

func (p RowPatch) apply(r Row) Row {
	if p.Ingredient != nil {
		r.Ingredient = *p.Ingredient
	}
	if p.CAS != nil {
		r.CAS = *p.CAS
	}
	if p.Percent != nil {
		r.Percent = *p.Percent
	}
	return r
}

// IndexError reports a positional index outside the table.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("composition row %d out of range (rows=%d)", e.Index, e.Len)
}

// Normalize turns a nil table into an empty one.
func Normalize(rows []Row) []Row {
	if rows == nil {
		return []Row{}
	}
	return rows
}

// Clone copies rows; the result is never nil.
func Clone(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

func UpdateRow(rows []Row, i int, patch RowPatch) ([]Row, error) {
	if i < 0 || i >= len(rows) {
		return nil, &IndexError{Index: i, Len: len(rows)}
	}
	out := Clone(rows)
	out[i] = patch.apply(out[i])
	return out, nil
}

// AddRow appends an empty row.
func AddRow(rows []Row) []Row {
	out := make([]Row, len(rows), len(rows)+1)
	copy(out, rows)
	return append(out, Row{})
}

// RemoveRow drops row i; later rows shift down by one.
func RemoveRow(rows []Row, i int) ([]Row, error) {
	if i < 0 || i >= len(rows) {
		return nil, &IndexError{Index: i, Len: len(rows)}
	}
	out := make([]Row, 0, len(rows)-1)
	out = append(out, rows[:i]...)
	return append(out, rows[i+1:]...), nil
}
