package dossier

import (
	"fmt"
	"strings"
)

// Slot names one of the two file attachments a dossier carries.
type Slot string

const (
	SlotSDS Slot = "sds"
	SlotCOA Slot = "coa"
)

var Slots = []Slot{SlotSDS, SlotCOA}

func ParseSlot(raw string) (Slot, error) {
	switch Slot(strings.ToLower(strings.TrimSpace(raw))) {
	case SlotSDS:
		return SlotSDS, nil
	case SlotCOA:
		return SlotCOA, nil
	default:
		return "", fmt.Errorf("unknown attachment slot %q", raw)
	}
}

// Label is the display label ("SDS", "CoA").
func (s Slot) Label() string {
	switch s {
	case SlotSDS:
		return "SDS"
	case SlotCOA:
		return "CoA"
	default:
		return strings.ToUpper(string(s))
	}
}

func (s Slot) NameColumn() string { return string(s) + "_name" }
func (s Slot) PathColumn() string { return string(s) + "_path" }

// Attachment is the display name and blob key stored in a slot.
type Attachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Attachment returns the slot's contents; ok is false when no path is set.
func (d *Dossier) Attachment(slot Slot) (Attachment, bool) {
	var name, path *string
	switch slot {
	case SlotSDS:
		name, path = d.SDSName, d.SDSPath
	case SlotCOA:
		name, path = d.COAName, d.COAPath
	}
	if path == nil || *path == "" {
		return Attachment{}, false
	}
	a := Attachment{Path: *path}
	if name != nil {
		a.Name = *name
	}
	return a, true
}

// AttachmentPaths lists the non-empty blob keys across both slots.
func (d *Dossier) AttachmentPaths() []string {
	out := []string{}
	for _, s := range Slots {
		if a, ok := d.Attachment(s); ok {
			out = append(out, a.Path)
		}
	}
	return out
}
