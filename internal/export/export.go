// Package export defines the portable backup document for bins, parts
// and their assignments, and the encode/decode layer over it. The
// document identifies bins by label, not by database id, so a backup can
// be restored into any store regardless of id allocation.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/frootsnoops/brickbin/internal/errors"
)

// CurrentVersion is the document version written by exports. Version 3
// introduced the binLabels list; versions 2 and below carried only the
// single binLabel field.
const CurrentVersion = 3

// Backup is the top-level export document.
type Backup struct {
	Version      int          `json:"version"`
	ExportedAt   int64        `json:"exportedAt"` // epoch milliseconds
	BinLocations []BinExport  `json:"binLocations"`
	Parts        []PartExport `json:"parts,omitempty"`
}

// BinExport is one bin in the document. Bins are matched by label on
// import, so no id is carried.
type BinExport struct {
	Label       string  `json:"label"`
	Description *string `json:"description,omitempty"`
	CreatedAt   int64   `json:"createdAt"`
}

// PartExport is one part in the document. BinLabels holds every bin the
// part is assigned to; BinLabel duplicates the first of them so that
// readers of the pre-multi-bin format keep working.
type PartExport struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Category  *string  `json:"category,omitempty"`
	ImgURL    *string  `json:"imgUrl,omitempty"`
	BinLabel  *string  `json:"binLabel,omitempty"`
	BinLabels []string `json:"binLabels,omitempty"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// Labels returns the part's bin labels regardless of document version:
// the binLabels list when present, otherwise the legacy binLabel as a
// one-element list, otherwise nothing.
func (p *PartExport) Labels() []string {
	if len(p.BinLabels) > 0 {
		return p.BinLabels
	}
	if p.BinLabel != nil && *p.BinLabel != "" {
		return []string{*p.BinLabel}
	}
	return nil
}

// Marshal encodes the document as indented JSON.
func Marshal(backup *Backup) ([]byte, error) {
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, errors.New(fmt.Errorf("encoding backup: %w", err)).
			Component("export").
			Category(errors.CategoryImportExport).
			Build()
	}
	return data, nil
}

// Unmarshal decodes and validates a backup document. Unknown fields are
// ignored so newer documents degrade instead of failing.
func Unmarshal(data []byte) (*Backup, error) {
	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, errors.New(fmt.Errorf("malformed backup document: %w", err)).
			Component("export").
			Category(errors.CategoryImportExport).
			Build()
	}
	if len(backup.BinLocations) == 0 {
		return nil, errors.Newf("backup document contains no bin locations").
			Component("export").
			Category(errors.CategoryValidation).
			Build()
	}
	return &backup, nil
}
