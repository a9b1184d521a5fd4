// backup.go implements the export/import use cases over the portable
// backup document. Bins travel by label, not id, and import is
// merge-only: existing data is never deleted, matching labels are
// reused.
package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/frootsnoops/brickbin/internal/datastore"
	"github.com/frootsnoops/brickbin/internal/errors"
	"github.com/frootsnoops/brickbin/internal/export"
)

// ImportSummary reports what an import actually changed.
type ImportSummary struct {
	BinsImported  int `json:"binsImported"`
	PartsImported int `json:"partsImported"`
}

// Export serializes all bins, parts and assignments into a backup
// document. Each part carries the complete label list of its bins; the
// legacy single-label field mirrors the first of them.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	bins, err := s.store.GetAllBins(ctx)
	if err != nil {
		return nil, err
	}
	if len(bins) == 0 {
		return nil, errors.New(ErrNothingToExport).
			Component("inventory").
			Category(errors.CategoryValidation).
			Build()
	}

	labelByID := make(map[int64]string, len(bins))
	binExports := make([]export.BinExport, 0, len(bins))
	for i := range bins {
		labelByID[bins[i].ID] = bins[i].Label
		binExports = append(binExports, export.BinExport{
			Label:       bins[i].Label,
			Description: bins[i].Description,
			CreatedAt:   bins[i].CreatedAt,
		})
	}

	refs, err := s.store.AllAssignments(ctx)
	if err != nil {
		return nil, err
	}
	labelsByPart := make(map[string][]string)
	for _, ref := range refs {
		if label, ok := labelByID[ref.BinLocationID]; ok {
			labelsByPart[ref.PartID] = append(labelsByPart[ref.PartID], label)
		}
	}
	for _, labels := range labelsByPart {
		sort.Slice(labels, func(i, j int) bool {
			return strings.ToLower(labels[i]) < strings.ToLower(labels[j])
		})
	}

	parts, err := s.store.GetAllParts(ctx)
	if err != nil {
		return nil, err
	}
	partExports := make([]export.PartExport, 0, len(parts))
	for i := range parts {
		p := &parts[i]
		labels := labelsByPart[p.ID]
		pe := export.PartExport{
			ID:        p.ID,
			Name:      p.Name,
			Type:      p.Type,
			Category:  p.Category,
			ImgURL:    p.ImgURL,
			BinLabels: labels,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		if len(labels) > 0 {
			pe.BinLabel = &labels[0]
		}
		partExports = append(partExports, pe)
	}

	s.log.Info("exported inventory", "bins", len(binExports), "parts", len(partExports))
	return export.Marshal(&export.Backup{
		Version:      export.CurrentVersion,
		ExportedAt:   time.Now().UnixMilli(),
		BinLocations: binExports,
		Parts:        partExports,
	})
}

// Import merges a backup document into the store. Bins are matched
// case-insensitively by label and never duplicated; each imported part
// gets its full assignment set rebuilt from the document's labels.
// Labels not resolvable to a bin are dropped from that part. A failing
// part is logged and skipped, the rest of the batch continues.
func (s *Service) Import(ctx context.Context, data []byte) (*ImportSummary, error) {
	backup, err := export.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	s.log.Info("importing backup", "version", backup.Version,
		"bins", len(backup.BinLocations), "parts", len(backup.Parts))

	existing, err := s.store.GetAllBins(ctx)
	if err != nil {
		return nil, err
	}
	idByLabel := make(map[string]int64, len(existing))
	for i := range existing {
		idByLabel[strings.ToLower(existing[i].Label)] = existing[i].ID
	}

	summary := &ImportSummary{}
	for i := range backup.BinLocations {
		be := &backup.BinLocations[i]
		key := strings.ToLower(strings.TrimSpace(be.Label))
		if key == "" {
			continue
		}
		if _, exists := idByLabel[key]; exists {
			s.log.Debug("skipped duplicate bin", "label", be.Label)
			continue
		}
		bin, err := s.store.CreateBin(ctx, strings.TrimSpace(be.Label), be.Description)
		if err != nil {
			return nil, err
		}
		idByLabel[key] = bin.ID
		summary.BinsImported++
	}

	for i := range backup.Parts {
		pe := &backup.Parts[i]
		part := &datastore.Part{
			ID:        pe.ID,
			Name:      pe.Name,
			Type:      pe.Type,
			Category:  pe.Category,
			ImgURL:    pe.ImgURL,
			CreatedAt: pe.CreatedAt,
			UpdatedAt: pe.UpdatedAt,
		}
		if err := s.store.UpsertPart(ctx, part); err != nil {
			s.log.Error("skipping part, upsert failed", "part_id", pe.ID, "error", err)
			continue
		}

		binIDs := make([]int64, 0, len(pe.BinLabels))
		for _, label := range pe.Labels() {
			if id, ok := idByLabel[strings.ToLower(label)]; ok {
				binIDs = append(binIDs, id)
			}
		}
		if err := s.store.ReplaceAssignments(ctx, pe.ID, binIDs, pe.UpdatedAt); err != nil {
			s.log.Error("skipping part assignments, replace failed", "part_id", pe.ID, "error", err)
			continue
		}
		summary.PartsImported++
	}

	s.log.Info("import finished",
		"bins_imported", summary.BinsImported,
		"parts_imported", summary.PartsImported)
	return summary, nil
}
