// parts.go implements part storage and the assignment write path.
package datastore

import (
	"context"
	"fmt"

	"github.com/frootsnoops/brickbin/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetPart fetches a part by its catalog ID, returning nil when absent.
func (ds *DataStore) GetPart(ctx context.Context, id string) (*Part, error) {
	var part Part
	err := ds.DB.WithContext(ctx).First(&part, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("fetching part %s: %w", id, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("part_id", id).
			Build()
	}
	return &part, nil
}

// GetAllParts returns every part ordered by name.
func (ds *DataStore) GetAllParts(ctx context.Context) ([]Part, error) {
	var parts []Part
	if err := ds.DB.WithContext(ctx).
		Order("name ASC").
		Find(&parts).Error; err != nil {
		return nil, errors.New(fmt.Errorf("fetching parts: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return parts, nil
}

// UpsertPart inserts the part or, when the catalog ID already exists,
// refreshes its metadata. The legacy bin cache and created_at survive
// the update so re-scanning a known part never loses its placement.
func (ds *DataStore) UpsertPart(ctx context.Context, part *Part) error {
	err := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "type", "category", "img_url", "updated_at",
		}),
	}).Create(part).Error
	if err != nil {
		return errors.New(fmt.Errorf("upserting part %s: %w", part.ID, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("part_id", part.ID).
			Build()
	}
	ds.hub.notify(TableParts)
	return nil
}

// DeletePart removes a part; cascade drops its assignments and scan
// candidates.
func (ds *DataStore) DeletePart(ctx context.Context, id string) error {
	result := ds.DB.WithContext(ctx).Delete(&Part{}, "id = ?", id)
	if result.Error != nil {
		return errors.New(fmt.Errorf("deleting part %s: %w", id, result.Error)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("part_id", id).
			Build()
	}
	if result.RowsAffected == 0 {
		return ErrPartNotFound
	}
	ds.hub.notify(TableParts, TableAssignments)
	return nil
}

// ReplaceAssignments swaps a part's complete bin membership in one
// transaction: existing rows are removed, the given bins inserted (first
// occurrence wins on duplicates), and the legacy single-bin cache on the
// part is pointed at the first bin, or cleared for an empty set.
func (ds *DataStore) ReplaceAssignments(ctx context.Context, partID string, binIDs []int64, updatedAt int64) error {
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&Part{}).Where("id = ?", partID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrPartNotFound
		}

		if err := tx.Where("part_id = ?", partID).
			Delete(&PartBinAssignment{}).Error; err != nil {
			return err
		}

		seen := make(map[int64]struct{}, len(binIDs))
		rows := make([]PartBinAssignment, 0, len(binIDs))
		for _, binID := range binIDs {
			if _, dup := seen[binID]; dup {
				continue
			}
			seen[binID] = struct{}{}
			rows = append(rows, PartBinAssignment{
				PartID:        partID,
				BinLocationID: binID,
				AssignedAt:    updatedAt,
			})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		var legacy *int64
		if len(rows) > 0 {
			legacy = &rows[0].BinLocationID
		}
		return tx.Model(&Part{}).
			Where("id = ?", partID).
			Updates(map[string]any{
				"bin_location_id": legacy,
				"updated_at":      updatedAt,
			}).Error
	})
	if err != nil {
		if errors.Is(err, ErrPartNotFound) {
			return ErrPartNotFound
		}
		return errors.New(fmt.Errorf("replacing assignments for part %s: %w", partID, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("part_id", partID).
			Context("bin_count", len(binIDs)).
			Build()
	}
	ds.hub.notify(TableAssignments, TableParts)
	return nil
}

// BinsForPart returns the bins holding the part, ordered
// case-insensitively by label. Empty slice for unassigned or unknown
// parts.
func (ds *DataStore) BinsForPart(ctx context.Context, partID string) ([]Bin, error) {
	var bins []Bin
	if err := ds.DB.WithContext(ctx).
		Joins("JOIN part_bin_assignments a ON a.bin_location_id = bin_locations.id").
		Where("a.part_id = ?", partID).
		Order("LOWER(bin_locations.label) ASC").
		Find(&bins).Error; err != nil {
		return nil, errors.New(fmt.Errorf("fetching bins for part %s: %w", partID, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("part_id", partID).
			Build()
	}
	return bins, nil
}

// PartsForBin returns the parts assigned to the bin, ordered by name.
func (ds *DataStore) PartsForBin(ctx context.Context, binID int64) ([]Part, error) {
	var parts []Part
	if err := ds.DB.WithContext(ctx).
		Joins("JOIN part_bin_assignments a ON a.part_id = parts.id").
		Where("a.bin_location_id = ?", binID).
		Order("parts.name ASC").
		Find(&parts).Error; err != nil {
		return nil, errors.New(fmt.Errorf("fetching parts for bin %d: %w", binID, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("bin_id", binID).
			Build()
	}
	return parts, nil
}

// AllAssignments returns every (part, bin) pair, used by the export
// builder and the overview aggregation.
func (ds *DataStore) AllAssignments(ctx context.Context) ([]AssignmentRef, error) {
	var refs []AssignmentRef
	if err := ds.DB.WithContext(ctx).
		Model(&PartBinAssignment{}).
		Select("part_id", "bin_location_id").
		Order("part_id ASC, bin_location_id ASC").
		Find(&refs).Error; err != nil {
		return nil, errors.New(fmt.Errorf("fetching assignments: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return refs, nil
}
