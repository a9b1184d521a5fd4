// bins.go implements bin storage operations.
package datastore

import (
	"context"
	"fmt"

	"github.com/frootsnoops/brickbin/internal/errors"
	"gorm.io/gorm"
)

// CreateBin persists a new bin and returns it with its generated ID.
// Label uniqueness is a use-case concern, not enforced here.
func (ds *DataStore) CreateBin(ctx context.Context, label string, description *string) (*Bin, error) {
	bin := &Bin{
		Label:       label,
		Description: description,
		CreatedAt:   nowMillis(),
	}
	if err := ds.DB.WithContext(ctx).Create(bin).Error; err != nil {
		return nil, errors.New(fmt.Errorf("creating bin %q: %w", label, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("label", label).
			Build()
	}
	ds.hub.notify(TableBins)
	return bin, nil
}

// GetBin fetches a bin by ID, returning nil when it does not exist.
func (ds *DataStore) GetBin(ctx context.Context, id int64) (*Bin, error) {
	var bin Bin
	err := ds.DB.WithContext(ctx).First(&bin, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("fetching bin %d: %w", id, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("bin_id", id).
			Build()
	}
	return &bin, nil
}

// GetAllBins returns every bin ordered case-insensitively by label.
func (ds *DataStore) GetAllBins(ctx context.Context) ([]Bin, error) {
	var bins []Bin
	if err := ds.DB.WithContext(ctx).
		Order("LOWER(label) ASC").
		Find(&bins).Error; err != nil {
		return nil, errors.New(fmt.Errorf("fetching bins: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return bins, nil
}

// UpdateBin saves changes to an existing bin.
func (ds *DataStore) UpdateBin(ctx context.Context, bin *Bin) error {
	result := ds.DB.WithContext(ctx).
		Model(&Bin{}).
		Where("id = ?", bin.ID).
		Updates(map[string]any{
			"label":       bin.Label,
			"description": bin.Description,
		})
	if result.Error != nil {
		return errors.New(fmt.Errorf("updating bin %d: %w", bin.ID, result.Error)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("bin_id", bin.ID).
			Build()
	}
	if result.RowsAffected == 0 {
		return ErrBinNotFound
	}
	ds.hub.notify(TableBins)
	return nil
}

// DeleteBin removes a bin. Its assignment rows go with it via the
// cascade constraint on part_bin_assignments.
func (ds *DataStore) DeleteBin(ctx context.Context, id int64) error {
	result := ds.DB.WithContext(ctx).Delete(&Bin{}, id)
	if result.Error != nil {
		return errors.New(fmt.Errorf("deleting bin %d: %w", id, result.Error)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("bin_id", id).
			Build()
	}
	if result.RowsAffected == 0 {
		return ErrBinNotFound
	}
	ds.hub.notify(TableBins, TableAssignments)
	return nil
}

// CountDistinctParts counts the parts assigned to a bin. The count comes
// from the assignment table, so a part assigned to several bins counts
// once in each of them.
func (ds *DataStore) CountDistinctParts(ctx context.Context, binID int64) (int64, error) {
	var count int64
	if err := ds.DB.WithContext(ctx).
		Model(&PartBinAssignment{}).
		Where("bin_location_id = ?", binID).
		Distinct("part_id").
		Count(&count).Error; err != nil {
		return 0, errors.New(fmt.Errorf("counting parts in bin %d: %w", binID, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("bin_id", binID).
			Build()
	}
	return count, nil
}

// BinActivities returns, for every bin, the most recent updated_at of
// any assigned part. Bins with no parts report zero activity.
func (ds *DataStore) BinActivities(ctx context.Context) ([]BinActivity, error) {
	var activities []BinActivity
	if err := ds.DB.WithContext(ctx).Raw(`
		SELECT b.id AS bin_location_id,
		       COALESCE(MAX(p.updated_at), 0) AS latest_activity
		FROM bin_locations b
		LEFT JOIN part_bin_assignments a ON a.bin_location_id = b.id
		LEFT JOIN parts p ON p.id = a.part_id
		GROUP BY b.id`).
		Scan(&activities).Error; err != nil {
		return nil, errors.New(fmt.Errorf("fetching bin activities: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return activities, nil
}
