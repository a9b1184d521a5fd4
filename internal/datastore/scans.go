// scans.go implements scan history storage.
package datastore

import (
	"context"
	"fmt"

	"github.com/frootsnoops/brickbin/internal/errors"
	"gorm.io/gorm"
)

// SaveScan persists a scan together with its ranked candidates in one
// transaction and returns the generated scan ID.
func (ds *DataStore) SaveScan(ctx context.Context, scan *Scan, candidates []ScanCandidate) (int64, error) {
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(scan).Error; err != nil {
			return err
		}
		for i := range candidates {
			candidates[i].ScanID = scan.ID
		}
		if len(candidates) > 0 {
			if err := tx.Create(&candidates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.New(fmt.Errorf("saving scan: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("candidate_count", len(candidates)).
			Build()
	}
	ds.hub.notify(TableScans, TableScanCandidates)
	return scan.ID, nil
}

// GetScan fetches a scan with its candidates, nil when absent.
func (ds *DataStore) GetScan(ctx context.Context, id int64) (*Scan, error) {
	var scan Scan
	err := ds.DB.WithContext(ctx).
		Preload("Candidates", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank ASC")
		}).
		First(&scan, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("fetching scan %d: %w", id, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("scan_id", id).
			Build()
	}
	return &scan, nil
}

// RecentScans returns the newest scans with candidates, newest first.
func (ds *DataStore) RecentScans(ctx context.Context, limit int) ([]Scan, error) {
	var scans []Scan
	if err := ds.DB.WithContext(ctx).
		Preload("Candidates", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank ASC")
		}).
		Order("timestamp DESC").
		Limit(limit).
		Find(&scans).Error; err != nil {
		return nil, errors.New(fmt.Errorf("fetching recent scans: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("limit", limit).
			Build()
	}
	return scans, nil
}

// DeleteScan removes a scan; cascade drops its candidates.
func (ds *DataStore) DeleteScan(ctx context.Context, id int64) error {
	result := ds.DB.WithContext(ctx).Delete(&Scan{}, id)
	if result.Error != nil {
		return errors.New(fmt.Errorf("deleting scan %d: %w", id, result.Error)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("scan_id", id).
			Build()
	}
	if result.RowsAffected == 0 {
		return ErrScanNotFound
	}
	ds.hub.notify(TableScans, TableScanCandidates)
	return nil
}
