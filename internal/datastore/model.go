// model.go defines the persisted entities for the local inventory database.
package datastore

import "time"

// Bin represents a user-defined physical storage location for parts.
type Bin struct {
	ID          int64   `gorm:"primaryKey"`
	Label       string  `gorm:"size:100;not null"`
	Description *string `gorm:"size:500"`
	// Timestamps are set by the application in epoch milliseconds, so
	// GORM's automatic time tracking is disabled.
	CreatedAt int64 `gorm:"not null;autoCreateTime:false"`
}

// TableName returns the table name for GORM.
func (Bin) TableName() string {
	return "bin_locations"
}

// Part represents a recognized catalog item (brick, set or figure).
// The ID is the external catalog identifier, stable across scans.
type Part struct {
	ID       string  `gorm:"primaryKey;size:100"`
	Name     string  `gorm:"size:300;not null"`
	Type     string  `gorm:"size:10;not null"` // "part", "set", "fig"
	Category *string `gorm:"size:200"`
	ImgURL   *string `gorm:"column:img_url;size:500"`

	// BinLocationID is the legacy single-bin cache. It mirrors the first
	// element of the assignment set and is recomputed on every assignment
	// write. Reads of bin membership must use part_bin_assignments.
	BinLocationID *int64 `gorm:"column:bin_location_id;index"`

	CreatedAt int64 `gorm:"not null;autoCreateTime:false"` // epoch milliseconds
	UpdatedAt int64 `gorm:"not null;autoUpdateTime:false"` // epoch milliseconds

	// Relationships (for cascade constraints)
	Assignments []PartBinAssignment `gorm:"foreignKey:PartID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (Part) TableName() string {
	return "parts"
}

// PartBinAssignment links one part to one bin. A part may be assigned to
// any number of bins and a bin may hold any number of parts.
type PartBinAssignment struct {
	PartID        string `gorm:"column:part_id;primaryKey;size:100;index"`
	BinLocationID int64  `gorm:"column:bin_location_id;primaryKey;autoIncrement:false;index"`
	AssignedAt    int64  `gorm:"not null"` // epoch milliseconds

	// Relationships
	Part *Part `gorm:"foreignKey:PartID;constraint:OnDelete:CASCADE"`
	Bin  *Bin  `gorm:"foreignKey:BinLocationID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (PartBinAssignment) TableName() string {
	return "part_bin_assignments"
}

// Scan records one recognition request and its outcome.
type Scan struct {
	ID              int64   `gorm:"primaryKey"`
	Timestamp       int64   `gorm:"not null;index"` // epoch milliseconds
	ImagePath       *string `gorm:"size:500"`
	ListingID       *string `gorm:"size:100"`
	TopItemID       *string `gorm:"size:100"`
	RecognitionType string  `gorm:"size:10;not null"` // "parts", "sets", "figs"

	// Relationships
	Candidates []ScanCandidate `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (Scan) TableName() string {
	return "scans"
}

// ScanCandidate is one ranked result of a scan. Rank 0 is the best match,
// score is the recognition confidence in [0.0, 1.0].
type ScanCandidate struct {
	ScanID int64   `gorm:"column:scan_id;primaryKey;autoIncrement:false;index"`
	ItemID string  `gorm:"column:item_id;primaryKey;size:100;index"`
	Rank   int     `gorm:"not null"`
	Score  float64 `gorm:"not null"`

	// Relationships
	Item *Part `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (ScanCandidate) TableName() string {
	return "scan_candidates"
}

// SchemaInfo tracks the database schema version (singleton row).
type SchemaInfo struct {
	ID      int64 `gorm:"primaryKey;check:id = 1"`
	Version int   `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (SchemaInfo) TableName() string {
	return "schema_info"
}

// AssignmentRef is a bare (part, bin) pair used for bulk aggregation.
type AssignmentRef struct {
	PartID        string `gorm:"column:part_id"`
	BinLocationID int64  `gorm:"column:bin_location_id"`
}

// BinActivity pairs a bin with the most recent update time of any part
// assigned to it; zero when the bin holds no parts.
type BinActivity struct {
	BinLocationID  int64 `gorm:"column:bin_location_id"`
	LatestActivity int64 `gorm:"column:latest_activity"` // epoch milliseconds
}

// nowMillis returns the current wall clock in epoch milliseconds.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
