// interfaces.go defines the interface for the local inventory database.
package datastore

import (
	"context"
	"log/slog"

	"github.com/frootsnoops/brickbin/internal/conf"
	"github.com/frootsnoops/brickbin/internal/logging"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation.
//
// Lookup reads return nil (or an empty slice) for missing rows rather
// than an error; write operations against missing rows return the
// sentinel errors from errors.go.
type Interface interface {
	Open() error
	Close() error

	// Bin operations
	CreateBin(ctx context.Context, label string, description *string) (*Bin, error)
	GetBin(ctx context.Context, id int64) (*Bin, error)
	GetAllBins(ctx context.Context) ([]Bin, error)
	UpdateBin(ctx context.Context, bin *Bin) error
	DeleteBin(ctx context.Context, id int64) error

	// Part operations
	GetPart(ctx context.Context, id string) (*Part, error)
	GetAllParts(ctx context.Context) ([]Part, error)
	UpsertPart(ctx context.Context, part *Part) error
	DeletePart(ctx context.Context, id string) error

	// Assignment operations (the only write path is ReplaceAssignments)
	ReplaceAssignments(ctx context.Context, partID string, binIDs []int64, updatedAt int64) error
	BinsForPart(ctx context.Context, partID string) ([]Bin, error)
	PartsForBin(ctx context.Context, binID int64) ([]Part, error)
	AllAssignments(ctx context.Context) ([]AssignmentRef, error)
	CountDistinctParts(ctx context.Context, binID int64) (int64, error)
	BinActivities(ctx context.Context) ([]BinActivity, error)

	// Scan operations
	SaveScan(ctx context.Context, scan *Scan, candidates []ScanCandidate) (int64, error)
	GetScan(ctx context.Context, id int64) (*Scan, error)
	RecentScans(ctx context.Context, limit int) ([]Scan, error)
	DeleteScan(ctx context.Context, id int64) error

	// Live queries
	Subscribe(tables ...string) *TableSubscription
}

// Table names referenced by raw queries and live subscriptions.
const (
	TableBins           = "bin_locations"
	TableParts          = "parts"
	TableAssignments    = "part_bin_assignments"
	TableScans          = "scans"
	TableScanCandidates = "scan_candidates"
)

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB  *gorm.DB
	hub *liveQueryHub
	log *slog.Logger
}

// New creates a datastore for the configured storage backend.
func New(settings *conf.Settings) Interface {
	return &SQLiteStore{
		Settings:   settings,
		Migrations: Migrations(),
		DataStore: DataStore{
			hub: newLiveQueryHub(),
			log: logging.ForService("datastore"),
		},
	}
}
