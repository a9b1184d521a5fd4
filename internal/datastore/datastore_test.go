package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frootsnoops/brickbin/internal/conf"
)

// newTestStore opens a store on a fresh database file, mirroring the
// production setup. Memory-backed stores are covered separately.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	settings := &conf.Settings{}
	settings.Storage.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store, ok := New(settings).(*SQLiteStore)
	require.True(t, ok)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func mustCreateBin(t *testing.T, store *SQLiteStore, label string) *Bin {
	t.Helper()
	bin, err := store.CreateBin(context.Background(), label, nil)
	require.NoError(t, err)
	return bin
}

func mustUpsertPart(t *testing.T, store *SQLiteStore, id, name string) *Part {
	t.Helper()
	now := time.Now().UnixMilli()
	part := &Part{ID: id, Name: name, Type: "part", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.UpsertPart(context.Background(), part))
	return part
}

func TestOpenFreshDatabaseAtLatestVersion(t *testing.T) {
	store := newTestStore(t)

	var info SchemaInfo
	require.NoError(t, store.DB.First(&info).Error)
	assert.Equal(t, latestVersion(store.Migrations), info.Version)
	assert.True(t, store.DB.Migrator().HasTable(&PartBinAssignment{}))
}

// openRawV1 builds a database as it looked before the assignment join
// table existed: parts carry a nullable bin_location_id column and no
// schema_info table is present.
func openRawV1(t *testing.T, path string) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE bin_locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL,
			description TEXT,
			created_at INTEGER NOT NULL)`,
		`CREATE TABLE parts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			category TEXT,
			img_url TEXT,
			bin_location_id INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL)`,
		`INSERT INTO bin_locations (id, label, created_at) VALUES (1, 'Drawer A', 100)`,
		`INSERT INTO bin_locations (id, label, created_at) VALUES (2, 'Drawer B', 100)`,
		`INSERT INTO parts (id, name, type, bin_location_id, created_at, updated_at)
			VALUES ('3001', 'Brick 2x4', 'part', 1, 100, 150)`,
		`INSERT INTO parts (id, name, type, bin_location_id, created_at, updated_at)
			VALUES ('3002', 'Brick 2x3', 'part', 2, 100, 160)`,
		`INSERT INTO parts (id, name, type, created_at, updated_at)
			VALUES ('3003', 'Brick 2x2', 'part', 100, 170)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestMigrationBackfillsLegacyAssignments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	openRawV1(t, path)

	settings := &conf.Settings{}
	settings.Storage.SQLite.Path = path
	store := New(settings).(*SQLiteStore)
	require.NoError(t, store.Open())
	defer store.Close()

	var rows []PartBinAssignment
	require.NoError(t, store.DB.Order("part_id ASC").Find(&rows).Error)
	require.Len(t, rows, 2, "only parts with a bin should be backfilled")

	assert.Equal(t, "3001", rows[0].PartID)
	assert.Equal(t, int64(1), rows[0].BinLocationID)
	assert.Equal(t, int64(150), rows[0].AssignedAt, "assigned_at taken from updated_at")
	assert.Equal(t, "3002", rows[1].PartID)
	assert.Equal(t, int64(2), rows[1].BinLocationID)

	var info SchemaInfo
	require.NoError(t, store.DB.First(&info).Error)
	assert.Equal(t, 2, info.Version)
}

func TestMigratedLegacyDatabaseGainsNewerTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	openRawV1(t, path)

	settings := &conf.Settings{}
	settings.Storage.SQLite.Path = path
	store := New(settings).(*SQLiteStore)
	require.NoError(t, store.Open(), "a v1 database must open cleanly")
	defer store.Close()

	// Reconciliation creates tables the v1 schema never had, without
	// touching the migration-owned join table.
	require.True(t, store.DB.Migrator().HasTable(&Scan{}))
	require.True(t, store.DB.Migrator().HasTable(&ScanCandidate{}))

	id, err := store.SaveScan(context.Background(),
		&Scan{Timestamp: 1000, RecognitionType: "parts"},
		[]ScanCandidate{{ItemID: "3001", Rank: 0, Score: 0.9}})
	require.NoError(t, err)
	assert.NotZero(t, id)

	var rows []PartBinAssignment
	require.NoError(t, store.DB.Order("part_id ASC").Find(&rows).Error)
	assert.Len(t, rows, 2, "backfilled assignments survive reconciliation")
}

func TestMigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	openRawV1(t, path)

	settings := &conf.Settings{}
	settings.Storage.SQLite.Path = path

	for range 2 {
		store := New(settings).(*SQLiteStore)
		require.NoError(t, store.Open())

		// Re-applying the step directly must not duplicate rows.
		require.NoError(t, store.DB.Transaction(migrateAssignmentJoinTable))

		var count int64
		require.NoError(t, store.DB.Model(&PartBinAssignment{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
		require.NoError(t, store.Close())
	}
}

func TestOpenRefusesNewerSchema(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.DB.Exec(`UPDATE schema_info SET version = 99`).Error)
	path := store.Settings.Storage.SQLite.Path
	require.NoError(t, store.Close())

	settings := &conf.Settings{}
	settings.Storage.SQLite.Path = path
	reopened := New(settings).(*SQLiteStore)
	err := reopened.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaAhead)
}

func TestReplaceAssignmentsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	binA := mustCreateBin(t, store, "zulu")
	binB := mustCreateBin(t, store, "Alpha")
	mustUpsertPart(t, store, "3001", "Brick 2x4")

	require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{binA.ID, binB.ID}, 500))

	bins, err := store.BinsForPart(ctx, "3001")
	require.NoError(t, err)
	require.Len(t, bins, 2)
	assert.Equal(t, "Alpha", bins[0].Label, "ordered case-insensitively by label")
	assert.Equal(t, "zulu", bins[1].Label)

	part, err := store.GetPart(ctx, "3001")
	require.NoError(t, err)
	require.NotNil(t, part.BinLocationID)
	assert.Equal(t, binA.ID, *part.BinLocationID, "legacy cache mirrors the first given bin")
	assert.Equal(t, int64(500), part.UpdatedAt)
}

func TestReplaceAssignmentsCollapsesDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bin := mustCreateBin(t, store, "Drawer A")
	mustUpsertPart(t, store, "3001", "Brick 2x4")

	require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{bin.ID, bin.ID, bin.ID}, 500))

	var count int64
	require.NoError(t, store.DB.Model(&PartBinAssignment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestReplaceAssignmentsEmptyClearsLegacyCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bin := mustCreateBin(t, store, "Drawer A")
	mustUpsertPart(t, store, "3001", "Brick 2x4")
	require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{bin.ID}, 500))
	require.NoError(t, store.ReplaceAssignments(ctx, "3001", nil, 600))

	bins, err := store.BinsForPart(ctx, "3001")
	require.NoError(t, err)
	assert.Empty(t, bins)

	part, err := store.GetPart(ctx, "3001")
	require.NoError(t, err)
	assert.Nil(t, part.BinLocationID)
}

func TestReplaceAssignmentsUnknownPart(t *testing.T) {
	store := newTestStore(t)
	err := store.ReplaceAssignments(context.Background(), "missing", nil, 500)
	assert.ErrorIs(t, err, ErrPartNotFound)
}

func TestDeleteBinCascadesAssignments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bin := mustCreateBin(t, store, "Drawer A")
	keep := mustCreateBin(t, store, "Drawer B")
	mustUpsertPart(t, store, "3001", "Brick 2x4")
	require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{bin.ID, keep.ID}, 500))

	require.NoError(t, store.DeleteBin(ctx, bin.ID))

	bins, err := store.BinsForPart(ctx, "3001")
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.Equal(t, keep.ID, bins[0].ID)

	// The part itself survives a bin delete at this layer.
	part, err := store.GetPart(ctx, "3001")
	require.NoError(t, err)
	require.NotNil(t, part)
}

func TestDeletePartCascadesAssignments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bin := mustCreateBin(t, store, "Drawer A")
	mustUpsertPart(t, store, "3001", "Brick 2x4")
	require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{bin.ID}, 500))

	require.NoError(t, store.DeletePart(ctx, "3001"))

	var count int64
	require.NoError(t, store.DB.Model(&PartBinAssignment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMemoryStoreEnforcesForeignKeys(t *testing.T) {
	settings := &conf.Settings{}
	settings.Storage.SQLite.Path = ":memory:"

	store, ok := New(settings).(*SQLiteStore)
	require.True(t, ok)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	bin := mustCreateBin(t, store, "Drawer A")
	mustUpsertPart(t, store, "3001", "Brick 2x4")
	require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{bin.ID}, 500))

	require.NoError(t, store.DeleteBin(ctx, bin.ID))

	var count int64
	require.NoError(t, store.DB.Model(&PartBinAssignment{}).Count(&count).Error)
	assert.Zero(t, count, "bin delete must cascade to assignments on a memory store")

	bins, err := store.BinsForPart(ctx, "3001")
	require.NoError(t, err)
	assert.Empty(t, bins)
}

func TestCountDistinctParts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	binA := mustCreateBin(t, store, "Drawer A")
	binB := mustCreateBin(t, store, "Drawer B")
	mustUpsertPart(t, store, "3001", "Brick 2x4")
	mustUpsertPart(t, store, "3002", "Brick 2x3")

	// 3001 lives in both bins, 3002 only in A.
	require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{binA.ID, binB.ID}, 500))
	require.NoError(t, store.ReplaceAssignments(ctx, "3002", []int64{binA.ID}, 500))

	countA, err := store.CountDistinctParts(ctx, binA.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), countA)

	countB, err := store.CountDistinctParts(ctx, binB.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countB)
}

func TestBinActivities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	active := mustCreateBin(t, store, "Drawer A")
	empty := mustCreateBin(t, store, "Drawer B")
	mustUpsertPart(t, store, "3001", "Brick 2x4")
	mustUpsertPart(t, store, "3002", "Brick 2x3")
	require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{active.ID}, 500))
	require.NoError(t, store.ReplaceAssignments(ctx, "3002", []int64{active.ID}, 700))

	activities, err := store.BinActivities(ctx)
	require.NoError(t, err)

	byBin := make(map[int64]int64, len(activities))
	for _, a := range activities {
		byBin[a.BinLocationID] = a.LatestActivity
	}
	assert.Equal(t, int64(700), byBin[active.ID], "latest part update wins")
	assert.Equal(t, int64(0), byBin[empty.ID], "empty bin reports zero activity")
}

func TestUpsertPartPreservesPlacement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bin := mustCreateBin(t, store, "Drawer A")
	first := &Part{ID: "3001", Name: "Brick 2x4", Type: "part", CreatedAt: 100, UpdatedAt: 100}
	require.NoError(t, store.UpsertPart(ctx, first))
	require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{bin.ID}, 200))

	// A re-scan refreshes metadata but never the placement or created_at.
	again := &Part{
		ID: "3001", Name: "Brick 2x4 (red)", Type: "part",
		Category: ptr("Bricks"), CreatedAt: 900, UpdatedAt: 900,
	}
	require.NoError(t, store.UpsertPart(ctx, again))

	part, err := store.GetPart(ctx, "3001")
	require.NoError(t, err)
	assert.Equal(t, "Brick 2x4 (red)", part.Name)
	require.NotNil(t, part.Category)
	assert.Equal(t, "Bricks", *part.Category)
	assert.Equal(t, int64(100), part.CreatedAt)
	require.NotNil(t, part.BinLocationID)
	assert.Equal(t, bin.ID, *part.BinLocationID)
}

func TestGetMissingRowsReturnNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bin, err := store.GetBin(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, bin)

	part, err := store.GetPart(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, part)

	scan, err := store.GetScan(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, scan)
}

func TestSaveScanStoresCandidatesRanked(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustUpsertPart(t, store, "3001", "Brick 2x4")
	mustUpsertPart(t, store, "3002", "Brick 2x3")

	scan := &Scan{Timestamp: 1000, RecognitionType: "parts", TopItemID: ptr("3001")}
	id, err := store.SaveScan(ctx, scan, []ScanCandidate{
		{ItemID: "3002", Rank: 1, Score: 0.41},
		{ItemID: "3001", Rank: 0, Score: 0.97},
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := store.GetScan(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "3001", got.Candidates[0].ItemID, "candidates come back rank-ordered")
	assert.InDelta(t, 0.97, got.Candidates[0].Score, 1e-9)
}

func TestRecentScansNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, ts := range []int64{100, 300, 200} {
		_, err := store.SaveScan(ctx, &Scan{Timestamp: ts, RecognitionType: "parts"}, nil)
		require.NoError(t, err)
	}

	scans, err := store.RecentScans(ctx, 2)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, int64(300), scans[0].Timestamp)
	assert.Equal(t, int64(200), scans[1].Timestamp)
}

func TestSubscribeSignalsOnWatchedTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sub := store.Subscribe(TableAssignments)
	defer sub.Close()

	mustUpsertPart(t, store, "3001", "Brick 2x4")
	bin := mustCreateBin(t, store, "Drawer A")

	select {
	case <-sub.Signal():
		t.Fatal("unwatched tables must not signal")
	default:
	}

	require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{bin.ID}, 500))

	select {
	case <-sub.Signal():
	case <-time.After(time.Second):
		t.Fatal("expected a signal after an assignment write")
	}
}

func TestSubscribeCoalescesSignals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustUpsertPart(t, store, "3001", "Brick 2x4")
	bin := mustCreateBin(t, store, "Drawer A")

	sub := store.Subscribe(TableAssignments)
	defer sub.Close()

	for range 5 {
		require.NoError(t, store.ReplaceAssignments(ctx, "3001", []int64{bin.ID}, 500))
	}

	<-sub.Signal()
	select {
	case <-sub.Signal():
		t.Fatal("signals must coalesce into a single pending notification")
	default:
	}
}

func TestLiveQueryDeliversInitialAndUpdatedResults(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan []Bin)
	go LiveQuery(ctx, store, store.log, out, func(ctx context.Context) ([]Bin, error) {
		return store.GetAllBins(ctx)
	}, TableBins)

	select {
	case bins := <-out:
		assert.Empty(t, bins, "initial result reflects the empty table")
	case <-time.After(time.Second):
		t.Fatal("expected an initial result")
	}

	mustCreateBin(t, store, "Drawer A")

	select {
	case bins := <-out:
		require.Len(t, bins, 1)
		assert.Equal(t, "Drawer A", bins[0].Label)
	case <-time.After(time.Second):
		t.Fatal("expected an updated result after the insert")
	}
}
