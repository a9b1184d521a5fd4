// migrations.go implements the versioned schema migration engine.
//
// Migrations are an explicit ordered list injected into the store rather
// than a process-global registry. Each step runs in a single transaction:
// either the whole step applies and the recorded version advances, or the
// database stays at the previous version. Data-destroying recovery is
// reserved for debug builds; production refuses to start on a migration
// failure rather than risk user data.
package datastore

import (
	"fmt"
	"log/slog"

	"github.com/frootsnoops/brickbin/internal/errors"
	"gorm.io/gorm"
)

// Migration is one versioned, atomic schema transformation. Apply runs
// inside a transaction and must be written so that re-running it against
// an already-migrated database is harmless (IF NOT EXISTS creation,
// INSERT OR IGNORE backfill).
type Migration struct {
	Version     int
	Description string
	Apply       func(tx *gorm.DB) error
}

// Migrations returns the ordered migration chain, lowest version first.
// Version 1 is the initial schema; steps start at version 2.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     2,
			Description: "introduce many-to-many part/bin assignments",
			Apply:       migrateAssignmentJoinTable,
		},
	}
}

// migrateAssignmentJoinTable creates the part_bin_assignments join table
// and backfills it from the legacy parts.bin_location_id column. The
// legacy column is left in place; it keeps serving as the derived
// first-assignment cache until a future migration drops it.
func migrateAssignmentJoinTable(tx *gorm.DB) error {
	if err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS part_bin_assignments (
			part_id TEXT NOT NULL,
			bin_location_id INTEGER NOT NULL,
			assigned_at INTEGER NOT NULL,
			PRIMARY KEY(part_id, bin_location_id),
			FOREIGN KEY(part_id) REFERENCES parts(id) ON DELETE CASCADE,
			FOREIGN KEY(bin_location_id) REFERENCES bin_locations(id) ON DELETE CASCADE
		)`).Error; err != nil {
		return fmt.Errorf("creating part_bin_assignments: %w", err)
	}

	if err := tx.Exec(
		`CREATE INDEX IF NOT EXISTS index_part_bin_assignments_part_id ON part_bin_assignments(part_id)`,
	).Error; err != nil {
		return fmt.Errorf("creating part_id index: %w", err)
	}
	if err := tx.Exec(
		`CREATE INDEX IF NOT EXISTS index_part_bin_assignments_bin_location_id ON part_bin_assignments(bin_location_id)`,
	).Error; err != nil {
		return fmt.Errorf("creating bin_location_id index: %w", err)
	}

	// Backfill existing single-bin values into the join table. OR IGNORE
	// keeps the step idempotent when re-applied.
	if err := tx.Exec(`
		INSERT OR IGNORE INTO part_bin_assignments (part_id, bin_location_id, assigned_at)
		SELECT id, bin_location_id, updated_at
		FROM parts
		WHERE bin_location_id IS NOT NULL`).Error; err != nil {
		return fmt.Errorf("backfilling assignments: %w", err)
	}

	return nil
}

// allEntities lists every persisted entity, used for fresh-database
// creation and for debug-build destructive recovery.
func allEntities() []any {
	return []any{
		&Bin{},
		&Part{},
		&PartBinAssignment{},
		&Scan{},
		&ScanCandidate{},
		&SchemaInfo{},
	}
}

// latestVersion returns the highest version in the chain, or 1 for an
// empty chain (the initial schema).
func latestVersion(migrations []Migration) int {
	latest := 1
	for i := range migrations {
		if migrations[i].Version > latest {
			latest = migrations[i].Version
		}
	}
	return latest
}

// performMigrations brings the database schema to the latest version.
func performMigrations(db *gorm.DB, migrations []Migration, debug bool, log *slog.Logger) error {
	latest := latestVersion(migrations)

	current, err := currentVersion(db, latest)
	if err != nil {
		return err
	}

	if current > latest {
		return errors.New(fmt.Errorf("%w: on disk %d, supported %d", ErrSchemaAhead, current, latest)).
			Component("datastore").
			Category(errors.CategoryMigration).
			Context("disk_version", current).
			Context("binary_version", latest).
			Build()
	}

	for i := range migrations {
		m := &migrations[i]
		if m.Version <= current {
			continue
		}

		log.Info("applying database migration",
			"from_version", current,
			"to_version", m.Version,
			"description", m.Description)

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Apply(tx); err != nil {
				return err
			}
			return setVersion(tx, m.Version)
		})
		if err != nil {
			if debug {
				log.Warn("migration failed, debug build recreating database from scratch",
					"version", m.Version, "error", err)
				return destructiveRecreate(db, latest)
			}
			return errors.New(fmt.Errorf("%w: step %d (%s): %w", ErrMigrationFailed, m.Version, m.Description, err)).
				Component("datastore").
				Category(errors.CategoryMigration).
				Context("version", m.Version).
				Build()
		}
		current = m.Version
	}

	// Additive reconciliation: databases that predate newer entities
	// (scan history, for one) get their tables created here. Existing
	// tables are left untouched, their shape is owned by the versioned
	// migration steps.
	for _, entity := range allEntities() {
		if db.Migrator().HasTable(entity) {
			continue
		}
		if err := db.AutoMigrate(entity); err != nil {
			return fmt.Errorf("reconciling schema: %w", err)
		}
	}

	return nil
}

// currentVersion determines the schema version on disk. A database with
// no tables at all is created fresh at the latest version; a database
// that predates version tracking is treated as version 1.
func currentVersion(db *gorm.DB, latest int) (int, error) {
	if !db.Migrator().HasTable(&SchemaInfo{}) {
		if !db.Migrator().HasTable(&Part{}) {
			// Fresh database, create the full schema directly.
			if err := db.AutoMigrate(allEntities()...); err != nil {
				return 0, fmt.Errorf("creating schema: %w", err)
			}
			if err := setVersion(db, latest); err != nil {
				return 0, err
			}
			return latest, nil
		}

		// Existing data without version tracking: first tracked version.
		if err := db.AutoMigrate(&SchemaInfo{}); err != nil {
			return 0, fmt.Errorf("creating schema_info: %w", err)
		}
		if err := setVersion(db, 1); err != nil {
			return 0, err
		}
		return 1, nil
	}

	var info SchemaInfo
	if err := db.First(&info).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := setVersion(db, 1); err != nil {
				return 0, err
			}
			return 1, nil
		}
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return info.Version, nil
}

// setVersion records the schema version in the singleton schema_info row.
func setVersion(db *gorm.DB, version int) error {
	if err := db.Exec(
		`INSERT INTO schema_info (id, version) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version`, version,
	).Error; err != nil {
		return fmt.Errorf("recording schema version %d: %w", version, err)
	}
	return nil
}

// destructiveRecreate drops every known table and rebuilds the schema at
// the latest version. Debug builds only.
func destructiveRecreate(db *gorm.DB, latest int) error {
	for _, entity := range allEntities() {
		if err := db.Migrator().DropTable(entity); err != nil {
			return fmt.Errorf("dropping table for recreate: %w", err)
		}
	}
	if err := db.AutoMigrate(allEntities()...); err != nil {
		return fmt.Errorf("recreating schema: %w", err)
	}
	return setVersion(db, latest)
}
