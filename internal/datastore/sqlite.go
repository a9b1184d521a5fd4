package datastore

import (
	"fmt"

	"github.com/frootsnoops/brickbin/internal/conf"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements Interface for SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
	// Migrations is the ordered migration chain applied on Open.
	// Injected so tests can exercise individual steps.
	Migrations []Migration
}

// Open sets up the SQLite database connection and brings the schema to
// the latest version. A failing migration leaves the database untouched
// and aborts startup unless Debug permits destructive recovery.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Storage.SQLite.Path
	if path == "" {
		return fmt.Errorf("sqlite database path is not configured")
	}

	var dsn string
	if path == ":memory:" {
		// A bare ":memory:" DSN gives every pooled connection its own
		// database; shared cache keeps them on one, and the pragmas
		// (foreign_keys above all, the cascades depend on it) still
		// apply.
		dsn = "file::memory:?cache=shared&_busy_timeout=5000&_foreign_keys=ON"
	} else {
		// WAL keeps readers unblocked during writes, foreign_keys enables
		// the cascade constraints the schema relies on.
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", path)
	}

	logLevel := logger.Silent
	if store.Settings.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if path == ":memory:" {
		// The shared in-memory database is dropped once its last
		// connection closes, so pin the pool to a single one.
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get underlying DB: %w", err)
		}
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetMaxOpenConns(1)
	}

	if err := performMigrations(db, store.Migrations, store.Settings.Debug, store.log); err != nil {
		return err
	}

	store.DB = db
	return nil
}

// Close closes the underlying database connection.
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}
	return sqlDB.Close()
}

// Compile-time check that SQLiteStore implements Interface.
var _ Interface = (*SQLiteStore)(nil)
