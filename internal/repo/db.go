// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for the
// supported drivers (pure-Go SQLite, PostgreSQL, MySQL) and schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

// Options selects and configures the storage backend.
type Options struct {
	Driver  string // sqlite|postgres|mysql
	Path    string // sqlite file path
	DSN     string // postgres/mysql DSN
	Tracing bool   // register the OpenTelemetry GORM plugin
	Silent  bool   // silence the GORM logger
}

// Open connects to the configured backend, tunes the pool and optionally
// installs SQL tracing.
func Open(opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	cfg := &gorm.Config{}
	if opts.Silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	switch opts.Driver {
	case "", "sqlite":
		db, err = OpenSQLite(opts.Path, cfg)
	case "postgres":
		db, err = gorm.Open(postgres.Open(opts.DSN), cfg)
	case "mysql":
		db, err = gorm.Open(mysql.Open(opts.DSN), cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("db tracing: %w", err)
		}
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string, cfg *gorm.Config) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}
	if cfg == nil {
		cfg = &gorm.Config{}
	}

	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// activePromptIndex backs the single-active-version rule at the storage
// level. MySQL has no partial indexes; there the transactional activation
// path is the only guard.
const activePromptIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_prompt_versions_active ON prompt_versions (is_active) WHERE is_active`

// AutoMigrate creates or updates the schema for every model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.ContentItem{},
		&domain.Feedback{},
		&domain.AgentDecision{},
		&domain.PromptVersion{},
		&domain.LearningEvent{},
		&domain.Idempotency{},
	); err != nil {
		return err
	}
	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		return db.Exec(activePromptIndex).Error
	}
	return nil
}
