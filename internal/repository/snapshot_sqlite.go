package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = dialect{
	name: "sqlite",
	createTable: []string{`
	CREATE TABLE IF NOT EXISTS watchlist_entries (
		item_id INTEGER PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		threshold_price INTEGER NOT NULL DEFAULT 0,
		last_fetched_price INTEGER NOT NULL DEFAULT 0,
		quality TEXT NOT NULL DEFAULT 'any',
		retainer BOOLEAN NOT NULL DEFAULT 0,
		disable_fetching BOOLEAN NOT NULL DEFAULT 0,
		changed BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_watchlist_position ON watchlist_entries(position);
	CREATE TABLE IF NOT EXISTS notifier_settings (
		id INTEGER PRIMARY KEY,
		interval_minutes INTEGER NOT NULL,
		scheduler_enabled BOOLEAN NOT NULL,
		ignore_tax BOOLEAN NOT NULL,
		same_quality_only BOOLEAN NOT NULL,
		spam_limit INTEGER NOT NULL
	);`},
}

// SQLiteSnapshotRepository stores the snapshot in a local SQLite file.
type SQLiteSnapshotRepository struct {
	*sqlSnapshotRepository
}

// NewSQLiteSnapshotRepository opens (or creates) the database at dbPath,
// e.g. "./data/watchlist.db".
func NewSQLiteSnapshotRepository(dbPath string, logger *slog.Logger) (*SQLiteSnapshotRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	repo, err := newSQLSnapshotRepository(db, sqliteDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("snapshot repository initialized", slog.String("backend", "sqlite"), slog.String("path", dbPath))
	return &SQLiteSnapshotRepository{repo}, nil
}
