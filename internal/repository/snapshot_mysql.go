package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQL needs one statement per Exec unless multiStatements is set.
var mysqlDialect = dialect{
	name: "mysql",
	createTable: []string{
		`CREATE TABLE IF NOT EXISTS watchlist_entries (
			item_id INT UNSIGNED PRIMARY KEY,
			position INT NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			threshold_price BIGINT NOT NULL DEFAULT 0,
			last_fetched_price BIGINT NOT NULL DEFAULT 0,
			quality VARCHAR(8) NOT NULL DEFAULT 'any',
			retainer TINYINT(1) NOT NULL DEFAULT 0,
			disable_fetching TINYINT(1) NOT NULL DEFAULT 0,
			changed TINYINT(1) NOT NULL DEFAULT 0,
			INDEX idx_watchlist_position (position)
		)`,
		`CREATE TABLE IF NOT EXISTS notifier_settings (
			id INT PRIMARY KEY,
			interval_minutes INT NOT NULL,
			scheduler_enabled TINYINT(1) NOT NULL,
			ignore_tax TINYINT(1) NOT NULL,
			same_quality_only TINYINT(1) NOT NULL,
			spam_limit INT NOT NULL
		)`,
	},
}

// MySQLSnapshotRepository stores the snapshot in MySQL.
type MySQLSnapshotRepository struct {
	*sqlSnapshotRepository
}

// MySQLConfig holds MySQL connection parameters.
type MySQLConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// DSN builds the driver connection string.
func (c MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Host + ":" + c.Port
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// NewMySQLSnapshotRepository connects to the configured database.
func NewMySQLSnapshotRepository(c MySQLConfig, logger *slog.Logger) (*MySQLSnapshotRepository, error) {
	db, err := sql.Open("mysql", c.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	repo, err := newSQLSnapshotRepository(db, mysqlDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("snapshot repository initialized", slog.String("backend", "mysql"), slog.String("host", c.Host))
	return &MySQLSnapshotRepository{repo}, nil
}
