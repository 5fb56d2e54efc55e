package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"pricenotifier/internal/model"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	name        string
	numbered    bool // $1, $2 placeholders instead of ?
	createTable []string
}

// sqlSnapshotRepository stores snapshots in two tables: one row per entry
// and a single settings row.
type sqlSnapshotRepository struct {
	db      *sql.DB
	dialect dialect
}

func newSQLSnapshotRepository(db *sql.DB, d dialect) (*sqlSnapshotRepository, error) {
	for _, stmt := range d.createTable {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create %s tables: %w", d.name, err)
		}
	}
	return &sqlSnapshotRepository{db: db, dialect: d}, nil
}

// rebind rewrites ? placeholders for dialects that number them.
func (r *sqlSnapshotRepository) rebind(query string) string {
	if !r.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Load reads entries in their saved order.
func (r *sqlSnapshotRepository) Load(ctx context.Context) (*model.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, name, threshold_price, last_fetched_price, quality,
		       retainer, disable_fetching, changed
		FROM watchlist_entries
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	snap := &model.Snapshot{}
	for rows.Next() {
		var (
			e       model.SnapshotEntry
			quality string
		)
		if err := rows.Scan(
			&e.ItemID,
			&e.Name,
			&e.ThresholdPrice,
			&e.LastFetchedPrice,
			&quality,
			&e.Flags.Retainer,
			&e.Flags.DisableFetching,
			&e.Changed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Quality = model.QualityRequirement(quality)
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	var st model.Settings
	err = r.db.QueryRowContext(ctx, `
		SELECT interval_minutes, scheduler_enabled, ignore_tax, same_quality_only, spam_limit
		FROM notifier_settings
		WHERE id = 1`).Scan(
		&st.IntervalMinutes,
		&st.SchedulerEnabled,
		&st.IgnoreTax,
		&st.SameQualityOnly,
		&st.SpamLimit,
	)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("failed to get settings: %w", err)
	default:
		snap.Settings = &st
	}
	return snap, nil
}

// Save replaces every stored row in one transaction.
func (r *sqlSnapshotRepository) Save(ctx context.Context, snap *model.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist_entries`); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, r.rebind(`
		INSERT INTO watchlist_entries
			(item_id, position, name, threshold_price, last_fetched_price, quality,
			 retainer, disable_fetching, changed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, e := range snap.Entries {
		_, err := stmt.ExecContext(ctx,
			int64(e.ItemID), i, e.Name, e.ThresholdPrice, e.LastFetchedPrice, string(e.Quality),
			e.Flags.Retainer, e.Flags.DisableFetching, e.Changed,
		)
		if err != nil {
			return fmt.Errorf("failed to save item %d: %w", e.ItemID, err)
		}
	}

	if snap.Settings != nil {
		st := snap.Settings
		if _, err := tx.ExecContext(ctx, `DELETE FROM notifier_settings`); err != nil {
			return fmt.Errorf("failed to clear settings: %w", err)
		}
		_, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO notifier_settings
				(id, interval_minutes, scheduler_enabled, ignore_tax, same_quality_only, spam_limit)
			VALUES (1, ?, ?, ?, ?, ?)`),
			st.IntervalMinutes, st.SchedulerEnabled, st.IgnoreTax, st.SameQualityOnly, st.SpamLimit,
		)
		if err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *sqlSnapshotRepository) Close() error {
	return r.db.Close()
}
