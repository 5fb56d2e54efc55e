package repository

import (
	"context"

	"pricenotifier/internal/model"
)

// SnapshotRepository persists the watchlist and settings between runs.
type SnapshotRepository interface {
	// Load returns the last saved snapshot. A repository that was never
	// written returns an empty snapshot with nil settings.
	Load(ctx context.Context) (*model.Snapshot, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *model.Snapshot) error

	// Close closes the repository connection.
	Close() error
}
