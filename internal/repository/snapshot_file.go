package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"pricenotifier/internal/model"
)

// FileSnapshotRepository stores the snapshot as a YAML document.
type FileSnapshotRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileSnapshotRepository uses the file at path, creating its directory.
func NewFileSnapshotRepository(path string, logger *slog.Logger) (*FileSnapshotRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	logger.Info("snapshot repository initialized", slog.String("backend", "file"), slog.String("path", path))
	return &FileSnapshotRepository{path: path}, nil
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (r *FileSnapshotRepository) Load(_ context.Context) (*model.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &model.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", r.path, err)
	}
	return &snap, nil
}

// Save writes to a temporary file and renames it over the old one.
func (r *FileSnapshotRepository) Save(_ context.Context, snap *model.Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".snapshot-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Close is a no-op.
func (r *FileSnapshotRepository) Close() error { return nil }
