package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricenotifier/internal/model"
	"pricenotifier/internal/repository"
	"pricenotifier/internal/watchlist"
)

type memoryRepo struct {
	mu    sync.Mutex
	snap  *model.Snapshot
	saves int
	err   error
}

func (r *memoryRepo) Load(context.Context) (*model.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.snap == nil {
		return &model.Snapshot{}, nil
	}
	return r.snap, nil
}

func (r *memoryRepo) Save(_ context.Context, snap *model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.snap = snap
	r.saves++
	return nil
}

func (r *memoryRepo) Close() error { return nil }

func (r *memoryRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func TestPersister_SaveAndRestore(t *testing.T) {
	repo, err := repository.NewFileSnapshotRepository(filepath.Join(t.TempDir(), "watchlist.yaml"), newTestLogger())
	require.NoError(t, err)

	store := seedStore(t, 3, 250)
	require.NoError(t, store.SetQualityRequirement(2, model.QualityHighOnly))
	store.RecordPrice(3, 99)
	settings := NewSettingsStore(DefaultSettings())
	settings.update(func(s *model.Settings) { s.SpamLimit = 8 })

	p := NewPersister(repo, store, settings, newTestLogger())
	require.NoError(t, p.Save(context.Background()))
	assert.False(t, p.LastSave().IsZero())

	restoredStore := watchlist.NewStore()
	restoredSettings := NewSettingsStore(DefaultSettings())
	n, err := NewPersister(repo, restoredStore, restoredSettings, newTestLogger()).Restore(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, store.Snapshot(), restoredStore.Snapshot())
	assert.Equal(t, 8, restoredSettings.Get().SpamLimit)
}

func TestPersister_RestoreEmptyKeepsDefaults(t *testing.T) {
	settings := NewSettingsStore(DefaultSettings())
	n, err := NewPersister(&memoryRepo{}, watchlist.NewStore(), settings, newTestLogger()).Restore(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, DefaultSettings(), settings.Get())
}

func TestPersister_RestoreClampsInterval(t *testing.T) {
	repo := &memoryRepo{snap: &model.Snapshot{Settings: &model.Settings{IntervalMinutes: 1, SpamLimit: -3}}}
	settings := NewSettingsStore(DefaultSettings())

	_, err := NewPersister(repo, watchlist.NewStore(), settings, newTestLogger()).Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MinIntervalMinutes, settings.Get().IntervalMinutes)
	assert.Zero(t, settings.Get().SpamLimit)

	repo.snap.Settings.IntervalMinutes = 500
	_, err = NewPersister(repo, watchlist.NewStore(), settings, newTestLogger()).Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MaxIntervalMinutes, settings.Get().IntervalMinutes)
}

func TestPersister_LoadError(t *testing.T) {
	repo := &memoryRepo{err: errors.New("disk on fire")}
	_, err := NewPersister(repo, watchlist.NewStore(), NewSettingsStore(DefaultSettings()), newTestLogger()).Restore(context.Background())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestPersister_Autosave(t *testing.T) {
	repo := &memoryRepo{}
	p := NewPersister(repo, seedStore(t, 2, 0), NewSettingsStore(DefaultSettings()), newTestLogger())

	p.StartAutosave(10 * time.Millisecond)
	p.StartAutosave(10 * time.Millisecond)
	require.Eventually(t, func() bool { return repo.saveCount() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop(context.Background()))
	saves := repo.saveCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, saves, repo.saveCount())
	assert.Len(t, repo.snap.Entries, 2)
}
