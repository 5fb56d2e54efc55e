package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pricenotifier/internal/model"
	"pricenotifier/internal/repository"
	"pricenotifier/internal/watchlist"
)

// Persister copies the watchlist and settings to and from a repository.
type Persister struct {
	repo     repository.SnapshotRepository
	store    *watchlist.Store
	settings *SettingsStore
	logger   *slog.Logger

	mu       sync.Mutex
	stopCh   chan struct{}
	doneCh   chan struct{}
	lastSave time.Time
}

// NewPersister creates a persister.
func NewPersister(repo repository.SnapshotRepository, store *watchlist.Store, settings *SettingsStore, logger *slog.Logger) *Persister {
	return &Persister{
		repo:     repo,
		store:    store,
		settings: settings,
		logger:   logger.With(slog.String("component", "persister")),
	}
}

// Restore loads the saved snapshot into the store. Stored settings outside
// the accepted interval bounds are clamped.
func (p *Persister) Restore(ctx context.Context) (int, error) {
	snap, err := p.repo.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load snapshot: %w", err)
	}

	entries := make([]*model.WatchlistEntry, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		entries = append(entries, e.ToEntry())
	}
	p.store.Replace(entries)

	if snap.Settings != nil {
		st := *snap.Settings
		st.IntervalMinutes = clampInterval(st.IntervalMinutes)
		if st.SpamLimit < 0 {
			st.SpamLimit = 0
		}
		p.settings.Set(st)
	}

	p.logger.Info("watchlist restored", slog.Int("entries", p.store.Len()))
	return p.store.Len(), nil
}

// Save writes the current watchlist and settings.
func (p *Persister) Save(ctx context.Context) error {
	entries := p.store.Snapshot()
	snap := &model.Snapshot{
		Entries: make([]model.SnapshotEntry, 0, len(entries)),
	}
	for _, e := range entries {
		snap.Entries = append(snap.Entries, model.SnapshotEntryFrom(e))
	}
	st := p.settings.Get()
	snap.Settings = &st

	if err := p.repo.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	p.mu.Lock()
	p.lastSave = time.Now()
	p.mu.Unlock()
	return nil
}

// LastSave returns when the last successful save finished.
func (p *Persister) LastSave() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSave
}

// StartAutosave saves every interval until Stop is called.
func (p *Persister) StartAutosave(interval time.Duration) {
	if interval <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopCh != nil {
		return
	}
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.autosave(interval, p.stopCh, p.doneCh)
}

func (p *Persister) autosave(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.Save(ctx); err != nil {
				p.logger.Error("autosave failed", slog.String("error", err.Error()))
			}
			cancel()
		case <-stop:
			return
		}
	}
}

// Stop ends autosaving and writes a final snapshot.
func (p *Persister) Stop(ctx context.Context) error {
	p.mu.Lock()
	stop, done := p.stopCh, p.doneCh
	p.stopCh, p.doneCh = nil, nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return p.Save(ctx)
}

func clampInterval(minutes int) int {
	return max(MinIntervalMinutes, min(MaxIntervalMinutes, minutes))
}
