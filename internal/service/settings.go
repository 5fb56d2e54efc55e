package service

import (
	"sync"

	"pricenotifier/internal/model"
)

const (
	// MinIntervalMinutes and MaxIntervalMinutes bound the scheduled period.
	MinIntervalMinutes = 5
	MaxIntervalMinutes = 120
)

// DefaultSettings returns the settings used when nothing was persisted.
func DefaultSettings() model.Settings {
	return model.Settings{
		IntervalMinutes:  30,
		SchedulerEnabled: true,
		IgnoreTax:        true,
		SameQualityOnly:  true,
		SpamLimit:        5,
	}
}

// SettingsStore guards the live settings.
type SettingsStore struct {
	mu       sync.RWMutex
	settings model.Settings
}

// NewSettingsStore creates a store holding initial.
func NewSettingsStore(initial model.Settings) *SettingsStore {
	return &SettingsStore{settings: initial}
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Set replaces the current settings.
func (s *SettingsStore) Set(v model.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = v
}

func (s *SettingsStore) update(fn func(*model.Settings)) model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.settings)
	return s.settings
}
