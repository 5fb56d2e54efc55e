// Package watchlist holds the in-memory set of tracked items.
package watchlist

import (
	"fmt"
	"slices"
	"sync"

	"pricenotifier/internal/model"
)

// Error is a watchlist usage error.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrDuplicateEntry is returned when adding an item that is already tracked.
	ErrDuplicateEntry Error = "duplicate entry"
	// ErrNotFound is returned when mutating an item that is not tracked.
	ErrNotFound Error = "entry not found"
	// ErrInvalidPrice is returned for negative prices.
	ErrInvalidPrice Error = "price must not be negative"
)

// Store is the single source of truth for tracked items. Every method is
// individually atomic; callers never hold the lock across a fetch cycle.
type Store struct {
	mu      sync.RWMutex
	entries map[uint32]*model.WatchlistEntry
	order   []uint32
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[uint32]*model.WatchlistEntry)}
}

// Add inserts a new entry.
func (s *Store) Add(entry *model.WatchlistEntry) error {
	if entry.ThresholdPrice < 0 || entry.LastFetchedPrice < 0 {
		return ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ItemID]; exists {
		return fmt.Errorf("item %d: %w", entry.ItemID, ErrDuplicateEntry)
	}
	s.insert(entry.Clone())
	return nil
}

func (s *Store) insert(entry *model.WatchlistEntry) {
	if entry.QualityRequirement == "" {
		entry.QualityRequirement = model.QualityAny
	}
	s.entries[entry.ItemID] = entry
	s.order = append(s.order, entry.ItemID)
}

// Remove drops an entry. Removing an absent item is a no-op.
func (s *Store) Remove(itemID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[itemID]; !exists {
		return
	}
	delete(s.entries, itemID)
	if i := slices.Index(s.order, itemID); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[uint32]*model.WatchlistEntry)
	s.order = nil
}

// Replace swaps the whole content of the store, keeping the given order.
// Later duplicates of an item are ignored.
func (s *Store) Replace(entries []*model.WatchlistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[uint32]*model.WatchlistEntry, len(entries))
	s.order = make([]uint32, 0, len(entries))
	for _, e := range entries {
		if _, exists := s.entries[e.ItemID]; exists {
			continue
		}
		s.insert(e.Clone())
	}
}

// Get returns a copy of one entry.
func (s *Store) Get(itemID uint32) (*model.WatchlistEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[itemID]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Snapshot returns copies of all entries in insertion order. The result is
// not affected by later mutations.
func (s *Store) Snapshot() []*model.WatchlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.WatchlistEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].Clone())
	}
	return out
}

// Len returns the number of tracked items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SetThreshold changes the notification threshold of an entry. Zero means
// every price is reported.
func (s *Store) SetThreshold(itemID uint32, price int64) error {
	if price < 0 {
		return ErrInvalidPrice
	}
	return s.update(itemID, func(e *model.WatchlistEntry) {
		e.ThresholdPrice = price
	})
}

// SetQualityRequirement changes which listing quality an entry accepts.
func (s *Store) SetQualityRequirement(itemID uint32, q model.QualityRequirement) error {
	return s.update(itemID, func(e *model.WatchlistEntry) {
		e.QualityRequirement = q
	})
}

// ToggleFlag flips one flag and returns its new value.
func (s *Store) ToggleFlag(itemID uint32, flag model.Flag) (bool, error) {
	if _, err := model.ParseFlag(string(flag)); err != nil {
		return false, err
	}
	var value bool
	err := s.update(itemID, func(e *model.WatchlistEntry) {
		switch flag {
		case model.FlagRetainer:
			e.Flags.Retainer = !e.Flags.Retainer
			value = e.Flags.Retainer
		case model.FlagDisableFetching:
			e.Flags.DisableFetching = !e.Flags.DisableFetching
			value = e.Flags.DisableFetching
		}
	})
	return value, err
}

// Acknowledge clears the changed marker of an entry.
func (s *Store) Acknowledge(itemID uint32) error {
	return s.update(itemID, func(e *model.WatchlistEntry) {
		e.ChangedSinceAck = false
	})
}

// AcknowledgeAll clears the changed marker of every entry.
func (s *Store) AcknowledgeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		e.ChangedSinceAck = false
	}
}

// RecordPrice stores a fetched price on the live entry. Writes for items
// removed in the meantime are dropped. It reports whether the entry changed.
func (s *Store) RecordPrice(itemID uint32, price int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[itemID]
	if !ok {
		return false
	}
	return e.RecordPrice(price)
}

// ObserveRetainerListings merges the user's own sale listings into the
// watchlist. Unknown items are added with the sale price as threshold; items
// already flagged as retainer listings get their threshold refreshed.
func (s *Store) ObserveRetainerListings(listings []model.RetainerListing) (added, updated int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range listings {
		if l.Price < 0 {
			continue
		}
		e, ok := s.entries[l.ItemID]
		if !ok {
			entry := model.NewWatchlistEntry(l.ItemID, l.Name)
			entry.ThresholdPrice = l.Price
			entry.Flags.Retainer = true
			if l.HighQuality {
				entry.QualityRequirement = model.QualityHighOnly
			}
			s.insert(entry)
			added++
			continue
		}
		if e.Flags.Retainer && e.ThresholdPrice != l.Price {
			e.ThresholdPrice = l.Price
			updated++
		}
	}
	return added, updated
}

func (s *Store) update(itemID uint32, fn func(e *model.WatchlistEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[itemID]
	if !ok {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	fn(e)
	return nil
}
