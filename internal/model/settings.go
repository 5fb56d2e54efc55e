package model

// Settings are the user-adjustable scalar options persisted with the watchlist.
type Settings struct {
	IntervalMinutes  int  `json:"interval_minutes" yaml:"interval_minutes" validate:"gte=5,lte=120"`
	SchedulerEnabled bool `json:"scheduler_enabled" yaml:"scheduler_enabled"`
	IgnoreTax        bool `json:"ignore_tax" yaml:"ignore_tax"`
	SameQualityOnly  bool `json:"same_quality_only" yaml:"same_quality_only"`
	SpamLimit        int  `json:"spam_limit" yaml:"spam_limit" validate:"gte=0"`
}

// Snapshot is the persisted form of the watchlist and its settings.
type Snapshot struct {
	Entries  []SnapshotEntry `json:"entries" yaml:"entries"`
	Settings *Settings       `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// SnapshotEntry is one persisted watchlist entry.
type SnapshotEntry struct {
	ItemID           uint32             `yaml:"item_id"`
	Name             string             `yaml:"name"`
	ThresholdPrice   int64              `yaml:"threshold_price"`
	LastFetchedPrice int64              `yaml:"last_fetched_price"`
	Quality          QualityRequirement `yaml:"quality"`
	Flags            SourceFlags        `yaml:"flags"`
	Changed          bool               `yaml:"changed"`
}

// ToEntry converts the persisted form back into a watchlist entry.
func (s SnapshotEntry) ToEntry() *WatchlistEntry {
	q := s.Quality
	if q == "" {
		q = QualityAny
	}
	return &WatchlistEntry{
		ItemID:             s.ItemID,
		DisplayName:        s.Name,
		ThresholdPrice:     s.ThresholdPrice,
		LastFetchedPrice:   s.LastFetchedPrice,
		QualityRequirement: q,
		Flags:              s.Flags,
		ChangedSinceAck:    s.Changed,
	}
}

// SnapshotEntryFrom converts a watchlist entry into its persisted form.
func SnapshotEntryFrom(e *WatchlistEntry) SnapshotEntry {
	return SnapshotEntry{
		ItemID:           e.ItemID,
		Name:             e.DisplayName,
		ThresholdPrice:   e.ThresholdPrice,
		LastFetchedPrice: e.LastFetchedPrice,
		Quality:          e.QualityRequirement,
		Flags:            e.Flags,
		Changed:          e.ChangedSinceAck,
	}
}
