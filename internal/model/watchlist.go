package model

import "fmt"

// QualityRequirement restricts which listing quality an entry accepts.
type QualityRequirement string

const (
	QualityAny        QualityRequirement = "any"
	QualityHighOnly   QualityRequirement = "hq"
	QualityNormalOnly QualityRequirement = "nq"
)

// ParseQualityRequirement converts user input into a QualityRequirement.
func ParseQualityRequirement(s string) (QualityRequirement, error) {
	switch QualityRequirement(s) {
	case QualityAny, "":
		return QualityAny, nil
	case QualityHighOnly:
		return QualityHighOnly, nil
	case QualityNormalOnly:
		return QualityNormalOnly, nil
	}
	return "", fmt.Errorf("unknown quality requirement %q", s)
}

// Accepts reports whether a listing of the given quality satisfies the requirement.
func (q QualityRequirement) Accepts(highQuality bool) bool {
	switch q {
	case QualityHighOnly:
		return highQuality
	case QualityNormalOnly:
		return !highQuality
	default:
		return true
	}
}

// Flag names an independent per-entry switch.
type Flag string

const (
	// FlagRetainer marks entries discovered from the user's own retainer listings.
	FlagRetainer Flag = "retainer"
	// FlagDisableFetching excludes the entry from scheduled cycles.
	FlagDisableFetching Flag = "disable_fetching"
)

// ParseFlag converts user input into a Flag.
func ParseFlag(s string) (Flag, error) {
	switch Flag(s) {
	case FlagRetainer, FlagDisableFetching:
		return Flag(s), nil
	}
	return "", fmt.Errorf("unknown flag %q", s)
}

// SourceFlags holds the per-entry switches.
type SourceFlags struct {
	Retainer        bool `json:"retainer" yaml:"retainer"`
	DisableFetching bool `json:"disable_fetching" yaml:"disable_fetching"`
}

// WatchlistEntry is one tracked item and its monitoring state.
type WatchlistEntry struct {
	ItemID             uint32             `json:"item_id"`
	DisplayName        string             `json:"name"`
	ThresholdPrice     int64              `json:"threshold_price"`
	LastFetchedPrice   int64              `json:"last_fetched_price"`
	QualityRequirement QualityRequirement `json:"quality"`
	Flags              SourceFlags        `json:"flags"`
	ChangedSinceAck    bool               `json:"changed"`
}

// NewWatchlistEntry creates an entry with no threshold that accepts any quality.
func NewWatchlistEntry(itemID uint32, name string) *WatchlistEntry {
	return &WatchlistEntry{
		ItemID:             itemID,
		DisplayName:        name,
		QualityRequirement: QualityAny,
	}
}

// Clone returns an independent copy of the entry.
func (e *WatchlistEntry) Clone() *WatchlistEntry {
	c := *e
	return &c
}

// RecordPrice stores a newly observed price. The changed marker is raised only
// when the price differs from the last one seen.
func (e *WatchlistEntry) RecordPrice(price int64) bool {
	if price == e.LastFetchedPrice {
		return false
	}
	e.LastFetchedPrice = price
	e.ChangedSinceAck = true
	return true
}
