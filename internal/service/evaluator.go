package service

import "pricenotifier/internal/model"

// Evaluation is the outcome of scoring one item's listings.
type Evaluation struct {
	Listing   model.RawListing
	Changed   bool
	Qualifies bool
}

// Evaluate selects the cheapest acceptable listing for entry and records its
// price on entry. It reports false when no listing remains, in which case
// entry is untouched.
//
// Listings with a negative price are ignored. With sameQualityOnly set, listings whose quality the entry does not accept
// are discarded first. Ties keep the first listing in input order. The price
// is recorded whether or not it beats the threshold; it qualifies when the
// threshold is zero or the price is strictly below it.
func Evaluate(listings []model.RawListing, entry *model.WatchlistEntry, sameQualityOnly bool) (Evaluation, bool) {
	var (
		best  model.RawListing
		found bool
	)
	for _, l := range listings {
		if l.PricePerUnit < 0 {
			continue
		}
		if sameQualityOnly && !entry.QualityRequirement.Accepts(l.HighQuality) {
			continue
		}
		if !found || l.PricePerUnit < best.PricePerUnit {
			best = l
			found = true
		}
	}
	if !found {
		return Evaluation{}, false
	}

	return Evaluation{
		Listing:   best,
		Changed:   entry.RecordPrice(best.PricePerUnit),
		Qualifies: entry.ThresholdPrice == 0 || best.PricePerUnit < entry.ThresholdPrice,
	}, true
}
