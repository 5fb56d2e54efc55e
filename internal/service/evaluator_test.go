package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricenotifier/internal/model"
)

func listing(price int64, hq bool) model.RawListing {
	return model.RawListing{PricePerUnit: price, HighQuality: hq, SellerName: "seller"}
}

func TestEvaluate_SelectsCheapestAndQualifies(t *testing.T) {
	entry := model.NewWatchlistEntry(1, "Potion")
	entry.ThresholdPrice = 500

	ev, ok := Evaluate([]model.RawListing{listing(600, false), listing(450, false)}, entry, false)
	require.True(t, ok)
	assert.Equal(t, int64(450), ev.Listing.PricePerUnit)
	assert.True(t, ev.Qualifies)
	assert.True(t, ev.Changed)
	assert.Equal(t, int64(450), entry.LastFetchedPrice)
	assert.True(t, entry.ChangedSinceAck)
}

func TestEvaluate_EmptyListings(t *testing.T) {
	entry := model.NewWatchlistEntry(2, "Ether")

	_, ok := Evaluate(nil, entry, false)
	assert.False(t, ok)
	assert.Equal(t, int64(0), entry.LastFetchedPrice)
	assert.False(t, entry.ChangedSinceAck)
}

func TestEvaluate_ZeroThresholdAlwaysQualifies(t *testing.T) {
	for _, price := range []int64{0, 1, 1_000_000} {
		entry := model.NewWatchlistEntry(1, "x")
		ev, ok := Evaluate([]model.RawListing{listing(price, false)}, entry, false)
		require.True(t, ok)
		assert.True(t, ev.Qualifies, "price %d", price)
	}
}

func TestEvaluate_ThresholdBoundaryIsStrict(t *testing.T) {
	for _, threshold := range []int64{1, 2, 500, 99999} {
		entry := model.NewWatchlistEntry(1, "x")
		entry.ThresholdPrice = threshold
		ev, _ := Evaluate([]model.RawListing{listing(threshold, false)}, entry, false)
		assert.False(t, ev.Qualifies, "equal to threshold %d", threshold)

		entry = model.NewWatchlistEntry(1, "x")
		entry.ThresholdPrice = threshold
		ev, _ = Evaluate([]model.RawListing{listing(threshold-1, false)}, entry, false)
		assert.True(t, ev.Qualifies, "one below threshold %d", threshold)
	}
}

func TestEvaluate_RecordsPriceEvenWhenNotQualifying(t *testing.T) {
	entry := model.NewWatchlistEntry(1, "x")
	entry.ThresholdPrice = 100

	ev, ok := Evaluate([]model.RawListing{listing(300, false)}, entry, false)
	require.True(t, ok)
	assert.False(t, ev.Qualifies)
	assert.Equal(t, int64(300), entry.LastFetchedPrice)
	assert.True(t, entry.ChangedSinceAck)
}

func TestEvaluate_IdempotentOnUnchangedPrice(t *testing.T) {
	entry := model.NewWatchlistEntry(1, "x")
	entry.LastFetchedPrice = 450
	listings := []model.RawListing{listing(600, false), listing(450, false)}

	ev, _ := Evaluate(listings, entry, false)
	assert.False(t, ev.Changed)
	assert.False(t, entry.ChangedSinceAck)

	ev, _ = Evaluate(listings, entry, false)
	assert.False(t, ev.Changed)
	assert.False(t, entry.ChangedSinceAck)
}

func TestEvaluate_HighQualityOnlyIgnoresCheaperNormal(t *testing.T) {
	entry := model.NewWatchlistEntry(1, "x")
	entry.QualityRequirement = model.QualityHighOnly

	ev, ok := Evaluate([]model.RawListing{listing(10, false), listing(90, true), listing(20, false)}, entry, true)
	require.True(t, ok)
	assert.True(t, ev.Listing.HighQuality)
	assert.Equal(t, int64(90), ev.Listing.PricePerUnit)
}

func TestEvaluate_NormalOnly(t *testing.T) {
	entry := model.NewWatchlistEntry(1, "x")
	entry.QualityRequirement = model.QualityNormalOnly

	ev, ok := Evaluate([]model.RawListing{listing(10, true), listing(90, false)}, entry, true)
	require.True(t, ok)
	assert.False(t, ev.Listing.HighQuality)
}

func TestEvaluate_WrongQualityOnlyExcludesItem(t *testing.T) {
	entry := model.NewWatchlistEntry(1, "x")
	entry.QualityRequirement = model.QualityHighOnly

	_, ok := Evaluate([]model.RawListing{listing(10, false)}, entry, true)
	assert.False(t, ok)
	assert.False(t, entry.ChangedSinceAck)
}

func TestEvaluate_QualityFilterOffAcceptsAll(t *testing.T) {
	entry := model.NewWatchlistEntry(1, "x")
	entry.QualityRequirement = model.QualityHighOnly

	ev, ok := Evaluate([]model.RawListing{listing(90, true), listing(10, false)}, entry, false)
	require.True(t, ok)
	assert.Equal(t, int64(10), ev.Listing.PricePerUnit)
}

func TestEvaluate_UnsortedInputAndTieBreak(t *testing.T) {
	entry := model.NewWatchlistEntry(1, "x")
	first := model.RawListing{PricePerUnit: 5, SellerName: "first"}
	second := model.RawListing{PricePerUnit: 5, SellerName: "second"}

	ev, ok := Evaluate([]model.RawListing{listing(9, false), first, listing(7, false), second}, entry, false)
	require.True(t, ok)
	assert.Equal(t, "first", ev.Listing.SellerName)
}

func TestEvaluate_IgnoresNegativePrices(t *testing.T) {
	entry := model.NewWatchlistEntry(1, "Potion")
	entry.RecordPrice(300)

	_, ok := Evaluate([]model.RawListing{listing(-5, false)}, entry, false)
	assert.False(t, ok)
	assert.Equal(t, int64(300), entry.LastFetchedPrice)

	ev, ok := Evaluate([]model.RawListing{listing(-5, false), listing(250, false)}, entry, false)
	require.True(t, ok)
	assert.Equal(t, int64(250), ev.Listing.PricePerUnit)
	assert.Equal(t, int64(250), entry.LastFetchedPrice)
}
