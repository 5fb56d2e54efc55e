// Package service holds the fetch-evaluate-notify pipeline.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pricenotifier/internal/metrics"
	"pricenotifier/internal/model"
	"pricenotifier/internal/pricing"
	"pricenotifier/internal/region"
	"pricenotifier/internal/watchlist"
	"pricenotifier/pkg/uid"
)

// Error is a scheduler error.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrRegionUnavailable aborts a cycle before any request is made.
	ErrRegionUnavailable Error = "region unavailable"
	// ErrCycleInFlight is returned when a scheduled cycle is already running.
	ErrCycleInFlight Error = "scheduled cycle already in flight"
)

// DefaultBatchSize caps the number of items per price API request.
const DefaultBatchSize = 10

// CycleKind tells scheduled cycles from manual ones.
type CycleKind string

const (
	CycleScheduled CycleKind = "scheduled"
	CycleManual    CycleKind = "manual"
)

// Deliverer hands a cycle's results to the notification surface.
type Deliverer interface {
	Deliver(ctx context.Context, results []model.QualifyingResult, spamLimit int) int
}

// CycleReport summarizes one fetch cycle.
type CycleReport struct {
	ID            string                   `json:"id"`
	Kind          CycleKind                `json:"kind"`
	Region        string                   `json:"region,omitempty"`
	StartedAt     time.Time                `json:"started_at"`
	Duration      time.Duration            `json:"duration"`
	Items         int                      `json:"items"`
	Batches       int                      `json:"batches"`
	FailedBatches int                      `json:"failed_batches"`
	FailedItems   int                      `json:"failed_items"`
	Evaluated     int                      `json:"evaluated"`
	Changed       int                      `json:"changed"`
	Results       []model.QualifyingResult `json:"results"`
	Messages      int                      `json:"messages"`
}

// SchedulerConfig holds the static scheduler parameters.
type SchedulerConfig struct {
	// BatchSize caps the items per request. Default: 10
	BatchSize int

	// IntervalUnit is the length of one interval step. Default: 1 minute
	IntervalUnit time.Duration
}

// Scheduler runs fetch cycles on a timer and on demand. Cycles may overlap;
// the only shared state is the watchlist store.
type Scheduler struct {
	store     *watchlist.Store
	fetcher   pricing.Fetcher
	regions   region.Source
	sink      Deliverer
	settings  *SettingsStore
	batchSize int
	unit      time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}

	inFlight atomic.Bool
	cycles   sync.WaitGroup

	lastMu     sync.RWMutex
	lastReport *CycleReport
}

// NewScheduler creates a scheduler. The timer is not started.
func NewScheduler(
	store *watchlist.Store,
	fetcher pricing.Fetcher,
	regions region.Source,
	sink Deliverer,
	settings *SettingsStore,
	cfg SchedulerConfig,
	logger *slog.Logger,
) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.IntervalUnit <= 0 {
		cfg.IntervalUnit = time.Minute
	}
	return &Scheduler{
		store:     store,
		fetcher:   fetcher,
		regions:   regions,
		sink:      sink,
		settings:  settings,
		batchSize: cfg.BatchSize,
		unit:      cfg.IntervalUnit,
		logger:    logger.With(slog.String("component", "scheduler")),
	}
}

// Start starts the timer if the settings enable it.
func (s *Scheduler) Start() {
	if s.settings.Get().SchedulerEnabled {
		s.startTimer()
	}
}

// Stop stops the timer. Cycles already running are not interrupted.
func (s *Scheduler) Stop() {
	s.stopTimer()
}

// Wait blocks until every running cycle has finished.
func (s *Scheduler) Wait() {
	s.cycles.Wait()
}

// Enabled reports whether the timer is running.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker != nil
}

// SetEnabled turns scheduled cycles on or off.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.settings.update(func(st *model.Settings) { st.SchedulerEnabled = enabled })
	if enabled {
		s.startTimer()
	} else {
		s.stopTimer()
	}
}

// SetInterval changes the period between scheduled cycles. A running timer
// is restarted with the new period.
func (s *Scheduler) SetInterval(minutes int) {
	if minutes <= 0 {
		return
	}
	s.settings.update(func(st *model.Settings) { st.IntervalMinutes = minutes })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		s.ticker.Reset(s.period(minutes))
		s.logger.Info("interval changed", slog.Int("minutes", minutes))
	}
}

// ApplySettings replaces the settings and adjusts the timer to match.
func (s *Scheduler) ApplySettings(v model.Settings) {
	prev := s.settings.Get()
	s.settings.Set(v)
	if v.IntervalMinutes != prev.IntervalMinutes {
		s.SetInterval(v.IntervalMinutes)
	}
	if v.SchedulerEnabled != s.Enabled() {
		s.SetEnabled(v.SchedulerEnabled)
	}
}

// LastReport returns the report of the most recent finished cycle.
func (s *Scheduler) LastReport() *CycleReport {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.lastReport
}

func (s *Scheduler) period(minutes int) time.Duration {
	return time.Duration(minutes) * s.unit
}

func (s *Scheduler) startTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		return
	}

	minutes := s.settings.Get().IntervalMinutes
	if minutes <= 0 {
		minutes = DefaultSettings().IntervalMinutes
	}
	s.ticker = time.NewTicker(s.period(minutes))
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(s.ticker, s.stopCh, s.doneCh)

	s.logger.Info("scheduled fetching enabled", slog.Int("interval_minutes", minutes))
}

func (s *Scheduler) stopTimer() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stopCh)
	done := s.doneCh
	s.ticker, s.stopCh, s.doneCh = nil, nil, nil
	s.mu.Unlock()

	<-done
	s.logger.Info("scheduled fetching disabled")
}

// run is the timer loop.
func (s *Scheduler) run(ticker *time.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-stop:
			return
		}
	}
}

// tick starts a scheduled cycle unless one is still running.
func (s *Scheduler) tick() {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.CyclesSkipped.Inc()
		s.logger.Warn("previous scheduled cycle still running, skipping tick")
		return
	}

	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		defer s.inFlight.Store(false)
		_, _ = s.scheduledCycle(context.Background())
	}()
}

// RunScheduled runs one scheduled cycle synchronously. Items with automatic
// fetching disabled are skipped.
func (s *Scheduler) RunScheduled(ctx context.Context) (*CycleReport, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrCycleInFlight
	}
	defer s.inFlight.Store(false)
	return s.scheduledCycle(ctx)
}

func (s *Scheduler) scheduledCycle(ctx context.Context) (*CycleReport, error) {
	snapshot := s.store.Snapshot()
	entries := snapshot[:0]
	for _, e := range snapshot {
		if !e.Flags.DisableFetching {
			entries = append(entries, e)
		}
	}
	return s.runCycle(ctx, CycleScheduled, entries)
}

// FetchAll runs a manual cycle over the whole watchlist, including items with
// automatic fetching disabled.
func (s *Scheduler) FetchAll(ctx context.Context) (*CycleReport, error) {
	return s.runCycle(ctx, CycleManual, s.store.Snapshot())
}

// FetchItem runs a manual cycle for a single item.
func (s *Scheduler) FetchItem(ctx context.Context, itemID uint32) (*CycleReport, error) {
	entry, ok := s.store.Get(itemID)
	if !ok {
		return nil, watchlist.ErrNotFound
	}
	return s.runCycle(ctx, CycleManual, []*model.WatchlistEntry{entry})
}

// TriggerFetchAll starts FetchAll in the background.
func (s *Scheduler) TriggerFetchAll() {
	s.background(func(ctx context.Context) { _, _ = s.FetchAll(ctx) })
}

// TriggerFetchItem starts FetchItem in the background. Unknown items are
// rejected immediately.
func (s *Scheduler) TriggerFetchItem(itemID uint32) error {
	if _, ok := s.store.Get(itemID); !ok {
		return watchlist.ErrNotFound
	}
	s.background(func(ctx context.Context) { _, _ = s.FetchItem(ctx, itemID) })
	return nil
}

func (s *Scheduler) background(fn func(ctx context.Context)) {
	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		fn(context.Background())
	}()
}

// batchOutcome holds what one batch produced.
type batchOutcome struct {
	listings    pricing.Listings
	failed      bool
	failedItems int
}

// runCycle fetches, evaluates and notifies for entries. Once started a cycle
// runs to completion; ctx cancellation is ignored.
func (s *Scheduler) runCycle(ctx context.Context, kind CycleKind, entries []*model.WatchlistEntry) (*CycleReport, error) {
	ctx = context.WithoutCancel(ctx)
	report := &CycleReport{
		ID:        uid.New(),
		Kind:      kind,
		StartedAt: time.Now(),
		Items:     len(entries),
	}
	logger := s.logger.With(slog.String("cycle_id", report.ID), slog.String("kind", string(kind)))

	regionName, ok := s.regions.CurrentRegion(ctx)
	if !ok {
		logger.ErrorContext(ctx, "cycle aborted", slog.String("error", ErrRegionUnavailable.Error()))
		s.finish(report, "region_unavailable")
		return report, ErrRegionUnavailable
	}
	report.Region = regionName

	params := s.settings.Get()
	query := pricing.Query{
		Region:          regionName,
		IgnoreTax:       params.IgnoreTax,
		SameQualityOnly: params.SameQualityOnly,
	}

	batches := partition(entries, s.batchSize)
	report.Batches = len(batches)

	outcomes := make([]batchOutcome, len(batches))
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []*model.WatchlistEntry) {
			defer wg.Done()
			outcomes[i] = s.fetchBatch(ctx, logger, query, batch)
		}(i, batch)
	}
	wg.Wait()

	for i, batch := range batches {
		out := outcomes[i]
		if out.failed {
			report.FailedBatches++
		}
		report.FailedItems += out.failedItems

		for _, entry := range batch {
			listings, ok := out.listings[entry.ItemID]
			if !ok {
				continue
			}
			ev, ok := Evaluate(listings, entry, query.SameQualityOnly)
			if !ok {
				continue
			}
			report.Evaluated++
			if s.store.RecordPrice(entry.ItemID, ev.Listing.PricePerUnit) {
				report.Changed++
			}
			if ev.Qualifies {
				report.Results = append(report.Results, model.QualifyingResult{Entry: entry, Listing: ev.Listing})
			}
		}
	}

	report.Messages = s.sink.Deliver(ctx, report.Results, params.SpamLimit)

	outcome := "ok"
	if report.FailedBatches > 0 {
		outcome = "partial"
	}
	s.finish(report, outcome)

	logger.InfoContext(ctx, "cycle finished",
		slog.String("region", regionName),
		slog.Int("items", report.Items),
		slog.Int("batches", report.Batches),
		slog.Int("failed_batches", report.FailedBatches),
		slog.Int("evaluated", report.Evaluated),
		slog.Int("changed", report.Changed),
		slog.Int("results", len(report.Results)),
		slog.Int("messages", report.Messages),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *Scheduler) finish(report *CycleReport, outcome string) {
	report.Duration = time.Since(report.StartedAt)
	metrics.CyclesTotal.WithLabelValues(string(report.Kind), outcome).Inc()
	metrics.CycleDuration.WithLabelValues(string(report.Kind)).Observe(report.Duration.Seconds())

	s.lastMu.Lock()
	s.lastReport = report
	s.lastMu.Unlock()
}

// fetchBatch requests one batch. When a multi-item batch fails, each item is
// requested on its own so one bad item cannot hide the others.
func (s *Scheduler) fetchBatch(ctx context.Context, logger *slog.Logger, q pricing.Query, batch []*model.WatchlistEntry) batchOutcome {
	q.ItemIDs = itemIDs(batch)
	listings, err := s.fetcher.Fetch(ctx, q)
	metrics.BatchRequests.WithLabelValues(pricing.Reason(err)).Inc()
	if err == nil {
		return batchOutcome{listings: listings}
	}

	logger.WarnContext(ctx, "batch failed",
		slog.Int("items", len(batch)),
		slog.String("reason", pricing.Reason(err)),
		slog.String("error", err.Error()),
	)
	if len(batch) == 1 {
		return batchOutcome{failed: true, failedItems: 1}
	}

	out := batchOutcome{listings: make(pricing.Listings, len(batch)), failed: true}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, entry := range batch {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			single := q
			single.ItemIDs = []uint32{id}
			got, err := s.fetcher.Fetch(ctx, single)
			metrics.BatchRequests.WithLabelValues(pricing.Reason(err)).Inc()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.failedItems++
				logger.WarnContext(ctx, "item fetch failed",
					slog.Uint64("item_id", uint64(id)),
					slog.String("reason", pricing.Reason(err)),
				)
				return
			}
			for k, v := range got {
				out.listings[k] = v
			}
		}(entry.ItemID)
	}
	wg.Wait()
	return out
}

func partition(entries []*model.WatchlistEntry, size int) [][]*model.WatchlistEntry {
	var batches [][]*model.WatchlistEntry
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		batches = append(batches, entries[start:end])
	}
	return batches
}

func itemIDs(batch []*model.WatchlistEntry) []uint32 {
	ids := make([]uint32, len(batch))
	for i, e := range batch {
		ids[i] = e.ItemID
	}
	return ids
}

// IsRegionUnavailable reports whether err aborted a cycle for lack of region.
func IsRegionUnavailable(err error) bool {
	return errors.Is(err, ErrRegionUnavailable)
}
