// Package notify turns qualifying results into chat messages.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"pricenotifier/internal/metrics"
	"pricenotifier/internal/model"
)

const messagePrefix = "[PriceNotifier]"

// Surface is a best-effort text channel. Publish never reports failures.
type Surface interface {
	Publish(ctx context.Context, message string)
}

// SurfaceFunc adapts a plain callback to a Surface.
type SurfaceFunc func(ctx context.Context, message string)

// Publish calls f.
func (f SurfaceFunc) Publish(ctx context.Context, message string) { f(ctx, message) }

// Sink decides between one aggregate message and one message per result.
type Sink struct {
	surface Surface
	logger  *slog.Logger
}

// NewSink creates a sink writing to surface.
func NewSink(surface Surface, logger *slog.Logger) *Sink {
	return &Sink{
		surface: surface,
		logger:  logger.With(slog.String("component", "sink")),
	}
}

// Deliver emits the results of one cycle and returns the number of messages
// sent. More than spamLimit results collapse into a single aggregate message.
// Per-item messages keep the order of results.
func (s *Sink) Deliver(ctx context.Context, results []model.QualifyingResult, spamLimit int) int {
	if len(results) == 0 {
		return 0
	}

	if len(results) > spamLimit {
		s.surface.Publish(ctx, FormatAggregate(len(results)))
		metrics.NotificationsTotal.WithLabelValues("aggregate").Inc()
		s.logger.InfoContext(ctx, "aggregate notification sent",
			slog.Int("results", len(results)),
			slog.Int("spam_limit", spamLimit),
		)
		return 1
	}

	for _, r := range results {
		s.surface.Publish(ctx, FormatItem(r))
	}
	metrics.NotificationsTotal.WithLabelValues("item").Add(float64(len(results)))
	return len(results)
}

// FormatItem renders one qualifying result.
func FormatItem(r model.QualifyingResult) string {
	name := ""
	if r.Entry != nil {
		name = r.Entry.DisplayName
	}
	quality := ""
	if r.Listing.HighQuality {
		quality = " (HQ)"
	}
	return fmt.Sprintf("%s Found a lower price for '%s'%s - %d by %s",
		messagePrefix, name, quality, r.Listing.PricePerUnit, r.Listing.SellerName)
}

// FormatAggregate renders the message used when a cycle exceeds the spam limit.
func FormatAggregate(count int) string {
	return fmt.Sprintf("%s Found %d items below their thresholds. Open the watchlist for details.",
		messagePrefix, count)
}
