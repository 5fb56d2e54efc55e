package handler

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"pricenotifier/internal/service"
	"pricenotifier/internal/watchlist"
	"pricenotifier/pkg/apierror"
	"pricenotifier/pkg/logger"
	"pricenotifier/pkg/response"
)

// RecentFeed lists the most recent notifications, newest first.
type RecentFeed interface {
	Recent(ctx context.Context, limit int64) ([]string, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	store       *watchlist.Store
	scheduler   *service.Scheduler
	persister   *service.Persister
	feed        RecentFeed
	storageType string
	startTime   time.Time
}

// NewAdminHandler creates a new admin handler. feed may be nil.
func NewAdminHandler(
	store *watchlist.Store,
	scheduler *service.Scheduler,
	persister *service.Persister,
	feed RecentFeed,
	storageType string,
) *AdminHandler {
	return &AdminHandler{
		store:       store,
		scheduler:   scheduler,
		persister:   persister,
		feed:        feed,
		storageType: storageType,
		startTime:   time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]any)

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["storage_type"] = h.storageType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]any{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	entries := h.store.Snapshot()
	changed, disabled, retainer := 0, 0, 0
	for _, e := range entries {
		if e.ChangedSinceAck {
			changed++
		}
		if e.Flags.DisableFetching {
			disabled++
		}
		if e.Flags.Retainer {
			retainer++
		}
	}
	stats["watchlist"] = map[string]any{
		"entries":          len(entries),
		"changed":          changed,
		"disable_fetching": disabled,
		"retainer":         retainer,
	}

	stats["scheduler"] = map[string]any{
		"enabled":    h.scheduler.Enabled(),
		"last_cycle": h.scheduler.LastReport(),
	}

	if h.persister != nil {
		if last := h.persister.LastSave(); !last.IsZero() {
			stats["last_save"] = last.Format(time.RFC3339)
		}
	}

	response.OK(w, stats)
}

// Save handles POST /api/v1/admin/save
func (h *AdminHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h.persister == nil {
		response.Error(w, apierror.ServiceUnavailable("storage not configured"))
		return
	}
	if err := h.persister.Save(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("manual save failed", "error", err)
		response.Error(w, apierror.InternalError("failed to save watchlist"))
		return
	}
	response.OK(w, map[string]any{
		"status":  "saved",
		"entries": h.store.Len(),
	})
}

// RecentNotifications handles GET /api/v1/admin/notifications?limit=n
func (h *AdminHandler) RecentNotifications(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		response.Error(w, apierror.NotFound("notification feed not configured"))
		return
	}

	limit := int64(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			response.Error(w, apierror.BadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	messages, err := h.feed.Recent(r.Context(), limit)
	if err != nil {
		response.Error(w, apierror.ServiceUnavailable("notification feed unavailable"))
		return
	}
	response.OK(w, map[string]any{
		"messages": messages,
		"count":    len(messages),
	})
}
