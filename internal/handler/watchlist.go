package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pricenotifier/internal/model"
	"pricenotifier/internal/service"
	"pricenotifier/internal/watchlist"
	"pricenotifier/pkg/apierror"
	"pricenotifier/pkg/response"
	"pricenotifier/pkg/validate"
)

// WatchlistHandler handles watchlist editing and manual fetches.
type WatchlistHandler struct {
	store     *watchlist.Store
	scheduler *service.Scheduler
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(store *watchlist.Store, scheduler *service.Scheduler) *WatchlistHandler {
	return &WatchlistHandler{store: store, scheduler: scheduler}
}

// AddRequest is the body of POST /api/v1/watchlist.
type AddRequest struct {
	ItemID         uint32 `json:"item_id" validate:"required"`
	Name           string `json:"name"`
	ThresholdPrice int64  `json:"threshold_price" validate:"gte=0"`
	Quality        string `json:"quality" validate:"omitempty,oneof=any hq nq"`
}

// ThresholdRequest is the body of PUT .../threshold.
type ThresholdRequest struct {
	ThresholdPrice *int64 `json:"threshold_price" validate:"required,gte=0"`
}

// QualityRequest is the body of PUT .../quality.
type QualityRequest struct {
	Quality string `json:"quality" validate:"required,oneof=any hq nq"`
}

// RetainerListingsRequest is the body of POST .../retainer-listings.
type RetainerListingsRequest struct {
	Listings []model.RetainerListing `json:"listings" validate:"dive"`
}

// List handles GET /api/v1/watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.store.Snapshot()
	response.OK(w, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// Add handles POST /api/v1/watchlist
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := validate.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, apierror.FromValidation(err))
		return
	}

	quality, err := model.ParseQualityRequirement(req.Quality)
	if err != nil {
		response.Error(w, apierror.BadRequest(err.Error()))
		return
	}

	entry := model.NewWatchlistEntry(req.ItemID, req.Name)
	entry.ThresholdPrice = req.ThresholdPrice
	entry.QualityRequirement = quality
	if err := h.store.Add(entry); err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, entry)
}

// Clear handles DELETE /api/v1/watchlist
func (h *WatchlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	response.NoContent(w)
}

// Remove handles DELETE /api/v1/watchlist/{item_id}. Removing an unknown
// item succeeds.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, apiErr := itemIDParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	h.store.Remove(id)
	response.NoContent(w)
}

// SetThreshold handles PUT /api/v1/watchlist/{item_id}/threshold
func (h *WatchlistHandler) SetThreshold(w http.ResponseWriter, r *http.Request) {
	id, apiErr := itemIDParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	var req ThresholdRequest
	if err := validate.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, apierror.FromValidation(err))
		return
	}
	if err := h.store.SetThreshold(id, *req.ThresholdPrice); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeEntry(w, r, id)
}

// SetQuality handles PUT /api/v1/watchlist/{item_id}/quality
func (h *WatchlistHandler) SetQuality(w http.ResponseWriter, r *http.Request) {
	id, apiErr := itemIDParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	var req QualityRequest
	if err := validate.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, apierror.FromValidation(err))
		return
	}
	quality, err := model.ParseQualityRequirement(req.Quality)
	if err != nil {
		response.Error(w, apierror.BadRequest(err.Error()))
		return
	}
	if err := h.store.SetQualityRequirement(id, quality); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeEntry(w, r, id)
}

// ToggleFlag handles POST /api/v1/watchlist/{item_id}/flags/{flag}/toggle
func (h *WatchlistHandler) ToggleFlag(w http.ResponseWriter, r *http.Request) {
	id, apiErr := itemIDParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	flag, err := model.ParseFlag(chi.URLParam(r, "flag"))
	if err != nil {
		response.Error(w, apierror.BadRequest(err.Error()))
		return
	}
	value, err := h.store.ToggleFlag(id, flag)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]any{
		"item_id": id,
		"flag":    flag,
		"value":   value,
	})
}

// Acknowledge handles POST /api/v1/watchlist/{item_id}/ack
func (h *WatchlistHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, apiErr := itemIDParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	if err := h.store.Acknowledge(id); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeEntry(w, r, id)
}

// AcknowledgeAll handles POST /api/v1/watchlist/ack
func (h *WatchlistHandler) AcknowledgeAll(w http.ResponseWriter, r *http.Request) {
	h.store.AcknowledgeAll()
	response.NoContent(w)
}

// ObserveRetainerListings handles POST /api/v1/watchlist/retainer-listings
func (h *WatchlistHandler) ObserveRetainerListings(w http.ResponseWriter, r *http.Request) {
	var req RetainerListingsRequest
	if err := validate.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, apierror.FromValidation(err))
		return
	}
	added, updated := h.store.ObserveRetainerListings(req.Listings)
	response.OK(w, map[string]any{
		"added":   added,
		"updated": updated,
	})
}

// FetchAll handles POST /api/v1/watchlist/fetch
func (h *WatchlistHandler) FetchAll(w http.ResponseWriter, r *http.Request) {
	if !waitRequested(r) {
		h.scheduler.TriggerFetchAll()
		response.Accepted(w, map[string]any{"status": "started"})
		return
	}

	report, err := h.scheduler.FetchAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, report)
}

// FetchItem handles POST /api/v1/watchlist/{item_id}/fetch
func (h *WatchlistHandler) FetchItem(w http.ResponseWriter, r *http.Request) {
	id, apiErr := itemIDParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	if !waitRequested(r) {
		if err := h.scheduler.TriggerFetchItem(id); err != nil {
			writeError(w, r, err)
			return
		}
		response.Accepted(w, map[string]any{"status": "started", "item_id": id})
		return
	}

	report, err := h.scheduler.FetchItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, report)
}

func (h *WatchlistHandler) writeEntry(w http.ResponseWriter, r *http.Request, id uint32) {
	entry, ok := h.store.Get(id)
	if !ok {
		writeError(w, r, watchlist.ErrNotFound)
		return
	}
	response.OK(w, entry)
}
