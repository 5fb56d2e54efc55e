package handler

import (
	"net/http"
	"time"

	"pricenotifier/internal/region"
	"pricenotifier/pkg/apierror"
	"pricenotifier/pkg/response"
	"pricenotifier/pkg/validate"
)

// RegionHandler records which region the player is in.
type RegionHandler struct {
	tracker *region.Tracker
}

// NewRegionHandler creates a new region handler.
func NewRegionHandler(tracker *region.Tracker) *RegionHandler {
	return &RegionHandler{tracker: tracker}
}

// RegionRequest is the body of PUT /api/v1/region.
type RegionRequest struct {
	Region     string `json:"region" validate:"required"`
	TTLSeconds int    `json:"ttl_seconds" validate:"gte=0"`
}

// Get handles GET /api/v1/region
func (h *RegionHandler) Get(w http.ResponseWriter, r *http.Request) {
	name, ok := h.tracker.CurrentRegion(r.Context())
	response.OK(w, map[string]any{
		"region":    name,
		"available": ok,
	})
}

// Observe handles PUT /api/v1/region
func (h *RegionHandler) Observe(w http.ResponseWriter, r *http.Request) {
	var req RegionRequest
	if err := validate.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, apierror.FromValidation(err))
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if err := h.tracker.Observe(r.Context(), req.Region, ttl); err != nil {
		response.Error(w, apierror.ServiceUnavailable("failed to record region"))
		return
	}
	response.OK(w, map[string]any{
		"region":    req.Region,
		"available": true,
	})
}

// Forget handles DELETE /api/v1/region
func (h *RegionHandler) Forget(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Forget(r.Context()); err != nil {
		response.Error(w, apierror.ServiceUnavailable("failed to clear region"))
		return
	}
	response.NoContent(w)
}
