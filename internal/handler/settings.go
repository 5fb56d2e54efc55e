package handler

import (
	"net/http"

	"pricenotifier/internal/service"
	"pricenotifier/pkg/apierror"
	"pricenotifier/pkg/response"
	"pricenotifier/pkg/validate"
)

// SettingsHandler exposes the runtime settings and the scheduler toggle.
type SettingsHandler struct {
	settings  *service.SettingsStore
	scheduler *service.Scheduler
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings *service.SettingsStore, scheduler *service.Scheduler) *SettingsHandler {
	return &SettingsHandler{settings: settings, scheduler: scheduler}
}

// SchedulerRequest is the body of PUT /api/v1/scheduler.
type SchedulerRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SchedulerStatus describes the scheduler state.
type SchedulerStatus struct {
	Enabled         bool                 `json:"enabled"`
	IntervalMinutes int                  `json:"interval_minutes"`
	LastCycle       *service.CycleReport `json:"last_cycle,omitempty"`
}

// Get handles GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.settings.Get())
}

// Update handles PUT /api/v1/settings. Fields left out of the body keep
// their current values.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	next := h.settings.Get()
	if err := validate.DecodeAndValidate(r, &next); err != nil {
		response.Error(w, apierror.FromValidation(err))
		return
	}
	h.scheduler.ApplySettings(next)
	response.OK(w, h.settings.Get())
}

// Scheduler handles GET /api/v1/scheduler
func (h *SettingsHandler) Scheduler(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.status())
}

// SetScheduler handles PUT /api/v1/scheduler
func (h *SettingsHandler) SetScheduler(w http.ResponseWriter, r *http.Request) {
	var req SchedulerRequest
	if err := validate.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, apierror.FromValidation(err))
		return
	}
	h.scheduler.SetEnabled(*req.Enabled)
	response.OK(w, h.status())
}

func (h *SettingsHandler) status() SchedulerStatus {
	st := h.settings.Get()
	return SchedulerStatus{
		Enabled:         h.scheduler.Enabled(),
		IntervalMinutes: st.IntervalMinutes,
		LastCycle:       h.scheduler.LastReport(),
	}
}
