package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pricenotifier/internal/service"
	"pricenotifier/internal/watchlist"
	"pricenotifier/pkg/apierror"
	"pricenotifier/pkg/logger"
	"pricenotifier/pkg/response"
)

// writeError maps domain errors onto API errors.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, watchlist.ErrDuplicateEntry):
		response.Error(w, apierror.Conflict(err.Error()))
	case errors.Is(err, watchlist.ErrNotFound):
		response.Error(w, apierror.NotFound(err.Error()))
	case errors.Is(err, watchlist.ErrInvalidPrice):
		response.Error(w, apierror.BadRequest(err.Error()))
	case errors.Is(err, service.ErrRegionUnavailable):
		response.Error(w, apierror.ServiceUnavailable("current region is unknown"))
	case errors.Is(err, service.ErrCycleInFlight):
		response.Error(w, apierror.Conflict(err.Error()))
	default:
		logger.FromContext(r.Context()).Error("request failed", "error", err)
		response.Error(w, err)
	}
}

// itemIDParam parses the {item_id} path segment.
func itemIDParam(r *http.Request) (uint32, *apierror.Error) {
	raw := chi.URLParam(r, "item_id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apierror.BadRequest("item_id must be a positive integer")
	}
	return uint32(id), nil
}

// waitRequested reports whether the caller asked to run inline.
func waitRequested(r *http.Request) bool {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	return wait
}
