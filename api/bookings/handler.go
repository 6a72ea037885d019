// Package bookings exposes slot booking operations over HTTP.
package bookings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/evgrid/chargeq/core/allocation"
	"github.com/evgrid/chargeq/core/model"
)

// NewHandler returns an HTTP handler for /api/bookings and /api/bookings/{id}.
// POST creates a booking or waitlists the request, GET lists bookings for a
// requester, DELETE cancels a booking.
func NewHandler(engine *allocation.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/bookings")
		rest = strings.Trim(rest, "/")
		switch {
		case rest == "" && r.Method == http.MethodPost:
			create(w, r, engine)
		case rest == "" && r.Method == http.MethodGet:
			list(w, r, engine)
		case rest != "" && r.Method == http.MethodGet:
			get(w, rest, engine)
		case rest != "" && r.Method == http.MethodDelete:
			cancel(w, rest, engine)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func create(w http.ResponseWriter, r *http.Request, engine *allocation.Engine) {
	var req model.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	res, err := engine.RequestSlot(req)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	status := http.StatusCreated
	if res.Status == allocation.StatusWaitlisted {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func list(w http.ResponseWriter, r *http.Request, engine *allocation.Engine) {
	requester := r.URL.Query().Get("requester")
	if requester == "" {
		http.Error(w, "requester query parameter is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, engine.Bookings().ListByRequester(requester))
}

func get(w http.ResponseWriter, id string, engine *allocation.Engine) {
	b, err := engine.Bookings().Get(id)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func cancel(w http.ResponseWriter, id string, engine *allocation.Engine) {
	b, err := engine.CancelBooking(id)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError maps domain sentinel errors to HTTP statuses and falls back to
// the provided status for everything else.
func writeError(w http.ResponseWriter, err error, fallback int) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrInvalidWindow):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrSlotConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrOfferExpired):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		http.Error(w, err.Error(), fallback)
	}
}
