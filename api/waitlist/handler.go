// Package waitlist exposes waitlist queries and offer confirmation over HTTP.
package waitlist

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/evgrid/chargeq/core/allocation"
	"github.com/evgrid/chargeq/core/model"
)

// NewHandler returns an HTTP handler for /api/waitlist and
// /api/waitlist/{id}/confirm. GET lists entries for a station/date pair or a
// requester; POST confirm converts an outstanding offer into a booking.
func NewHandler(engine *allocation.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/waitlist")
		rest = strings.Trim(rest, "/")
		switch {
		case rest == "" && r.Method == http.MethodGet:
			list(w, r, engine)
		case strings.HasSuffix(rest, "/confirm") && r.Method == http.MethodPost:
			confirm(w, strings.TrimSuffix(rest, "/confirm"), engine)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func list(w http.ResponseWriter, r *http.Request, engine *allocation.Engine) {
	q := r.URL.Query()
	if requester := q.Get("requester"); requester != "" {
		writeJSON(w, http.StatusOK, engine.Waitlist().ListByRequester(requester))
		return
	}
	station, date := q.Get("station"), q.Get("date")
	if station == "" || date == "" {
		http.Error(w, "station and date query parameters are required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, engine.Waitlist().List(station, date))
}

func confirm(w http.ResponseWriter, entryID string, engine *allocation.Engine) {
	b, err := engine.ConfirmOffer(entryID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, model.ErrOfferExpired):
			http.Error(w, err.Error(), http.StatusGone)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
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
