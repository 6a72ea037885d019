// Package stations exposes the slot catalog over HTTP.
package stations

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/evgrid/chargeq/core/catalog"
	"github.com/evgrid/chargeq/core/model"
)

// NewHandler returns an HTTP handler for /api/stations and
// /api/stations/{id}/availability. The availability view lists every slot
// instance of a date with its current state; level and free-only filters are
// optional.
func NewHandler(cat *catalog.Catalog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stations"), "/")
		if rest == "" {
			writeJSON(w, http.StatusOK, cat.Stations())
			return
		}
		parts := strings.Split(rest, "/")
		if len(parts) == 1 {
			st, err := cat.Station(parts[0])
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, st)
			return
		}
		if len(parts) == 2 && parts[1] == "availability" {
			availability(w, r, cat, parts[0])
			return
		}
		http.NotFound(w, r)
	})
}

func availability(w http.ResponseWriter, r *http.Request, cat *catalog.Catalog, stationID string) {
	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required", http.StatusBadRequest)
		return
	}
	var level model.ChargingLevel
	if s := q.Get("level"); s != "" {
		parsed, err := model.ParseLevel(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		level = parsed
	}
	var (
		instances []model.SlotInstance
		err       error
	)
	if q.Get("free") == "true" {
		instances, err = cat.ListAvailable(stationID, date, level)
	} else {
		instances, err = cat.Instances(stationID, date, level)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instances)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrInvalidWindow):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
