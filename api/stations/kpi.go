package stations

import (
	"context"
	"net/http"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/evgrid/chargeq/core/model"
	"github.com/evgrid/chargeq/infra/history"
)

// HistoryStore is the archive slice the KPI handler reads from.
type HistoryStore interface {
	Query(ctx context.Context, q history.Query) ([]model.Booking, error)
}

// KPIReport aggregates one station's booking history.
type KPIReport struct {
	StationID      string  `json:"station_id"`
	Bookings       int     `json:"bookings"`
	Cancelled      int     `json:"cancelled"`
	Completed      int     `json:"completed"`
	Missed         int     `json:"missed"`
	CancelRate     float64 `json:"cancel_rate"`
	NoShowRate     float64 `json:"no_show_rate"`
	MeanSoC        float64 `json:"mean_soc"`
	StdDevSoC      float64 `json:"stddev_soc"`
	MeanSessionMin float64 `json:"mean_session_minutes"`
}

// NewKPIHandler exposes per-station booking KPIs via
// GET /api/stations/{id}/kpis. Requests must include an Authorization header
// with "Bearer <token>" when token is non-empty.
func NewKPIHandler(store HistoryStore, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stations"), "/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[1] != "kpis" {
			http.NotFound(w, r)
			return
		}
		q := history.Query{StationID: parts[0]}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, buildReport(parts[0], records))
	})
}

// buildReport folds archived snapshots into a KPIReport. The archive holds
// one row per status transition; counts are per booking, keyed on the latest
// status seen.
func buildReport(stationID string, records []model.Booking) KPIReport {
	latest := make(map[string]model.Booking)
	for _, b := range records {
		latest[b.ID] = b
	}
	rep := KPIReport{StationID: stationID}
	var socs, sessions []float64
	for _, b := range latest {
		rep.Bookings++
		switch b.Status {
		case model.BookingCancelled:
			rep.Cancelled++
		case model.BookingCompleted:
			rep.Completed++
		case model.BookingMissed:
			rep.Missed++
		}
		socs = append(socs, float64(b.Request.SoC))
		sessions = append(sessions, float64(b.Slot.Window.Minutes()))
	}
	if rep.Bookings > 0 {
		rep.CancelRate = float64(rep.Cancelled) / float64(rep.Bookings)
		rep.NoShowRate = float64(rep.Missed) / float64(rep.Bookings)
		rep.MeanSoC = stat.Mean(socs, nil)
		if len(socs) > 1 {
			// sample stddev is undefined for a single observation
			rep.StdDevSoC = stat.StdDev(socs, nil)
		}
		rep.MeanSessionMin = stat.Mean(sessions, nil)
	}
	return rep
}
