// Package notifications exposes the per-requester notification inbox over
// HTTP.
package notifications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/evgrid/chargeq/core/model"
	"github.com/evgrid/chargeq/core/notification"
)

// NewHandler returns an HTTP handler for the notification inbox:
//
//	GET    /api/notifications?requester=
//	POST   /api/notifications/read-all?requester=
//	POST   /api/notifications/{id}/read?requester=
//	DELETE /api/notifications/{id}?requester=
func NewHandler(store *notification.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requester := r.URL.Query().Get("requester")
		if requester == "" {
			http.Error(w, "requester query parameter is required", http.StatusBadRequest)
			return
		}
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/notifications"), "/")
		switch {
		case rest == "" && r.Method == http.MethodGet:
			writeJSON(w, http.StatusOK, listResponse{
				Notifications: store.List(requester),
				Unread:        store.Unread(requester),
			})
		case rest == "read-all" && r.Method == http.MethodPost:
			changed := store.MarkAllRead(requester)
			writeJSON(w, http.StatusOK, map[string]int{"updated": changed})
		case strings.HasSuffix(rest, "/read") && r.Method == http.MethodPost:
			id := strings.TrimSuffix(rest, "/read")
			n, err := store.MarkRead(requester, id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, n)
		case rest != "" && r.Method == http.MethodDelete:
			if err := store.Delete(requester, rest); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

type listResponse struct {
	Notifications []notification.Notification `json:"notifications"`
	Unread        int                         `json:"unread"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
