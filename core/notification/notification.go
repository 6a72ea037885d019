// Package notification turns allocation events into per-requester inbox
// records and optionally forwards them over a delivery transport.
package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evgrid/chargeq/core/model"
)

// Type classifies a notification for client rendering.
type Type string

const (
	TypeSlotAvailable    Type = "slot_available"
	TypeBookingConfirmed Type = "booking_confirmed"
	TypeOfferExpired     Type = "offer_expired"
	TypeWaitlistPosition Type = "waitlist_position"
)

// Notification is one inbox record for a requester.
type Notification struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requesterId"`
	Type        Type      `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
	Read        bool      `json:"read"`
}

// Transport delivers a notification outside the process, e.g. over MQTT.
type Transport interface {
	Publish(ctx context.Context, n Notification) error
}

// NopTransport discards everything.
type NopTransport struct{}

func (NopTransport) Publish(context.Context, Notification) error { return nil }

// Store is an in-memory inbox keyed by requester.
type Store struct {
	mu   sync.RWMutex
	byID map[string]*Notification
	now  func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{byID: make(map[string]*Notification), now: now}
}

// Add stores the record, assigning id and timestamp when unset.
func (s *Store) Add(n Notification) Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	stored := n
	s.byID[n.ID] = &stored
	return n
}

// List returns the requester's notifications, newest first.
func (s *Store) List(requesterID string) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Notification
	for _, n := range s.byID {
		if n.RequesterID == requesterID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Unread counts the requester's unread notifications.
func (s *Store) Unread(requesterID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.byID {
		if n.RequesterID == requesterID && !n.Read {
			count++
		}
	}
	return count
}

// MarkRead flags one notification as read.
func (s *Store) MarkRead(requesterID, id string) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok || n.RequesterID != requesterID {
		return Notification{}, model.ErrNotFound
	}
	n.Read = true
	return *n, nil
}

// MarkAllRead flags every notification of the requester as read and returns
// how many changed.
func (s *Store) MarkAllRead(requesterID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, n := range s.byID {
		if n.RequesterID == requesterID && !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed
}

// Delete removes one notification.
func (s *Store) Delete(requesterID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok || n.RequesterID != requesterID {
		return model.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}
