// Package waitlist holds pending charge requests per (station, date),
// ordered by urgency. Positions are derived from queue order at read time
// and never persisted, so promotions and expirations cannot leave stale
// ranks behind.
package waitlist

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evgrid/chargeq/core/model"
)

// RankedEntry is a waitlist entry with its derived position. Position is
// 1-based among waiting entries of the same queue; zero for entries that
// hold an offer or have left the queue.
type RankedEntry struct {
	model.WaitlistEntry
	Position int                `json:"position"`
	Band     model.PriorityBand `json:"priority"`
}

// Queue is the in-memory waitlist store. One logical queue exists per
// (station, date); all charging levels share it, with level compatibility
// checked by the engine at offer time.
type Queue struct {
	mu      sync.Mutex
	entries map[string]model.WaitlistEntry
	now     func() time.Time
}

// New creates an empty queue store. now may be nil.
func New(now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{entries: map[string]model.WaitlistEntry{}, now: now}
}

// Enqueue inserts the request into its (station, date) queue and returns the
// new entry with its position.
func (q *Queue) Enqueue(req model.ChargeRequest) (RankedEntry, error) {
	if err := req.Validate(); err != nil {
		return RankedEntry{}, err
	}
	q.mu.Lock()
	e := model.WaitlistEntry{
		ID:        uuid.NewString(),
		Request:   req,
		StationID: req.StationID,
		Date:      req.Date,
		Status:    model.WaitWaiting,
		CreatedAt: q.now(),
	}
	if req.CreatedAt.IsZero() {
		e.Request.CreatedAt = e.CreatedAt
	}
	q.entries[e.ID] = e
	pos := q.positionLocked(e)
	q.mu.Unlock()
	return RankedEntry{WaitlistEntry: e, Position: pos, Band: e.Request.Band()}, nil
}

// Get returns an entry by id.
func (q *Queue) Get(entryID string) (model.WaitlistEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[entryID]
	if !ok {
		return model.WaitlistEntry{}, fmt.Errorf("waitlist entry %s: %w", entryID, model.ErrNotFound)
	}
	return e, nil
}

// PeekHead returns the most urgent waiting entry of the queue, if any.
// Entries already holding an offer are skipped: an entry gets at most one
// outstanding offer at a time.
func (q *Queue) PeekHead(stationID, date string) (model.WaitlistEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	waiting := q.sortedLocked(stationID, date, model.WaitWaiting)
	if len(waiting) == 0 {
		return model.WaitlistEntry{}, false
	}
	return waiting[0], true
}

// Notify transitions the entry waiting -> notified, binding the offered slot
// and its hold deadline. Fails unless the entry is waiting.
func (q *Queue) Notify(entryID string, key model.InstanceKey, deadline time.Time) (model.WaitlistEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[entryID]
	if !ok {
		return model.WaitlistEntry{}, fmt.Errorf("waitlist entry %s: %w", entryID, model.ErrNotFound)
	}
	if e.Status != model.WaitWaiting {
		return model.WaitlistEntry{}, fmt.Errorf("waitlist entry %s is %s, not waiting", entryID, e.Status)
	}
	at := q.now()
	e.Status = model.WaitNotified
	e.NotifiedAt = &at
	e.OfferDeadline = &deadline
	e.OfferedKey = &key
	q.entries[entryID] = e
	return e, nil
}

// Resolve transitions a notified entry to its terminal outcome, converted or
// expired. Fails unless the entry is notified.
func (q *Queue) Resolve(entryID string, outcome model.WaitlistStatus) (model.WaitlistEntry, error) {
	if outcome != model.WaitConverted && outcome != model.WaitExpired {
		return model.WaitlistEntry{}, fmt.Errorf("resolve requires converted or expired, got %s", outcome)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[entryID]
	if !ok {
		return model.WaitlistEntry{}, fmt.Errorf("waitlist entry %s: %w", entryID, model.ErrNotFound)
	}
	if e.Status != model.WaitNotified {
		return model.WaitlistEntry{}, fmt.Errorf("waitlist entry %s is %s, not notified", entryID, e.Status)
	}
	e.Status = outcome
	q.entries[entryID] = e
	return e, nil
}

// ExpireOverdue force-expires every notified entry whose hold deadline has
// passed and returns them, most urgent first.
func (q *Queue) ExpireOverdue(now time.Time) []model.WaitlistEntry {
	q.mu.Lock()
	var overdue []model.WaitlistEntry
	for id, e := range q.entries {
		if e.Status == model.WaitNotified && e.OfferDeadline != nil && !e.OfferDeadline.After(now) {
			e.Status = model.WaitExpired
			q.entries[id] = e
			overdue = append(overdue, e)
		}
	}
	q.mu.Unlock()
	sort.Slice(overdue, func(i, j int) bool { return less(overdue[i], overdue[j]) })
	return overdue
}

// Position returns the entry's 1-based position among waiting entries of its
// queue, or zero when the entry is not waiting.
func (q *Queue) Position(entryID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[entryID]
	if !ok {
		return 0, fmt.Errorf("waitlist entry %s: %w", entryID, model.ErrNotFound)
	}
	return q.positionLocked(e), nil
}

// List returns the live entries of a queue with derived positions: waiting
// entries ranked first in priority order, then notified ones.
func (q *Queue) List(stationID, date string) []RankedEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []RankedEntry
	for i, e := range q.sortedLocked(stationID, date, model.WaitWaiting) {
		out = append(out, RankedEntry{WaitlistEntry: e, Position: i + 1, Band: e.Request.Band()})
	}
	for _, e := range q.sortedLocked(stationID, date, model.WaitNotified) {
		out = append(out, RankedEntry{WaitlistEntry: e, Band: e.Request.Band()})
	}
	return out
}

// ListByRequester returns all of the requester's entries, newest first.
func (q *Queue) ListByRequester(requesterID string) []RankedEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []RankedEntry
	for _, e := range q.entries {
		if e.Request.RequesterID != requesterID {
			continue
		}
		out = append(out, RankedEntry{
			WaitlistEntry: e,
			Position:      q.positionLocked(e),
			Band:          e.Request.Band(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// positionLocked ranks the entry among waiting entries of its queue.
func (q *Queue) positionLocked(e model.WaitlistEntry) int {
	if e.Status != model.WaitWaiting {
		return 0
	}
	pos := 1
	for _, o := range q.entries {
		if o.ID == e.ID || o.Status != model.WaitWaiting ||
			o.StationID != e.StationID || o.Date != e.Date {
			continue
		}
		if less(o, e) {
			pos++
		}
	}
	return pos
}

// sortedLocked returns the queue's entries of one status in priority order.
// The full ordering is recomputed on every query; determinism of the
// tie-break is the contract, not the data structure.
func (q *Queue) sortedLocked(stationID, date string, status model.WaitlistStatus) []model.WaitlistEntry {
	var out []model.WaitlistEntry
	for _, e := range q.entries {
		if e.StationID == stationID && e.Date == date && e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// less orders entries by (soc asc, createdAt asc, id asc). The id tie-break
// keeps the order total even for same-instant arrivals.
func less(a, b model.WaitlistEntry) bool {
	if a.Request.SoC != b.Request.SoC {
		return a.Request.SoC < b.Request.SoC
	}
	if !a.Request.CreatedAt.Equal(b.Request.CreatedAt) {
		return a.Request.CreatedAt.Before(b.Request.CreatedAt)
	}
	return a.ID < b.ID
}
