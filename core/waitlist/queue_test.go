package waitlist

import (
	"errors"
	"testing"
	"time"

	"github.com/evgrid/chargeq/core/model"
)

var base = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

func req(requester string, soc int, createdAt time.Time) model.ChargeRequest {
	return model.ChargeRequest{
		RequesterID: requester,
		StationID:   "s1",
		Date:        "2025-03-04",
		SoC:         soc,
		Level:       model.LevelL3,
		CreatedAt:   createdAt,
	}
}

func TestEnqueuePriorityOrdering(t *testing.T) {
	q := New(func() time.Time { return base })
	first, err := q.Enqueue(req("u1", 50, base))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if first.Position != 1 {
		t.Fatalf("first entry position %d", first.Position)
	}
	// Lower SoC arrives later but must take the head.
	critical, err := q.Enqueue(req("u2", 5, base.Add(time.Minute)))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if critical.Position != 1 {
		t.Fatalf("soc=5 entry position %d, want 1", critical.Position)
	}
	if pos, _ := q.Position(first.ID); pos != 2 {
		t.Fatalf("soc=50 entry moved to %d, want 2", pos)
	}
	head, ok := q.PeekHead("s1", "2025-03-04")
	if !ok || head.ID != critical.ID {
		t.Fatalf("head is %v, want soc=5 entry", head.ID)
	}
}

func TestPositionsStrictlyIncreasing(t *testing.T) {
	q := New(func() time.Time { return base })
	socs := []int{30, 10, 10, 80, 0}
	for i, soc := range socs {
		if _, err := q.Enqueue(req("u", soc, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	list := q.List("s1", "2025-03-04")
	if len(list) != len(socs) {
		t.Fatalf("list size %d", len(list))
	}
	for i, e := range list {
		if e.Position != i+1 {
			t.Fatalf("position at rank %d is %d; want gapless 1-based sequence", i, e.Position)
		}
		if i > 0 {
			prev := list[i-1]
			if prev.Request.SoC > e.Request.SoC {
				t.Fatalf("ordering broken at rank %d: soc %d before %d", i, prev.Request.SoC, e.Request.SoC)
			}
			if prev.Request.SoC == e.Request.SoC && prev.Request.CreatedAt.After(e.Request.CreatedAt) {
				t.Fatalf("fifo tie-break broken at rank %d", i)
			}
		}
	}
}

func TestZeroSocTieBreakByArrival(t *testing.T) {
	q := New(func() time.Time { return base })
	a, _ := q.Enqueue(req("a", 0, base))
	b, _ := q.Enqueue(req("b", 0, base.Add(time.Millisecond)))
	head, _ := q.PeekHead("s1", "2025-03-04")
	if head.ID != a.ID {
		t.Fatalf("head %s, want earlier arrival %s", head.ID, a.ID)
	}
	if pos, _ := q.Position(b.ID); pos != 2 {
		t.Fatalf("later arrival position %d", pos)
	}
}

func TestNotifyAndResolveTransitions(t *testing.T) {
	q := New(func() time.Time { return base })
	e, _ := q.Enqueue(req("u1", 20, base))
	key := model.InstanceKey{StationID: "s1", SlotID: "s1-1", Date: "2025-03-04", Start: 840}
	deadline := base.Add(15 * time.Minute)

	notified, err := q.Notify(e.ID, key, deadline)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if notified.Status != model.WaitNotified || notified.OfferedKey == nil || *notified.OfferedKey != key {
		t.Fatalf("notify state: %+v", notified)
	}
	// A notified entry leaves the waiting ranks and cannot be re-notified.
	if _, ok := q.PeekHead("s1", "2025-03-04"); ok {
		t.Fatalf("notified entry still at head")
	}
	if _, err := q.Notify(e.ID, key, deadline); err == nil {
		t.Fatalf("double notify accepted")
	}
	if pos, _ := q.Position(e.ID); pos != 0 {
		t.Fatalf("notified entry has position %d", pos)
	}

	resolved, err := q.Resolve(e.ID, model.WaitConverted)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != model.WaitConverted {
		t.Fatalf("resolve state %s", resolved.Status)
	}
	if _, err := q.Resolve(e.ID, model.WaitExpired); err == nil {
		t.Fatalf("resolve after terminal accepted")
	}
}

func TestResolveRequiresNotified(t *testing.T) {
	q := New(func() time.Time { return base })
	e, _ := q.Enqueue(req("u1", 20, base))
	if _, err := q.Resolve(e.ID, model.WaitExpired); err == nil {
		t.Fatalf("resolving a waiting entry accepted")
	}
	if _, err := q.Resolve(e.ID, model.WaitWaiting); err == nil {
		t.Fatalf("non-terminal outcome accepted")
	}
}

func TestExpireOverdue(t *testing.T) {
	q := New(func() time.Time { return base })
	key := model.InstanceKey{StationID: "s1", SlotID: "s1-1", Date: "2025-03-04", Start: 840}
	a, _ := q.Enqueue(req("a", 5, base))
	b, _ := q.Enqueue(req("b", 50, base))
	if _, err := q.Notify(a.ID, key, base.Add(10*time.Minute)); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if got := q.ExpireOverdue(base.Add(5 * time.Minute)); len(got) != 0 {
		t.Fatalf("expired before deadline: %v", got)
	}
	got := q.ExpireOverdue(base.Add(10 * time.Minute))
	if len(got) != 1 || got[0].ID != a.ID || got[0].Status != model.WaitExpired {
		t.Fatalf("expire result: %v", got)
	}
	// The expired entry is permanently out; the next head is the soc=50 one.
	head, ok := q.PeekHead("s1", "2025-03-04")
	if !ok || head.ID != b.ID {
		t.Fatalf("head after expiry: %v", head.ID)
	}
}

func TestQueuesAreIndependent(t *testing.T) {
	q := New(func() time.Time { return base })
	r := req("u1", 30, base)
	if _, err := q.Enqueue(r); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	other := r
	other.Date = "2025-03-05"
	e2, err := q.Enqueue(other)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if e2.Position != 1 {
		t.Fatalf("separate (station, date) queue shares positions: %d", e2.Position)
	}
}

func TestGetUnknown(t *testing.T) {
	q := New(nil)
	if _, err := q.Get("nope"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}
