package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/evgrid/chargeq/core/model"
)

func testStation() model.Station {
	return model.Station{
		ID:   "s1",
		Name: "Downtown Charging Hub",
		Hours: model.OperatingHours{
			Open:  8 * 60,
			Close: 18 * 60,
		},
		Slots: []model.SlotDefinition{
			{ID: "s1-1", Level: model.LevelL2, PowerKW: 7.2},
			{ID: "s1-2", Level: model.LevelL3, PowerKW: 50},
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 4, 7, 0, 0, 0, time.UTC)
}

func newTestCatalog(t *testing.T, occ Occupancy) *Catalog {
	t.Helper()
	c, err := New(Config{}, []model.Station{testStation()}, occ, fixedNow)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func TestGenerateWindowsDeterministic(t *testing.T) {
	c := newTestCatalog(t, nil)
	def := model.SlotDefinition{ID: "x", Level: model.LevelL3, PowerKW: 50}
	hours := testStation().Hours
	a := c.GenerateWindows(def, hours)
	b := c.GenerateWindows(def, hours)
	if len(a) != 10 {
		t.Fatalf("expected 10 hourly windows between 08:00 and 18:00, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("window %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
	if a[0] != (model.TimeWindow{Start: 480, End: 540}) {
		t.Fatalf("first window %v", a[0])
	}
}

func TestGenerateWindowsPerLevelLength(t *testing.T) {
	c := newTestCatalog(t, nil)
	hours := testStation().Hours
	l2 := c.GenerateWindows(model.SlotDefinition{Level: model.LevelL2}, hours)
	if len(l2) != 5 || l2[0].Minutes() != 120 {
		t.Fatalf("L2 windows: %v", l2)
	}
	l1 := c.GenerateWindows(model.SlotDefinition{Level: model.LevelL1}, hours)
	if len(l1) != 2 || l1[0].Minutes() != 240 {
		t.Fatalf("L1 windows: %v", l1)
	}
}

func TestInstancesOrderingAndState(t *testing.T) {
	booked := map[model.InstanceKey]model.SlotState{
		{StationID: "s1", SlotID: "s1-2", Date: "2025-03-04", Start: 840}: model.SlotBooked,
	}
	c := newTestCatalog(t, occupancyMap(booked))
	all, err := c.Instances("s1", "2025-03-04", "")
	if err != nil {
		t.Fatalf("instances: %v", err)
	}
	if len(all) != 15 {
		t.Fatalf("expected 5 L2 + 10 L3 instances, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.SlotID > cur.SlotID || (prev.SlotID == cur.SlotID && prev.Window.Start >= cur.Window.Start) {
			t.Fatalf("instances not ordered by (slot, start) at %d", i)
		}
	}
	var found bool
	for _, inst := range all {
		if inst.SlotID == "s1-2" && inst.Window.Start == 840 {
			found = true
			if inst.State != model.SlotBooked {
				t.Fatalf("booked instance reported %s", inst.State)
			}
		}
	}
	if !found {
		t.Fatalf("14:00 L3 instance missing")
	}
}

func TestCandidatesExactWindow(t *testing.T) {
	c := newTestCatalog(t, nil)
	w := model.TimeWindow{Start: 840, End: 900}
	got, err := c.Candidates("s1", "2025-03-04", model.LevelL3, &w)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 1 || got[0].Window != w {
		t.Fatalf("got %v", got)
	}
}

func TestValidateWindow(t *testing.T) {
	c := newTestCatalog(t, nil)
	if err := c.ValidateWindow("s1", model.LevelL3, model.TimeWindow{Start: 840, End: 900}); err != nil {
		t.Fatalf("on-grid window rejected: %v", err)
	}
	err := c.ValidateWindow("s1", model.LevelL3, model.TimeWindow{Start: 845, End: 905})
	if !errors.Is(err, model.ErrInvalidWindow) {
		t.Fatalf("off-grid window: got %v", err)
	}
	err = c.ValidateWindow("s1", model.LevelL3, model.TimeWindow{Start: 300, End: 360})
	if !errors.Is(err, model.ErrInvalidWindow) {
		t.Fatalf("window outside operating hours: got %v", err)
	}
	err = c.ValidateWindow("nope", model.LevelL3, model.TimeWindow{Start: 840, End: 900})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown station: got %v", err)
	}
}

func TestCheckDateHorizon(t *testing.T) {
	c := newTestCatalog(t, nil)
	if err := c.CheckDate("2025-03-04"); err != nil {
		t.Fatalf("today rejected: %v", err)
	}
	if err := c.CheckDate("2025-03-10"); err != nil {
		t.Fatalf("last horizon day rejected: %v", err)
	}
	if err := c.CheckDate("2025-03-11"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("beyond horizon: got %v", err)
	}
	if err := c.CheckDate("2025-03-03"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("past date: got %v", err)
	}
}

func TestIsFree(t *testing.T) {
	occ := occupancyMap{
		{StationID: "s1", SlotID: "s1-2", Date: "2025-03-04", Start: 840}: model.SlotBooked,
		{StationID: "s1", SlotID: "s1-2", Date: "2025-03-04", Start: 900}: model.SlotHeld,
	}
	c := newTestCatalog(t, occ)
	booked := model.InstanceKey{StationID: "s1", SlotID: "s1-2", Date: "2025-03-04", Start: 840}
	held := model.InstanceKey{StationID: "s1", SlotID: "s1-2", Date: "2025-03-04", Start: 900}
	free := model.InstanceKey{StationID: "s1", SlotID: "s1-2", Date: "2025-03-04", Start: 960}
	if c.IsFree(booked) {
		t.Error("booked instance reported free")
	}
	if c.IsFree(held) {
		t.Error("held instance reported free")
	}
	if !c.IsFree(free) {
		t.Error("unclaimed instance reported occupied")
	}
	// without an occupancy view every instance is free
	if noOcc := newTestCatalog(t, nil); !noOcc.IsFree(booked) {
		t.Error("catalog without occupancy must report free")
	}
}

// occupancyMap is a test double for the ledger view.
type occupancyMap map[model.InstanceKey]model.SlotState

func (m occupancyMap) State(key model.InstanceKey) model.SlotState {
	if s, ok := m[key]; ok {
		return s
	}
	return model.SlotFree
}
