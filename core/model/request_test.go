package model

import (
	"testing"
	"time"
)

func TestMoreUrgent(t *testing.T) {
	base := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	low := ChargeRequest{SoC: 50, CreatedAt: base}
	critical := ChargeRequest{SoC: 5, CreatedAt: base.Add(time.Hour)}
	if !critical.MoreUrgent(low) {
		t.Fatalf("soc=5 must outrank soc=50 regardless of arrival")
	}
	if low.MoreUrgent(critical) {
		t.Fatalf("soc=50 must not outrank soc=5")
	}
	first := ChargeRequest{SoC: 0, CreatedAt: base}
	second := ChargeRequest{SoC: 0, CreatedAt: base.Add(time.Minute)}
	if !first.MoreUrgent(second) {
		t.Fatalf("equal soc must tie-break by arrival order")
	}
	if second.MoreUrgent(first) {
		t.Fatalf("later arrival must not outrank earlier one at equal soc")
	}
}

func TestBand(t *testing.T) {
	cases := []struct {
		soc  int
		want PriorityBand
	}{
		{0, BandCritical},
		{10, BandCritical},
		{11, BandHigh},
		{20, BandHigh},
		{21, BandMedium},
		{40, BandMedium},
		{41, BandLow},
		{100, BandLow},
	}
	for _, c := range cases {
		if got := (ChargeRequest{SoC: c.soc}).Band(); got != c.want {
			t.Errorf("soc=%d: got %s want %s", c.soc, got, c.want)
		}
	}
}

func TestChargeRequestValidate(t *testing.T) {
	valid := ChargeRequest{
		RequesterID: "u1",
		StationID:   "s1",
		Date:        "2025-03-04",
		SoC:         25,
		Level:       LevelL2,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	bad := valid
	bad.SoC = 101
	if err := bad.Validate(); err == nil {
		t.Fatalf("soc above 100 accepted")
	}
	bad = valid
	bad.Date = "03/04/2025"
	if err := bad.Validate(); err == nil {
		t.Fatalf("malformed date accepted")
	}
	bad = valid
	bad.Window = &TimeWindow{Start: 600, End: 600}
	if err := bad.Validate(); err == nil {
		t.Fatalf("empty window accepted")
	}
}
