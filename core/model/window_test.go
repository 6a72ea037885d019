package model

import (
	"encoding/json"
	"testing"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want Clock
		ok   bool
	}{
		{"00:00", 0, true},
		{"14:30", 870, true},
		{"24:00", MinutesPerDay, true},
		{"25:00", 0, false},
		{"14:60", 0, false},
		{"afternoon", 0, false},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("ParseClock(%q) = %v, %v; want %v", c.in, got, err, c.want)
		}
		if !c.ok && err == nil {
			t.Errorf("ParseClock(%q) accepted", c.in)
		}
	}
}

func TestClockJSONRoundTrip(t *testing.T) {
	w := TimeWindow{Start: 840, End: 900}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"start":"14:00","end":"15:00"}` {
		t.Fatalf("unexpected encoding %s", data)
	}
	var back TimeWindow
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != w {
		t.Fatalf("round trip changed window: %v != %v", back, w)
	}
}

func TestWindowOverlaps(t *testing.T) {
	a := TimeWindow{Start: 480, End: 540}
	if !a.Overlaps(TimeWindow{Start: 510, End: 570}) {
		t.Fatalf("overlapping windows not detected")
	}
	if a.Overlaps(TimeWindow{Start: 540, End: 600}) {
		t.Fatalf("touching windows must not overlap (half-open)")
	}
}
