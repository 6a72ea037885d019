package model

import (
	"encoding/json"
	"fmt"
)

// MinutesPerDay bounds clock values.
const MinutesPerDay = 24 * 60

// Clock is a time of day expressed in minutes since midnight. Using minute
// offsets keeps slot keys comparable and free of timezone concerns.
type Clock int

// ParseClock parses an HH:MM string.
func ParseClock(s string) (Clock, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || h*60+m > MinutesPerDay {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return Clock(h*60 + m), nil
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalJSON renders the clock as an HH:MM string.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts an HH:MM string.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeWindow is a half-open [Start, End) interval within one day.
type TimeWindow struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Valid reports whether the window is a non-empty forward interval.
func (w TimeWindow) Valid() bool {
	return w.Start >= 0 && w.End <= MinutesPerDay && w.Start < w.End
}

// Overlaps reports whether two windows share any minute.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start < o.End && o.Start < w.End
}

// Minutes returns the window length.
func (w TimeWindow) Minutes() int { return int(w.End - w.Start) }

// String renders the window as HH:MM-HH:MM.
func (w TimeWindow) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// SlotState is the bookable status of one slot instance.
type SlotState string

const (
	SlotFree   SlotState = "free"
	SlotHeld   SlotState = "held"
	SlotBooked SlotState = "booked"
)

// InstanceKey uniquely addresses a bookable slot instance. It is the unit of
// exclusivity: at most one active booking may reference a key.
type InstanceKey struct {
	StationID string `json:"station_id"`
	SlotID    string `json:"slot_id"`
	Date      string `json:"date"`
	Start     Clock  `json:"start"`
}

// String renders the key for logs.
func (k InstanceKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.StationID, k.SlotID, k.Date, k.Start)
}

// SlotInstance is a slot bound to a concrete date and window, the actual
// bookable unit presented to callers.
type SlotInstance struct {
	StationID string        `json:"station_id"`
	SlotID    string        `json:"slot_id"`
	Level     ChargingLevel `json:"level"`
	PowerKW   float64       `json:"power_kw"`
	Date      string        `json:"date"`
	Window    TimeWindow    `json:"window"`
	State     SlotState     `json:"state"`
}

// Key returns the instance identity used by the ledger.
func (s SlotInstance) Key() InstanceKey {
	return InstanceKey{StationID: s.StationID, SlotID: s.SlotID, Date: s.Date, Start: s.Window.Start}
}
