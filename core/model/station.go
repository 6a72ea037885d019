package model

import (
	"fmt"
	"time"
)

// ChargingLevel identifies the power class of a charging point.
type ChargingLevel string

const (
	LevelL1 ChargingLevel = "L1"
	LevelL2 ChargingLevel = "L2"
	LevelL3 ChargingLevel = "L3"
)

// ParseLevel converts a string into a ChargingLevel.
func ParseLevel(s string) (ChargingLevel, error) {
	switch ChargingLevel(s) {
	case LevelL1, LevelL2, LevelL3:
		return ChargingLevel(s), nil
	}
	return "", fmt.Errorf("unknown charging level %q", s)
}

// SlotDefinition describes one physical charging point at a station.
type SlotDefinition struct {
	ID      string        `json:"id"`
	Level   ChargingLevel `json:"level"`
	PowerKW float64       `json:"power_kw"`
}

// Station is a charging site with a fixed set of slots. Stations are
// immutable after registration.
type Station struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	Latitude    float64          `json:"lat"`
	Longitude   float64          `json:"lng"`
	PricePerKWh float64          `json:"price_per_kwh"`
	Hours       OperatingHours   `json:"hours"`
	Slots       []SlotDefinition `json:"slots"`
}

// Slot returns the definition for the given slot id.
func (s Station) Slot(id string) (SlotDefinition, bool) {
	for _, d := range s.Slots {
		if d.ID == id {
			return d, true
		}
	}
	return SlotDefinition{}, false
}

// Levels returns the distinct charging levels offered by the station.
func (s Station) Levels() []ChargingLevel {
	seen := map[ChargingLevel]bool{}
	var out []ChargingLevel
	for _, d := range s.Slots {
		if !seen[d.Level] {
			seen[d.Level] = true
			out = append(out, d.Level)
		}
	}
	return out
}

// Validate checks that the station definition is sound.
func (s Station) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("station id is required")
	}
	if len(s.Slots) == 0 {
		return fmt.Errorf("station %s has no slots", s.ID)
	}
	seen := map[string]bool{}
	for _, d := range s.Slots {
		if d.ID == "" {
			return fmt.Errorf("station %s: slot id is required", s.ID)
		}
		if seen[d.ID] {
			return fmt.Errorf("station %s: duplicate slot id %s", s.ID, d.ID)
		}
		seen[d.ID] = true
		if _, err := ParseLevel(string(d.Level)); err != nil {
			return fmt.Errorf("station %s slot %s: %w", s.ID, d.ID, err)
		}
		if d.PowerKW <= 0 {
			return fmt.Errorf("station %s slot %s: power must be positive", s.ID, d.ID)
		}
	}
	return s.Hours.Validate()
}

// OperatingHours delimits the bookable part of a day. Close is exclusive.
type OperatingHours struct {
	Open  Clock `json:"open"`
	Close Clock `json:"close"`
}

// Validate checks the hours are a non-empty forward interval.
func (h OperatingHours) Validate() error {
	if h.Open < 0 || h.Close > MinutesPerDay {
		return fmt.Errorf("operating hours out of range")
	}
	if h.Close <= h.Open {
		return fmt.Errorf("closing time must be after opening time")
	}
	return nil
}

// DateLayout is the wire format for civil dates.
const DateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD civil date string.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.Format(DateLayout), nil
}
