package config

import (
	"fmt"

	"github.com/evgrid/chargeq/core/model"
)

// StationConfig declares one charging site in the configuration file.
// Operating hours use HH:MM strings, converted to clock offsets on build.
type StationConfig struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Latitude    float64      `json:"lat"`
	Longitude   float64      `json:"lng"`
	PricePerKWh float64      `json:"price_per_kwh"`
	Open        string       `json:"open"`
	Close       string       `json:"close"`
	Slots       []SlotConfig `json:"slots"`
}

// SlotConfig declares one charging point.
type SlotConfig struct {
	ID      string  `json:"id"`
	Level   string  `json:"level"`
	PowerKW float64 `json:"power_kw"`
}

// Station converts the declaration into the domain model.
func (c StationConfig) Station() (model.Station, error) {
	open, err := model.ParseClock(c.Open)
	if err != nil {
		return model.Station{}, fmt.Errorf("station %s open: %w", c.ID, err)
	}
	closeAt, err := model.ParseClock(c.Close)
	if err != nil {
		return model.Station{}, fmt.Errorf("station %s close: %w", c.ID, err)
	}
	st := model.Station{
		ID:          c.ID,
		Name:        c.Name,
		Address:     c.Address,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		PricePerKWh: c.PricePerKWh,
		Hours:       model.OperatingHours{Open: open, Close: closeAt},
	}
	for _, s := range c.Slots {
		level, err := model.ParseLevel(s.Level)
		if err != nil {
			return model.Station{}, fmt.Errorf("station %s slot %s: %w", c.ID, s.ID, err)
		}
		st.Slots = append(st.Slots, model.SlotDefinition{ID: s.ID, Level: level, PowerKW: s.PowerKW})
	}
	if err := st.Validate(); err != nil {
		return model.Station{}, err
	}
	return st, nil
}

// BuildStations converts every declared station.
func (c *Config) BuildStations() ([]model.Station, error) {
	out := make([]model.Station, 0, len(c.Stations))
	for _, sc := range c.Stations {
		st, err := sc.Station()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
