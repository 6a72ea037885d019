// Package catalog holds the per-station inventory of bookable slot instances.
// Windows are a pure function of the slot definition and operating hours, so
// availability queries and ledger validation always agree on the grid.
package catalog

import (
	"fmt"
	"sort"
	"time"

	"github.com/evgrid/chargeq/core/model"
)

// Occupancy reports the current state of a slot instance. Implemented by the
// reservation ledger; the catalog itself stores no booking state.
type Occupancy interface {
	State(key model.InstanceKey) model.SlotState
}

// Config defines the grid parameters.
type Config struct {
	// GranularityMinutes is the grid step windows must snap to.
	GranularityMinutes int `json:"granularity_minutes"`
	// HorizonDays bounds how far ahead a date is bookable, today included.
	HorizonDays int `json:"horizon_days"`
	// SessionMinutes maps a charging level to its window length. Faster
	// levels charge in shorter sessions.
	SessionMinutes map[model.ChargingLevel]int `json:"session_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.GranularityMinutes == 0 {
		c.GranularityMinutes = 30
	}
	if c.HorizonDays == 0 {
		c.HorizonDays = 7
	}
	if c.SessionMinutes == nil {
		c.SessionMinutes = map[model.ChargingLevel]int{
			model.LevelL1: 240,
			model.LevelL2: 120,
			model.LevelL3: 60,
		}
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.GranularityMinutes <= 0 || c.GranularityMinutes > model.MinutesPerDay {
		return fmt.Errorf("granularity_minutes out of range")
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("horizon_days must be positive")
	}
	for lvl, m := range c.SessionMinutes {
		if m <= 0 || m%c.GranularityMinutes != 0 {
			return fmt.Errorf("session length for %s must be a positive multiple of the granularity", lvl)
		}
	}
	return nil
}

// Catalog indexes registered stations and derives their slot instances.
type Catalog struct {
	cfg      Config
	stations map[string]model.Station
	order    []string
	occ      Occupancy
	now      func() time.Time
}

// New builds a catalog over the given stations. The now function feeds the
// booking horizon check; nil means time.Now.
func New(cfg Config, stations []model.Station, occ Occupancy, now func() time.Time) (*Catalog, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	c := &Catalog{cfg: cfg, stations: make(map[string]model.Station, len(stations)), occ: occ, now: now}
	for _, st := range stations {
		if err := st.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.stations[st.ID]; dup {
			return nil, fmt.Errorf("duplicate station id %s", st.ID)
		}
		c.stations[st.ID] = st
		c.order = append(c.order, st.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// Station returns a registered station.
func (c *Catalog) Station(id string) (model.Station, error) {
	st, ok := c.stations[id]
	if !ok {
		return model.Station{}, fmt.Errorf("station %s: %w", id, model.ErrNotFound)
	}
	return st, nil
}

// Stations lists all registered stations in id order.
func (c *Catalog) Stations() []model.Station {
	out := make([]model.Station, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.stations[id])
	}
	return out
}

// CheckDate verifies the date lies within the bookable horizon.
func (c *Catalog) CheckDate(date string) error {
	d, err := model.ParseDate(date)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrNotFound, err)
	}
	today := c.now().Format(model.DateLayout)
	last := c.now().AddDate(0, 0, c.cfg.HorizonDays-1).Format(model.DateLayout)
	if d < today || d > last {
		return fmt.Errorf("date %s outside bookable horizon: %w", d, model.ErrNotFound)
	}
	return nil
}

// GenerateWindows derives the bookable windows for one slot definition on
// any date. The result is a deterministic back-to-back grid inside the
// station's operating hours; identical input yields identical output.
func (c *Catalog) GenerateWindows(def model.SlotDefinition, hours model.OperatingHours) []model.TimeWindow {
	length := model.Clock(c.cfg.SessionMinutes[def.Level])
	if length == 0 {
		length = model.Clock(c.cfg.GranularityMinutes)
	}
	var out []model.TimeWindow
	for start := hours.Open; start+length <= hours.Close; start += length {
		out = append(out, model.TimeWindow{Start: start, End: start + length})
	}
	return out
}

// Instances returns every slot instance of the station on the date with its
// current state, ordered by (slot id, start). Level "" means all levels.
func (c *Catalog) Instances(stationID, date string, level model.ChargingLevel) ([]model.SlotInstance, error) {
	st, err := c.Station(stationID)
	if err != nil {
		return nil, err
	}
	if err := c.CheckDate(date); err != nil {
		return nil, err
	}
	var out []model.SlotInstance
	for _, def := range st.Slots {
		if level != "" && def.Level != level {
			continue
		}
		for _, w := range c.GenerateWindows(def, st.Hours) {
			inst := model.SlotInstance{
				StationID: st.ID,
				SlotID:    def.ID,
				Level:     def.Level,
				PowerKW:   def.PowerKW,
				Date:      date,
				Window:    w,
				State:     model.SlotFree,
			}
			if c.occ != nil {
				inst.State = c.occ.State(inst.Key())
			}
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SlotID != out[j].SlotID {
			return out[i].SlotID < out[j].SlotID
		}
		return out[i].Window.Start < out[j].Window.Start
	})
	return out, nil
}

// ListAvailable returns the free instances of the station on the date,
// ordered by (slot id, start).
func (c *Catalog) ListAvailable(stationID, date string, level model.ChargingLevel) ([]model.SlotInstance, error) {
	all, err := c.Instances(stationID, date, level)
	if err != nil {
		return nil, err
	}
	free := all[:0]
	for _, inst := range all {
		if inst.State == model.SlotFree {
			free = append(free, inst)
		}
	}
	return free, nil
}

// Candidates returns the free instances matching a request, in first-fit
// order (earliest start, then slot id). A non-nil window restricts the
// result to instances with exactly that window.
func (c *Catalog) Candidates(stationID, date string, level model.ChargingLevel, window *model.TimeWindow) ([]model.SlotInstance, error) {
	free, err := c.ListAvailable(stationID, date, level)
	if err != nil {
		return nil, err
	}
	var out []model.SlotInstance
	for _, inst := range free {
		if window != nil && inst.Window != *window {
			continue
		}
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Window.Start != out[j].Window.Start {
			return out[i].Window.Start < out[j].Window.Start
		}
		return out[i].SlotID < out[j].SlotID
	})
	return out, nil
}

// ValidateWindow checks that a requested window snaps to the grid of some
// slot of the requested level and lies inside operating hours.
func (c *Catalog) ValidateWindow(stationID string, level model.ChargingLevel, window model.TimeWindow) error {
	st, err := c.Station(stationID)
	if err != nil {
		return err
	}
	if !window.Valid() {
		return fmt.Errorf("%w: %s", model.ErrInvalidWindow, window)
	}
	for _, def := range st.Slots {
		if level != "" && def.Level != level {
			continue
		}
		for _, w := range c.GenerateWindows(def, st.Hours) {
			if w == window {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s does not snap to the %s grid at %s", model.ErrInvalidWindow, window, level, stationID)
}

// IsFree reports whether the identified instance is currently free. It is a
// pure query delegating to the ledger state.
func (c *Catalog) IsFree(key model.InstanceKey) bool {
	if c.occ == nil {
		return true
	}
	return c.occ.State(key) == model.SlotFree
}
