// Package scenarios drives the allocation engine through YAML-described
// booking sequences and checks the resulting state.
package scenarios

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/evgrid/chargeq/core/model"
)

type SlotDef struct {
	ID      string  `yaml:"id"`
	Level   string  `yaml:"level"`
	PowerKW float64 `yaml:"power_kw"`
}

type StationDef struct {
	ID    string    `yaml:"id"`
	Name  string    `yaml:"name"`
	Open  string    `yaml:"open"`
	Close string    `yaml:"close"`
	Slots []SlotDef `yaml:"slots"`
}

func (s StationDef) ToModel() (model.Station, error) {
	open, err := model.ParseClock(s.Open)
	if err != nil {
		return model.Station{}, fmt.Errorf("station %s open: %w", s.ID, err)
	}
	closeAt, err := model.ParseClock(s.Close)
	if err != nil {
		return model.Station{}, fmt.Errorf("station %s close: %w", s.ID, err)
	}
	st := model.Station{ID: s.ID, Name: s.Name, Hours: model.OperatingHours{Open: open, Close: closeAt}}
	for _, d := range s.Slots {
		level, err := model.ParseLevel(d.Level)
		if err != nil {
			return model.Station{}, err
		}
		st.Slots = append(st.Slots, model.SlotDefinition{ID: d.ID, Level: level, PowerKW: d.PowerKW})
	}
	return st, nil
}

// Step is one action in a scenario. Action is request, cancel, confirm,
// advance or sweep.
type Step struct {
	Action    string `yaml:"action"`
	Requester string `yaml:"requester,omitempty"`
	SoC       int    `yaml:"soc,omitempty"`
	Level     string `yaml:"level,omitempty"`
	Window    string `yaml:"window,omitempty"`
	Minutes   int    `yaml:"minutes,omitempty"`

	// Expect is the expected outcome of the step: confirmed or waitlisted
	// for request, booked or expired for confirm.
	Expect         string `yaml:"expect,omitempty"`
	ExpectPosition int    `yaml:"expect_position,omitempty"`
}

// ParseWindow converts an "HH:MM-HH:MM" string. Empty means any window.
func (s Step) ParseWindow() (*model.TimeWindow, error) {
	if s.Window == "" {
		return nil, nil
	}
	parts := strings.SplitN(s.Window, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid window %q", s.Window)
	}
	start, err := model.ParseClock(parts[0])
	if err != nil {
		return nil, err
	}
	end, err := model.ParseClock(parts[1])
	if err != nil {
		return nil, err
	}
	return &model.TimeWindow{Start: start, End: end}, nil
}

type Expected struct {
	Bookings int `yaml:"bookings"`
	Waiting  int `yaml:"waiting"`
	Notified int `yaml:"notified"`
}

type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Date        string     `yaml:"date"`
	Station     StationDef `yaml:"station"`
	Steps       []Step     `yaml:"steps"`
	Expected    Expected   `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
