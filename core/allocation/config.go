package allocation

import "fmt"

// Config defines engine timing parameters loaded from configuration.
type Config struct {
	// HoldMinutes is how long a waitlist offer stays confirmable.
	HoldMinutes int `json:"hold_minutes"`
	// SweepSeconds is the period of the expiration sweep ticker.
	SweepSeconds int `json:"sweep_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.HoldMinutes == 0 {
		c.HoldMinutes = 15
	}
	if c.SweepSeconds == 0 {
		c.SweepSeconds = 30
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.HoldMinutes <= 0 {
		return fmt.Errorf("hold_minutes must be positive")
	}
	if c.SweepSeconds <= 0 {
		return fmt.Errorf("sweep_seconds must be positive")
	}
	return nil
}
