// Package config loads the service configuration from YAML or JSON files
// with environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/evgrid/chargeq/core/allocation"
	"github.com/evgrid/chargeq/core/catalog"
	"github.com/evgrid/chargeq/core/metrics"
	"github.com/evgrid/chargeq/infra/mqtt"
)

type Config struct {
	HTTP     HTTPConfig        `json:"http"`
	Engine   allocation.Config `json:"engine"`
	Catalog  catalog.Config    `json:"catalog"`
	Stations []StationConfig   `json:"stations"`
	Metrics  metrics.Config    `json:"metrics"`
	MQTT     MQTTConfig        `json:"mqtt"`
	History  HistoryConfig     `json:"history"`
}

// HTTPConfig defines the API server settings.
type HTTPConfig struct {
	// Addr is the listen address of the API server.
	Addr string `json:"addr"`
	// KPIToken guards the station KPI endpoint when non-empty.
	KPIToken string `json:"kpi_token"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// MQTTConfig enables the MQTT notification transport.
type MQTTConfig struct {
	Enabled bool        `json:"enabled"`
	Client  mqtt.Config `json:"client"`
}

// Validate checks mandatory fields.
func (c MQTTConfig) Validate() error {
	if c.Enabled && c.Client.Broker == "" {
		return fmt.Errorf("mqtt broker is required when mqtt is enabled")
	}
	return nil
}

// HistoryConfig defines the booking archive settings.
type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *HistoryConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "chargeq_history.db"
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("CQ_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "cq_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.Engine.SetDefaults()
	cfg.Catalog.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.History.SetDefaults()
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Catalog.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Stations) == 0 {
		return nil, fmt.Errorf("at least one station is required")
	}
	if _, err := cfg.BuildStations(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
