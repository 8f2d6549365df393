package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradebook/fees"
)

// Config is the complete tradebook configuration: where the journal lives
// and how each broker charges commission.
type Config struct {
	Journal JournalConfig           `json:"journal" yaml:"journal"`
	Brokers map[string]BrokerConfig `json:"brokers,omitempty" yaml:"brokers,omitempty"`
}

// JournalConfig locates the SQLite ledger database.
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// BrokerConfig is one broker's commission schedule: a default rate plus
// per-instrument overrides. Rates are per leg (entry and exit each).
type BrokerConfig struct {
	PerUnit         float64                     `json:"per_unit,omitempty" yaml:"per_unit,omitempty"`
	PercentNotional float64                     `json:"percent_notional,omitempty" yaml:"percent_notional,omitempty"`
	Instruments     map[string]InstrumentConfig `json:"instruments,omitempty" yaml:"instruments,omitempty"`
}

// InstrumentConfig overrides the broker default for one instrument.
type InstrumentConfig struct {
	PerUnit         float64 `json:"per_unit,omitempty" yaml:"per_unit,omitempty"`
	PercentNotional float64 `json:"percent_notional,omitempty" yaml:"percent_notional,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	for broker, bc := range c.Brokers {
		if bc.PerUnit < 0 || bc.PercentNotional < 0 {
			return fmt.Errorf("broker %s: commission rates must not be negative", broker)
		}
		for inst, ic := range bc.Instruments {
			if ic.PerUnit < 0 || ic.PercentNotional < 0 {
				return fmt.Errorf("broker %s instrument %s: commission rates must not be negative", broker, inst)
			}
		}
	}
	return nil
}

// FeeSchedule builds the calculator the consolidation engine uses.
func (c *Config) FeeSchedule() *fees.Schedule {
	s := &fees.Schedule{Brokers: make(map[string]fees.BrokerSchedule, len(c.Brokers))}
	for broker, bc := range c.Brokers {
		bs := fees.BrokerSchedule{
			LegRate: fees.LegRate{
				PerUnit:         decimal.NewFromFloat(bc.PerUnit),
				PercentNotional: decimal.NewFromFloat(bc.PercentNotional),
			},
		}
		if len(bc.Instruments) > 0 {
			bs.Instruments = make(map[string]fees.LegRate, len(bc.Instruments))
			for inst, ic := range bc.Instruments {
				bs.Instruments[inst] = fees.LegRate{
					PerUnit:         decimal.NewFromFloat(ic.PerUnit),
					PercentNotional: decimal.NewFromFloat(ic.PercentNotional),
				}
			}
		}
		s.Brokers[broker] = bs
	}
	return s
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Journal: JournalConfig{DBPath: "./tradebook.sqlite"},
		Brokers: map[string]BrokerConfig{},
	}
}
