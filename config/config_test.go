package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "./tradebook.sqlite", cfg.Journal.DBPath)
}

func TestYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Brokers = map[string]BrokerConfig{
		"ibkr": {
			PerUnit: 0.5,
			Instruments: map[string]InstrumentConfig{
				"option": {PerUnit: 0.25},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "tradebook.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Journal.DBPath, loaded.Journal.DBPath)
	require.Contains(t, loaded.Brokers, "ibkr")
	assert.Equal(t, 0.5, loaded.Brokers["ibkr"].PerUnit)
	assert.Equal(t, 0.25, loaded.Brokers["ibkr"].Instruments["option"].PerUnit)
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Journal.DBPath = "/tmp/ledger.db"

	path := filepath.Join(t.TempDir(), "tradebook.json")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ledger.db", loaded.Journal.DBPath)
}

func TestLoadRejectsMissingDBPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  db_path: \"\"\n"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestValidateRejectsNegativeRates(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Brokers = map[string]BrokerConfig{
		"ibkr": {PerUnit: -1},
	}
	assert.Error(t, cfg.Validate())
}

func TestFeeScheduleMapping(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Brokers = map[string]BrokerConfig{
		"ibkr": {
			PercentNotional: 0.02,
			Instruments: map[string]InstrumentConfig{
				"future": {PerUnit: 1.2},
			},
		},
	}

	s := cfg.FeeSchedule()
	require.Contains(t, s.Brokers, "ibkr")
	assert.True(t, s.Brokers["ibkr"].PercentNotional.Equal(decimal.NewFromFloat(0.02)))
	assert.True(t, s.Brokers["ibkr"].Instruments["future"].PerUnit.Equal(decimal.NewFromFloat(1.2)))
}
