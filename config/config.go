// Package config loads the TOML-encoded bootstrap parameters for a
// reservectl deployment: per-reserve rate curves and the listen/log
// settings for the host process.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level bootstrap file read by cmd/reservectl.
type Config struct {
	ListenAddress  string                  `toml:"ListenAddress"`
	Environment    string                  `toml:"Environment"`
	MetricsAddress string                  `toml:"MetricsAddress"`
	Reserves       map[string]ReserveCurve `toml:"Reserves"`
}

// ReserveCurve mirrors ratestrategy.Parameters in a TOML-friendly shape.
// Ratios are expressed in basis points (0-10000) rather than ray scale so
// operators do not have to hand-compute 27-digit integers.
type ReserveCurve struct {
	OptimalUsageRatioBps             uint64 `toml:"OptimalUsageRatioBps"`
	OptimalStableToTotalDebtRatioBps uint64 `toml:"OptimalStableToTotalDebtRatioBps"`
	BaseVariableBorrowRateBps        uint64 `toml:"BaseVariableBorrowRateBps"`
	VariableRateSlope1Bps            uint64 `toml:"VariableRateSlope1Bps"`
	VariableRateSlope2Bps            uint64 `toml:"VariableRateSlope2Bps"`
	StableRateSlope1Bps              uint64 `toml:"StableRateSlope1Bps"`
	StableRateSlope2Bps              uint64 `toml:"StableRateSlope2Bps"`
	BaseStableRateOffsetBps          uint64 `toml:"BaseStableRateOffsetBps"`
	StableRateExcessOffsetBps        uint64 `toml:"StableRateExcessOffsetBps"`
	ReserveFactorBps                 uint64 `toml:"ReserveFactorBps"`
}

// Load reads the configuration at path, writing a default file in its
// place if none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8090"
	}
	if cfg.MetricsAddress == "" {
		cfg.MetricsAddress = ":9090"
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:  ":8090",
		Environment:    "dev",
		MetricsAddress: ":9090",
		Reserves: map[string]ReserveCurve{
			"default": {
				OptimalUsageRatioBps:             8000,
				OptimalStableToTotalDebtRatioBps: 2000,
				BaseVariableBorrowRateBps:        0,
				VariableRateSlope1Bps:            400,
				VariableRateSlope2Bps:            7500,
				StableRateSlope1Bps:              200,
				StableRateSlope2Bps:              7500,
				BaseStableRateOffsetBps:          200,
				StableRateExcessOffsetBps:        2500,
				ReserveFactorBps:                 1000,
			},
		},
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: encode %s: %w", path, err)
	}
	return cfg, nil
}
