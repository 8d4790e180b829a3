// Package config loads and validates the YAML configuration that
// drives the control client, telemetry stream, signal registry, and
// tip-preparation engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type NanonisConfig struct {
	HostIP       string `yaml:"host_ip"`
	ControlPorts []int  `yaml:"control_ports"`
}

type DataAcquisitionConfig struct {
	DataPort   int   `yaml:"data_port"`
	SampleRate int   `yaml:"sample_rate"`
	Channels   []int `yaml:"channels"`
}

type SignalSeed struct {
	Name       string `yaml:"name"`
	Index      int32  `yaml:"index"`
	LoggerSlot *int32 `yaml:"logger_slot"`
}

type SignalsConfig struct {
	Seeds  []SignalSeed `yaml:"seeds"`
	TTLSec int          `yaml:"ttl_seconds"`
}

type StabilityConfig struct {
	CheckStability         bool      `yaml:"check_stability"`
	StableTipAllowedChange float32   `yaml:"stable_tip_allowed_change"`
	BiasRangeV             []float32 `yaml:"bias_range"`
	BiasSteps              int       `yaml:"bias_steps"`
	StepPeriodMs           int       `yaml:"step_period_ms"`
	MaxDurationSecs        int       `yaml:"max_duration_secs"`
	PolarityMode           string    `yaml:"polarity_mode"`
}

type PulseMethodConfig struct {
	Type             string    `yaml:"type"`
	Voltage          float32   `yaml:"voltage"`
	VoltageBounds    []float32 `yaml:"voltage_bounds"`
	VoltageSteps     int       `yaml:"voltage_steps"`
	CyclesBeforeStep int       `yaml:"cycles_before_step"`
	Threshold        float32   `yaml:"threshold"`
	Polarity         string    `yaml:"polarity"`
	LinearClamp      []float32 `yaml:"linear_clamp"`
}

type TipPrepConfig struct {
	SharpTipBounds     []float32       `yaml:"sharp_tip_bounds"`
	MaxCycles          int             `yaml:"max_cycles"`
	MaxDurationSecs    int             `yaml:"max_duration_secs"`
	InitialBiasV       float32         `yaml:"initial_bias_v"`
	InitialZSetpointA  float32         `yaml:"initial_z_setpoint_a"`
	VerifyCount        int             `yaml:"verify_count"`
	PrimarySignalIndex int32           `yaml:"primary_signal_index"`
	RepositionDX       float64         `yaml:"reposition_dx"`
	RepositionDY       float64         `yaml:"reposition_dy"`
	RepositionDZ       float64         `yaml:"reposition_dz"`
	Stability          StabilityConfig `yaml:"stability"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	ActionLogging bool   `yaml:"action_logging"`
	LogPath       string `yaml:"log_path"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the root of config.yaml.
type Config struct {
	Nanonis         NanonisConfig         `yaml:"nanonis"`
	DataAcquisition DataAcquisitionConfig `yaml:"data_acquisition"`
	Signals         SignalsConfig         `yaml:"signals"`
	TipPrep         TipPrepConfig         `yaml:"tip_prep"`
	PulseMethod     PulseMethodConfig     `yaml:"pulse_method"`
	Logging         LoggingConfig         `yaml:"logging"`
	Metrics         MetricsConfig         `yaml:"metrics"`
}

// Load reads path, decodes it as YAML, applies TIPPREP_ environment
// overrides, normalizes, then validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg, os.Environ())
	Normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides implements the TIPPREP_SECTION__FIELD convention
// for the leaves this module actually reads at startup, mirroring the
// reference implementation's own RUSTY_TIP__ environment scheme without
// attempting full reflective coverage of every field.
func applyEnvOverrides(cfg *Config, environ []string) {
	const prefix = "TIPPREP_"
	for _, kv := range environ {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, val := parts[0], parts[1]
		path := strings.Join(strings.Split(strings.TrimPrefix(key, prefix), "__"), "__")

		switch path {
		case "NANONIS__HOST_IP":
			cfg.Nanonis.HostIP = val
		case "DATA_ACQUISITION__DATA_PORT":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.DataAcquisition.DataPort = n
			}
		case "TIP_PREP__MAX_CYCLES":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.TipPrep.MaxCycles = n
			}
		case "LOGGING__LEVEL":
			cfg.Logging.Level = val
		case "METRICS__LISTEN_ADDR":
			cfg.Metrics.ListenAddr = val
		}
	}
}
