package config

import "fmt"

// Validate checks declared invariants without mutating cfg, mirroring
// the reference config package's validate-doesn't-normalize split.
func Validate(cfg *Config) error {
	if cfg.Nanonis.HostIP == "" {
		return fmt.Errorf("nanonis.host_ip is required")
	}
	if len(cfg.Nanonis.ControlPorts) == 0 {
		return fmt.Errorf("nanonis.control_ports must have at least one entry")
	}

	if cfg.DataAcquisition.DataPort <= 0 {
		return fmt.Errorf("data_acquisition.data_port must be positive")
	}
	if cfg.DataAcquisition.SampleRate <= 0 {
		return fmt.Errorf("data_acquisition.sample_rate must be positive")
	}
	if len(cfg.DataAcquisition.Channels) > 24 {
		return fmt.Errorf("data_acquisition.channels supports at most 24 entries, got %d", len(cfg.DataAcquisition.Channels))
	}

	if len(cfg.TipPrep.SharpTipBounds) != 2 {
		return fmt.Errorf("tip_prep.sharp_tip_bounds must have exactly 2 entries")
	}
	if cfg.TipPrep.SharpTipBounds[0] >= cfg.TipPrep.SharpTipBounds[1] {
		return fmt.Errorf("tip_prep.sharp_tip_bounds must satisfy lo < hi")
	}
	if cfg.TipPrep.MaxCycles <= 0 {
		return fmt.Errorf("tip_prep.max_cycles must be positive")
	}
	if cfg.TipPrep.PrimarySignalIndex < 0 || cfg.TipPrep.PrimarySignalIndex > 127 {
		return fmt.Errorf("tip_prep.primary_signal_index must be in [0,127]")
	}

	if cfg.TipPrep.Stability.CheckStability {
		s := cfg.TipPrep.Stability
		if len(s.BiasRangeV) != 2 {
			return fmt.Errorf("tip_prep.stability.bias_range must have exactly 2 entries")
		}
		if s.BiasSteps < 2 {
			return fmt.Errorf("tip_prep.stability.bias_steps must be >= 2")
		}
		if s.StepPeriodMs <= 0 {
			return fmt.Errorf("tip_prep.stability.step_period_ms must be positive")
		}
		switch s.PolarityMode {
		case "positive", "negative", "both":
		default:
			return fmt.Errorf("tip_prep.stability.polarity_mode must be one of positive|negative|both, got %q", s.PolarityMode)
		}
	}

	switch cfg.PulseMethod.Type {
	case "fixed":
		if cfg.PulseMethod.Voltage <= 0 {
			return fmt.Errorf("pulse_method.voltage must be positive for type=fixed")
		}
	case "stepping":
		if len(cfg.PulseMethod.VoltageBounds) != 2 {
			return fmt.Errorf("pulse_method.voltage_bounds must have exactly 2 entries for type=stepping")
		}
		if cfg.PulseMethod.VoltageSteps < 1 {
			return fmt.Errorf("pulse_method.voltage_steps must be >= 1 for type=stepping")
		}
	case "linear":
		if len(cfg.PulseMethod.VoltageBounds) != 2 {
			return fmt.Errorf("pulse_method.voltage_bounds must have exactly 2 entries for type=linear")
		}
		if len(cfg.PulseMethod.LinearClamp) != 2 {
			return fmt.Errorf("pulse_method.linear_clamp must have exactly 2 entries for type=linear")
		}
	default:
		return fmt.Errorf("pulse_method.type must be one of fixed|stepping|linear, got %q", cfg.PulseMethod.Type)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("logging.level must be one of debug|info|warn|error, got %q", cfg.Logging.Level)
	}

	return nil
}
