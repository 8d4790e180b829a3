package config

// Normalize applies defaults the way the reference config package
// does in a separate pass after loading and before validation, so
// Validate only ever has to check fully-defaulted values.
func Normalize(cfg *Config) {
	if cfg.DataAcquisition.SampleRate == 0 {
		cfg.DataAcquisition.SampleRate = 2000
	}

	if cfg.Signals.TTLSec == 0 {
		cfg.Signals.TTLSec = 300
	}

	if cfg.TipPrep.VerifyCount == 0 {
		cfg.TipPrep.VerifyCount = 3
	}
	if cfg.TipPrep.MaxDurationSecs == 0 {
		cfg.TipPrep.MaxDurationSecs = 3600
	}

	if cfg.PulseMethod.Type == "" {
		cfg.PulseMethod.Type = "stepping"
		if len(cfg.PulseMethod.VoltageBounds) == 0 {
			cfg.PulseMethod.VoltageBounds = []float32{2.0, 6.0}
		}
		if cfg.PulseMethod.VoltageSteps == 0 {
			cfg.PulseMethod.VoltageSteps = 4
		}
		if cfg.PulseMethod.CyclesBeforeStep == 0 {
			cfg.PulseMethod.CyclesBeforeStep = 2
		}
		if cfg.PulseMethod.Threshold == 0 {
			cfg.PulseMethod.Threshold = 0.1
		}
		if cfg.PulseMethod.Polarity == "" {
			cfg.PulseMethod.Polarity = "absolute"
		}
	}

	if cfg.TipPrep.Stability.CheckStability && cfg.TipPrep.Stability.PolarityMode == "" {
		cfg.TipPrep.Stability.PolarityMode = "both"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.LogPath == "" {
		cfg.Logging.LogPath = "./logs"
	}
}
