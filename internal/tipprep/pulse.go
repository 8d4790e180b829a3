package tipprep

// Polarity selects the sign convention a pulse strategy applies.
type Polarity int

const (
	PolarityPositive Polarity = iota
	PolarityNegative
	PolarityBoth
)

func (p Polarity) sign(cycle int) float32 {
	switch p {
	case PolarityPositive:
		return 1
	case PolarityNegative:
		return -1
	default: // PolarityBoth alternates per pulse
		if cycle%2 == 0 {
			return 1
		}
		return -1
	}
}

// PulseStrategy is the closed set of ways the engine picks the next
// pulse voltage, mirroring the reference implementation's
// Fixed/Stepping/Linear PulseMethod enum.
type PulseStrategy interface {
	NextVoltage(cycle int, lastSignal, deltaSinceLastPulse float32) float32
}

// FixedPulse always returns the same magnitude at the configured
// polarity.
type FixedPulse struct {
	Voltage  float32
	Polarity Polarity
}

func (f FixedPulse) NextVoltage(cycle int, lastSignal, delta float32) float32 {
	return f.Voltage * f.Polarity.sign(cycle)
}

// SteppingPulse starts at Bounds.Lo and advances one of Steps discrete
// levels toward Bounds.Hi after CyclesBeforeStep consecutive pulses
// whose effect (|delta|) stayed under Threshold.
type SteppingPulse struct {
	Bounds          [2]float32
	Steps           int
	CyclesBeforeStep int
	Threshold       float32
	Polarity        Polarity

	currentStep      int
	ineffectiveCount int
}

func NewSteppingPulse(lo, hi float32, steps, cyclesBeforeStep int, threshold float32, polarity Polarity) *SteppingPulse {
	return &SteppingPulse{
		Bounds:           [2]float32{lo, hi},
		Steps:            steps,
		CyclesBeforeStep: cyclesBeforeStep,
		Threshold:        threshold,
		Polarity:         polarity,
	}
}

func (s *SteppingPulse) NextVoltage(cycle int, lastSignal, delta float32) float32 {
	if delta < 0 {
		delta = -delta
	}
	if delta < s.Threshold {
		s.ineffectiveCount++
	} else {
		s.ineffectiveCount = 0
		s.currentStep = 0
	}

	if s.ineffectiveCount >= s.CyclesBeforeStep && s.currentStep < s.Steps-1 {
		s.currentStep++
		s.ineffectiveCount = 0
	}

	span := s.Bounds[1] - s.Bounds[0]
	frac := float32(0)
	if s.Steps > 1 {
		frac = float32(s.currentStep) / float32(s.Steps-1)
	}
	voltage := s.Bounds[0] + span*frac
	if voltage > s.Bounds[1] {
		voltage = s.Bounds[1]
	}
	return voltage * s.Polarity.sign(cycle)
}

// LinearPulse maps the current primary signal linearly onto
// VoltageBounds, clamped to Clamp.
type LinearPulse struct {
	Clamp         [2]float32
	VoltageBounds [2]float32
	Polarity      Polarity
}

func (l LinearPulse) NextVoltage(cycle int, lastSignal, delta float32) float32 {
	v := lastSignal
	if v < l.Clamp[0] {
		v = l.Clamp[0]
	}
	if v > l.Clamp[1] {
		v = l.Clamp[1]
	}
	clampSpan := l.Clamp[1] - l.Clamp[0]
	frac := float32(0)
	if clampSpan != 0 {
		frac = (v - l.Clamp[0]) / clampSpan
	}
	voltSpan := l.VoltageBounds[1] - l.VoltageBounds[0]
	voltage := l.VoltageBounds[0] + voltSpan*frac
	return voltage * l.Polarity.sign(cycle)
}
