package tipprep

import "testing"

func TestSteppingPulseEscalatesAfterIneffectiveCycles(t *testing.T) {
	p := NewSteppingPulse(2, 6, 4, 2, 0.1, PolarityPositive)

	v1 := p.NextVoltage(1, 0, 0.05) // ineffective #1
	if v1 != 2 {
		t.Fatalf("expected first pulse at 2V, got %v", v1)
	}
	v2 := p.NextVoltage(2, 0, 0.05) // ineffective #2 -> step
	if v2 <= v1 {
		t.Fatalf("expected escalation after 2 ineffective cycles, got %v -> %v", v1, v2)
	}
}

func TestFixedPulseAppliesPolaritySign(t *testing.T) {
	p := FixedPulse{Voltage: 4.0, Polarity: PolarityNegative}
	if v := p.NextVoltage(0, 0, 0); v != -4.0 {
		t.Fatalf("expected -4.0, got %v", v)
	}
}

func TestBothPolarityAlternates(t *testing.T) {
	p := FixedPulse{Voltage: 4.0, Polarity: PolarityBoth}
	v0 := p.NextVoltage(0, 0, 0)
	v1 := p.NextVoltage(1, 0, 0)
	if v0 == v1 {
		t.Fatalf("expected alternating sign, got %v and %v", v0, v1)
	}
}
