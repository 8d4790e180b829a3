package tipprep

import (
	"testing"

	"github.com/kronberger-droid/rusty-tip/internal/action"
)

func TestClassifierRequiresConsecutiveGoodReadings(t *testing.T) {
	c, err := NewClassifierBuilder().Bounds(-1.5, 0).StableThreshold(3).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := c.Classify(-3.0); got != action.TipBad {
		t.Fatalf("expected Bad, got %v", got)
	}
	if got := c.Classify(-0.8); got != action.TipGood {
		t.Fatalf("expected Good, got %v", got)
	}
	if got := c.Classify(-0.7); got != action.TipGood {
		t.Fatalf("expected Good (2nd), got %v", got)
	}
	if got := c.Classify(-0.6); got != action.TipStable {
		t.Fatalf("expected Stable on 3rd consecutive good, got %v", got)
	}
}

func TestClassifierResetsStreakOnBadReading(t *testing.T) {
	c, err := NewClassifierBuilder().Bounds(-1.5, 0).StableThreshold(2).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c.Classify(-0.5)
	if got := c.Classify(-3.0); got != action.TipBad {
		t.Fatalf("expected Bad, got %v", got)
	}
	if got := c.Classify(-0.5); got != action.TipGood {
		t.Fatalf("expected streak reset to Good, got %v", got)
	}
}

func TestClassifierBuilderRejectsInvalidBounds(t *testing.T) {
	_, err := NewClassifierBuilder().Bounds(0, -1).Build()
	if err == nil {
		t.Fatalf("expected error for lo >= hi")
	}
}
