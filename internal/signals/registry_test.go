package signals

import (
	"strconv"
	"testing"
)

func TestResolveExactNameIgnoresCase(t *testing.T) {
	reg := NewBuilder().AddSignal("Current (A)", 0).Build()
	s, err := reg.Resolve("current (a)")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.NanonisIndex != 0 {
		t.Fatalf("unexpected index %d", s.NanonisIndex)
	}
}

func TestResolveMissingReturnsSuggestions(t *testing.T) {
	reg := NewBuilder().
		AddSignal("Current (A)", 0).
		AddSignal("Bias (V)", 1).
		Build()

	_, err := reg.Resolve("amp")
	if err == nil {
		t.Fatalf("expected not found error")
	}
	nf, ok := err.(*NotFoundError)
	if !ok {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
	found := false
	for _, s := range nf.Suggestions {
		if s == "Current (A)" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Current (A) among suggestions, got %v", nf.Suggestions)
	}
}

func TestStandardMapSeedsThreeBands(t *testing.T) {
	reg := NewRegistry()
	for i := int32(0); i < 100; i++ {
		reg.add(Signal{Name: "sig" + strconv.Itoa(int(i)), NanonisIndex: i})
	}
	b := &Builder{reg: reg}
	b.WithStandardMap()

	if ch, ok := reg.NanonisToTCP(0); !ok || ch != 0 {
		t.Fatalf("expected index 0 -> channel 0, got %d ok=%v", ch, ok)
	}
	if ch, ok := reg.NanonisToTCP(24); !ok || ch != 8 {
		t.Fatalf("expected index 24 -> channel 8, got %d ok=%v", ch, ok)
	}
	if ch, ok := reg.NanonisToTCP(74); !ok || ch != 16 {
		t.Fatalf("expected index 74 -> channel 16, got %d ok=%v", ch, ok)
	}
}
