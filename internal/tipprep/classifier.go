package tipprep

import (
	"errors"

	"github.com/kronberger-droid/rusty-tip/internal/action"
)

// Classifier buffers recent signal readings in a drop-front window and
// confirms a Stable classification only after a run of consecutive
// good readings, mirroring the reference implementation's boundary
// classifier.
type Classifier struct {
	lo, hi          float32
	dropFront       int
	stableThreshold int

	history   []float32
	goodCount int
}

// ClassifierBuilder validates classifier parameters fail-fast, the way the
// reference BoundaryClassifierBuilder does.
type ClassifierBuilder struct {
	lo, hi          float32
	dropFront       int
	stableThreshold int
}

func NewClassifierBuilder() *ClassifierBuilder {
	return &ClassifierBuilder{dropFront: 10, stableThreshold: 3}
}

func (b *ClassifierBuilder) Bounds(lo, hi float32) *ClassifierBuilder {
	b.lo, b.hi = lo, hi
	return b
}

func (b *ClassifierBuilder) DropFront(n int) *ClassifierBuilder {
	b.dropFront = n
	return b
}

func (b *ClassifierBuilder) StableThreshold(n int) *ClassifierBuilder {
	b.stableThreshold = n
	return b
}

func (b *ClassifierBuilder) Build() (*Classifier, error) {
	if b.lo >= b.hi {
		return nil, errors.New("tipprep: classifier bounds require lo < hi")
	}
	if b.dropFront < 0 || b.dropFront > 50 {
		return nil, errors.New("tipprep: classifier drop_front must be in [0,50]")
	}
	if b.stableThreshold <= 0 {
		return nil, errors.New("tipprep: classifier stable_threshold must be > 0")
	}
	return &Classifier{lo: b.lo, hi: b.hi, dropFront: b.dropFront, stableThreshold: b.stableThreshold}, nil
}

// Classify records v in the drop-front history and returns the current
// verdict: Bad if v is outside bounds (resets the good-streak), Good if
// inside bounds but the streak hasn't reached stableThreshold yet, and
// Stable once stableThreshold consecutive Good readings have landed.
func (c *Classifier) Classify(v float32) action.TipState {
	c.history = append(c.history, v)
	if len(c.history) > c.dropFront {
		c.history = c.history[len(c.history)-c.dropFront:]
	}

	if v < c.lo || v > c.hi {
		c.goodCount = 0
		return action.TipBad
	}

	c.goodCount++
	if c.goodCount >= c.stableThreshold {
		return action.TipStable
	}
	return action.TipGood
}

// Reset clears the good-streak and history without changing bounds.
func (c *Classifier) Reset() {
	c.history = nil
	c.goodCount = 0
}

// History returns the retained window, oldest first.
func (c *Classifier) History() []float32 { return append([]float32(nil), c.history...) }
