package action

import "github.com/kronberger-droid/rusty-tip/internal/nanonis"

// ResultKind tags which field of Result is populated.
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultSuccess
	ResultPiezoPosition
	ResultBiasVoltage
	ResultSignalValue
	ResultSignalValues
	ResultSignalNames
	ResultScanStatus
	ResultTipState
	ResultPartial
)

// TipState is the classifier's verdict for CheckTipState/CheckTipStability.
type TipState int

const (
	TipBad TipState = iota
	TipGood
	TipStable
)

func (s TipState) String() string {
	switch s {
	case TipBad:
		return "bad"
	case TipGood:
		return "good"
	case TipStable:
		return "stable"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of executing one Action.
type Result struct {
	Action Action
	Kind   ResultKind

	Position     nanonis.Position
	BiasVoltage  float32
	SignalValue  float32
	SignalValues []float32
	SignalNames  []string
	ScanRunning  bool
	TipState     TipState
	Partial      []Result
}

// AsF64 extracts a single float64 from a scalar result, mirroring the
// reference ExpectFromExecution<f64> extractor.
func (r Result) AsF64() (float64, bool) {
	switch r.Kind {
	case ResultBiasVoltage:
		return float64(r.BiasVoltage), true
	case ResultSignalValue:
		return float64(r.SignalValue), true
	default:
		return 0, false
	}
}

// AsPosition extracts a Position result.
func (r Result) AsPosition() (nanonis.Position, bool) {
	if r.Kind == ResultPiezoPosition {
		return r.Position, true
	}
	return nanonis.Position{}, false
}

// AsBool extracts a boolean-flavored result (scan running).
func (r Result) AsBool() (bool, bool) {
	if r.Kind == ResultScanStatus {
		return r.ScanRunning, true
	}
	return false, false
}

// AsTipState extracts a classification result.
func (r Result) AsTipState() (TipState, bool) {
	if r.Kind == ResultTipState {
		return r.TipState, true
	}
	return 0, false
}
