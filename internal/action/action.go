// Package action implements the high-level operation vocabulary that
// drives the Nanonis control client: each Action maps to one or more
// client calls, and may be wrapped with a captured telemetry window to
// produce an ExperimentData record.
package action

import "time"

// Kind is the closed set of high-level operations the driver can
// execute. Exactly one field group of Action is meaningful per Kind.
type Kind int

const (
	ReadSignal Kind = iota
	ReadSignals
	ReadSignalNames
	ReadBias
	SetBias
	ReadPiezoPosition
	SetPiezoPosition
	MovePiezoRelative
	MoveMotor3D
	AutoApproach
	StopAutoApproach
	Withdraw
	SafeReposition
	BiasPulse
	TipShaper
	CheckTipState
	CheckTipStability
	GetStableSignal
	ScanControl
	ReadScanStatus
	ReadOsci
	Store
	Retrieve
	Wait
)

// SignalBounds describes an inclusive acceptance range on a signal's
// value, used by CheckTipState's classification.
type SignalBounds struct {
	SignalIndex int32
	Lo          float32
	Hi          float32
}

// Action is a single parameterized operation. Only the fields relevant
// to Kind are populated; zero values elsewhere are ignored.
type Action struct {
	Kind Kind

	SignalIndex  int32
	SignalIndices []int32

	BiasVoltage float32

	// SignalValue carries a pre-computed value into CheckTipStability;
	// see execute.go for how it is consumed.
	SignalValue float32

	DX, DY, DZ float64

	AutoApproachTimeout time.Duration
	WithdrawTimeout     time.Duration
	RepositionDX        float64
	RepositionDY        float64
	RepositionDZ        float64

	PulseWaitUntilDone   bool
	PulseWidthSec        float32
	PulseZControllerHold bool
	PulseMode            int16

	Bounds SignalBounds

	ScanStart     bool
	ScanDirection int16

	OsciChannelIndex int32

	// StoreKey/InnerAction parametrize Store: InnerAction is executed
	// and its real Result is both cached under StoreKey and returned.
	// RetrieveKey parametrizes Retrieve: the cached Result is returned
	// as-is.
	StoreKey    string
	InnerAction *Action
	RetrieveKey string

	WaitDuration time.Duration
}

// IsPositioningAction reports whether Kind moves the piezo or motor.
func (a Action) IsPositioningAction() bool {
	switch a.Kind {
	case SetPiezoPosition, MovePiezoRelative, MoveMotor3D, SafeReposition:
		return true
	default:
		return false
	}
}

// IsReadAction reports whether Kind only reads state.
func (a Action) IsReadAction() bool {
	switch a.Kind {
	case ReadSignal, ReadSignals, ReadSignalNames, ReadBias, ReadPiezoPosition,
		ReadScanStatus, ReadOsci, GetStableSignal:
		return true
	default:
		return false
	}
}

// ModifiesBias reports whether Kind changes the applied bias voltage.
func (a Action) ModifiesBias() bool {
	switch a.Kind {
	case SetBias, BiasPulse:
		return true
	default:
		return false
	}
}

// InvolvesMotor reports whether Kind drives the coarse positioner.
func (a Action) InvolvesMotor() bool {
	switch a.Kind {
	case MoveMotor3D, SafeReposition, AutoApproach, Withdraw:
		return true
	default:
		return false
	}
}

func (a Action) String() string {
	switch a.Kind {
	case ReadSignal:
		return "ReadSignal"
	case ReadSignals:
		return "ReadSignals"
	case ReadSignalNames:
		return "ReadSignalNames"
	case ReadBias:
		return "ReadBias"
	case SetBias:
		return "SetBias"
	case ReadPiezoPosition:
		return "ReadPiezoPosition"
	case SetPiezoPosition:
		return "SetPiezoPosition"
	case MovePiezoRelative:
		return "MovePiezoRelative"
	case MoveMotor3D:
		return "MoveMotor3D"
	case AutoApproach:
		return "AutoApproach"
	case StopAutoApproach:
		return "StopAutoApproach"
	case Withdraw:
		return "Withdraw"
	case SafeReposition:
		return "SafeReposition"
	case BiasPulse:
		return "BiasPulse"
	case TipShaper:
		return "TipShaper"
	case CheckTipState:
		return "CheckTipState"
	case CheckTipStability:
		return "CheckTipStability"
	case GetStableSignal:
		return "GetStableSignal"
	case ScanControl:
		return "ScanControl"
	case ReadScanStatus:
		return "ReadScanStatus"
	case ReadOsci:
		return "ReadOsci"
	case Store:
		return "Store"
	case Retrieve:
		return "Retrieve"
	case Wait:
		return "Wait"
	default:
		return "Unknown"
	}
}
