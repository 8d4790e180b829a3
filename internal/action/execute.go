package action

import (
	"fmt"
	"time"

	"github.com/kronberger-droid/rusty-tip/internal/nanonis"
)

// executeInternal dispatches one Action to the wired Client, one match
// arm per Kind, mapping 1:1 (with pre-checks where the hardware needs
// one) onto Client calls.
func (d *Driver) executeInternal(a Action) (Result, error) {
	switch a.Kind {
	case ReadSignal:
		v, err := d.client.SignalsValGet(a.SignalIndex, true)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSignalValue, SignalValue: v}, nil

	case ReadSignals:
		vs, err := d.client.SignalsValsGet(a.SignalIndices, true)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSignalValues, SignalValues: vs}, nil

	case ReadSignalNames:
		names, err := d.client.SignalsNamesGet()
		if err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSignalNames, SignalNames: names}, nil

	case ReadBias:
		v, err := d.client.BiasGet()
		if err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultBiasVoltage, BiasVoltage: v}, nil

	case SetBias:
		if err := d.client.BiasSet(a.BiasVoltage); err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSuccess}, nil

	case ReadPiezoPosition:
		pos, err := d.client.FolMeXYPosGet(true)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultPiezoPosition, Position: pos}, nil

	case SetPiezoPosition:
		if err := d.client.FolMeXYPosSet(nanonis.Position{X: a.DX, Y: a.DY}, true); err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSuccess}, nil

	case MovePiezoRelative:
		cur, err := d.client.FolMeXYPosGet(true)
		if err != nil {
			return Result{}, err
		}
		target := nanonis.Position{X: cur.X + a.DX, Y: cur.Y + a.DY}
		if err := d.client.FolMeXYPosSet(target, true); err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultPiezoPosition, Position: target}, nil

	case MoveMotor3D:
		if err := d.moveMotor3D(a.DX, a.DY, a.DZ); err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSuccess}, nil

	case AutoApproach:
		already, err := d.client.AutoApproachOnOffGet()
		if err != nil {
			return Result{}, err
		}
		if !already {
			if err := d.client.AutoApproachOpen(); err != nil {
				return Result{}, err
			}
			// settle delay before the first status poll, matching the
			// reference client's post-open behavior.
			time.Sleep(200 * time.Millisecond)
		}
		if err := d.pollAutoApproach(a.AutoApproachTimeout); err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSuccess}, nil

	case StopAutoApproach:
		running, err := d.client.AutoApproachOnOffGet()
		if err != nil {
			return Result{}, err
		}
		if running {
			if err := d.client.AutoApproachOnOffSet(false); err != nil {
				return Result{}, err
			}
		}
		return Result{Action: a, Kind: ResultSuccess}, nil

	case Withdraw:
		if err := d.client.ZCtrlWithdraw(true, int32(a.WithdrawTimeout.Milliseconds())); err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSuccess}, nil

	case SafeReposition:
		if err := d.client.ZCtrlWithdraw(true, int32(a.WithdrawTimeout.Milliseconds())); err != nil {
			return Result{}, err
		}
		if err := d.moveMotor3D(a.RepositionDX, a.RepositionDY, a.RepositionDZ); err != nil {
			return Result{}, err
		}
		if err := d.client.AutoApproachOpen(); err != nil {
			return Result{}, err
		}
		if err := d.pollAutoApproach(a.AutoApproachTimeout); err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSuccess}, nil

	case BiasPulse:
		err := d.client.BiasPulse(a.PulseWaitUntilDone, a.PulseWidthSec, a.BiasVoltage, a.PulseZControllerHold, a.PulseMode)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSuccess}, nil

	case TipShaper:
		if err := d.client.TipShaperStart(a.PulseWidthSec, true, a.BiasVoltage); err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSuccess}, nil

	case CheckTipState:
		v, err := d.client.SignalsValGet(a.Bounds.SignalIndex, true)
		if err != nil {
			return Result{}, err
		}
		state := TipBad
		if v >= a.Bounds.Lo && v <= a.Bounds.Hi {
			state = TipGood
		}
		return Result{Action: a, Kind: ResultTipState, TipState: state, SignalValue: v}, nil

	case CheckTipStability:
		// The sweep itself is composed by the tip-prep engine via
		// ExecuteChainWithWindow; this arm only classifies a
		// pre-computed max-delta against the configured bound, passed
		// through SignalValue by the caller.
		state := TipBad
		if a.SignalValue <= a.Bounds.Hi {
			state = TipStable
		}
		return Result{Action: a, Kind: ResultTipState, TipState: state}, nil

	case GetStableSignal:
		v, err := d.client.SignalsValGet(a.SignalIndex, true)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSignalValue, SignalValue: v}, nil

	case ScanControl:
		if err := d.client.ScanAction(a.ScanStart, a.ScanDirection); err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSuccess}, nil

	case ReadScanStatus:
		running, err := d.client.ScanStatusGet()
		if err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultScanStatus, ScanRunning: running}, nil

	case ReadOsci:
		if err := d.client.Osci1TChSet(a.OsciChannelIndex); err != nil {
			return Result{}, err
		}
		if err := d.client.Osci1TRun(); err != nil {
			return Result{}, err
		}
		_, data, err := d.client.Osci1TDataGet(true)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: a, Kind: ResultSignalValues, SignalValues: data}, nil

	case Store:
		if a.StoreKey == "" {
			return Result{}, fmt.Errorf("action: Store requires a key")
		}
		if a.InnerAction == nil {
			return Result{}, fmt.Errorf("action: Store requires an inner action")
		}
		result, err := d.executeInternal(*a.InnerAction)
		if err != nil {
			return Result{}, err
		}
		d.stored[a.StoreKey] = result
		return result, nil

	case Retrieve:
		stored, ok := d.stored[a.RetrieveKey]
		if !ok {
			return Result{}, fmt.Errorf("action: no value stored under %q", a.RetrieveKey)
		}
		return stored, nil

	case Wait:
		time.Sleep(a.WaitDuration)
		return Result{Action: a, Kind: ResultSuccess}, nil

	default:
		return Result{}, fmt.Errorf("action: unhandled kind %v", a.Kind)
	}
}

func (d *Driver) moveMotor3D(dx, dy, dz float64) error {
	target := nanonis.Position{X: dx, Y: dy}
	return d.client.MotorStartClosedLoop(target, dz, true)
}

// pollAutoApproach polls AutoApproach.OnOffGet until it reports off
// (approach finished) or timeout elapses, matching the reference
// client's poll-rather-than-event approach.
func (d *Driver) pollAutoApproach(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		running, err := d.client.AutoApproachOnOffGet()
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("action: auto-approach did not complete within %s", timeout)
}
