package nanonis

import "github.com/kronberger-droid/rusty-tip/internal/wire"

// Position is an XY piezo position in meters.
type Position struct {
	X float64
	Y float64
}

// ---- Bias ----

func (c *Client) BiasSet(v float32) error {
	body := wire.Encode(nil, wire.NewF32(v))
	dec, err := c.call("Bias.Set", body)
	if err != nil {
		return err
	}
	return checkErrorTail("Bias.Set", dec)
}

func (c *Client) BiasGet() (float32, error) {
	dec, err := c.call("Bias.Get", nil)
	if err != nil {
		return 0, err
	}
	v, err := dec.DecodeF32()
	if err != nil {
		return 0, protocolError("Bias.Get", "decode bias", err)
	}
	return v, checkErrorTail("Bias.Get", dec)
}

// BiasPulse issues a bias pulse. zControllerHold and pulseMode follow the
// reference client's per-command encoding widths: waitUntilDone is a
// u32 flag, zControllerHold is a u16 flag, pulseMode is a plain i16.
func (c *Client) BiasPulse(waitUntilDone bool, pulseWidthSec float32, biasValueV float32, zControllerHold bool, pulseMode int16) error {
	body := wire.Encode(nil, wire.NewU32(boolToU32(waitUntilDone)))
	body = wire.Encode(body, wire.NewF32(pulseWidthSec))
	body = wire.Encode(body, wire.NewF32(biasValueV))
	body = wire.Encode(body, wire.NewU16(boolToU16(zControllerHold)))
	body = wire.Encode(body, wire.NewI16(pulseMode))
	dec, err := c.call("Bias.Pulse", body)
	if err != nil {
		return err
	}
	return checkErrorTail("Bias.Pulse", dec)
}

// ---- FolMe (piezo XY follow-me positioning) ----

func (c *Client) FolMeXYPosGet(waitForNewest bool) (Position, error) {
	body := wire.Encode(nil, wire.NewU32(boolToU32(waitForNewest)))
	dec, err := c.call("FolMe.XYPosGet", body)
	if err != nil {
		return Position{}, err
	}
	x, err := dec.DecodeF64()
	if err != nil {
		return Position{}, protocolError("FolMe.XYPosGet", "decode x", err)
	}
	y, err := dec.DecodeF64()
	if err != nil {
		return Position{}, protocolError("FolMe.XYPosGet", "decode y", err)
	}
	return Position{X: x, Y: y}, checkErrorTail("FolMe.XYPosGet", dec)
}

// FolMeXYPosSet moves the piezo to (x,y); wait follows the reference
// client's u16 encoding for this particular command.
func (c *Client) FolMeXYPosSet(pos Position, wait bool) error {
	body := wire.Encode(nil, wire.NewF64(pos.X))
	body = wire.Encode(body, wire.NewF64(pos.Y))
	body = wire.Encode(body, wire.NewU16(boolToU16(wait)))
	dec, err := c.call("FolMe.XYPosSet", body)
	if err != nil {
		return err
	}
	return checkErrorTail("FolMe.XYPosSet", dec)
}

// ---- Motor ----

// MotorAxis identifies one of the coarse-positioner motor's axes.
type MotorAxis int16

const (
	MotorAxisX MotorAxis = 0
	MotorAxisY MotorAxis = 1
	MotorAxisZ MotorAxis = 2
)

func (c *Client) MotorStartMove(axis MotorAxis, direction int16, steps uint16, group int16, wait bool) error {
	body := wire.Encode(nil, wire.NewI16(direction))
	body = wire.Encode(body, wire.NewU16(steps))
	body = wire.Encode(body, wire.NewI16(int16(axis)))
	body = wire.Encode(body, wire.NewI16(group))
	body = wire.Encode(body, wire.NewU32(boolToU32(wait)))
	dec, err := c.call("Motor.StartMove", body)
	if err != nil {
		return err
	}
	return checkErrorTail("Motor.StartMove", dec)
}

func (c *Client) MotorStartClosedLoop(target Position, z float64, wait bool) error {
	body := wire.Encode(nil, wire.NewF64(target.X))
	body = wire.Encode(body, wire.NewF64(target.Y))
	body = wire.Encode(body, wire.NewF64(z))
	body = wire.Encode(body, wire.NewU32(boolToU32(wait)))
	dec, err := c.call("Motor.StartClosedLoop", body)
	if err != nil {
		return err
	}
	return checkErrorTail("Motor.StartClosedLoop", dec)
}

func (c *Client) MotorStopMove() error {
	dec, err := c.call("Motor.StopMove", nil)
	if err != nil {
		return err
	}
	return checkErrorTail("Motor.StopMove", dec)
}

// ---- Z-controller ----

func (c *Client) ZCtrlOnOffSet(on bool) error {
	body := wire.Encode(nil, wire.NewU32(boolToU32(on)))
	dec, err := c.call("ZCtrl.OnOffSet", body)
	if err != nil {
		return err
	}
	return checkErrorTail("ZCtrl.OnOffSet", dec)
}

func (c *Client) ZCtrlOnOffGet() (bool, error) {
	dec, err := c.call("ZCtrl.OnOffGet", nil)
	if err != nil {
		return false, err
	}
	v, err := dec.DecodeU32()
	if err != nil {
		return false, protocolError("ZCtrl.OnOffGet", "decode flag", err)
	}
	return v != 0, checkErrorTail("ZCtrl.OnOffGet", dec)
}

func (c *Client) ZCtrlSetpntSet(setpointA float32) error {
	body := wire.Encode(nil, wire.NewF32(setpointA))
	dec, err := c.call("ZCtrl.SetpntSet", body)
	if err != nil {
		return err
	}
	return checkErrorTail("ZCtrl.SetpntSet", dec)
}

func (c *Client) ZCtrlWithdraw(wait bool, timeoutMs int32) error {
	body := wire.Encode(nil, wire.NewU32(boolToU32(wait)))
	body = wire.Encode(body, wire.NewI32(timeoutMs))
	dec, err := c.call("ZCtrl.Withdraw", body)
	if err != nil {
		return err
	}
	return checkErrorTail("ZCtrl.Withdraw", dec)
}

// ---- Auto-approach ----

func (c *Client) AutoApproachOpen() error {
	dec, err := c.call("AutoApproach.Open", nil)
	if err != nil {
		return err
	}
	return checkErrorTail("AutoApproach.Open", dec)
}

func (c *Client) AutoApproachOnOffSet(on bool) error {
	body := wire.Encode(nil, wire.NewU32(boolToU32(on)))
	dec, err := c.call("AutoApproach.OnOffSet", body)
	if err != nil {
		return err
	}
	return checkErrorTail("AutoApproach.OnOffSet", dec)
}

func (c *Client) AutoApproachOnOffGet() (bool, error) {
	dec, err := c.call("AutoApproach.OnOffGet", nil)
	if err != nil {
		return false, err
	}
	v, err := dec.DecodeU32()
	if err != nil {
		return false, protocolError("AutoApproach.OnOffGet", "decode flag", err)
	}
	return v != 0, checkErrorTail("AutoApproach.OnOffGet", dec)
}

// ---- Signals ----

func (c *Client) SignalsNamesGet() ([]string, error) {
	dec, err := c.call("Signals.NamesGet", nil)
	if err != nil {
		return nil, err
	}
	n, err := dec.DecodeU32()
	if err != nil {
		return nil, protocolError("Signals.NamesGet", "decode count", err)
	}
	names := make([]string, n)
	for i := range names {
		s, err := dec.DecodeString()
		if err != nil {
			return nil, protocolError("Signals.NamesGet", "decode name", err)
		}
		names[i] = s
	}
	return names, checkErrorTail("Signals.NamesGet", dec)
}

func (c *Client) SignalsValGet(index int32, waitForNewest bool) (float32, error) {
	if index < 0 || index > 127 {
		return 0, validationError("index", "must be in [0,127]")
	}
	body := wire.Encode(nil, wire.NewI32(index))
	body = wire.Encode(body, wire.NewU32(boolToU32(waitForNewest)))
	dec, err := c.call("Signals.ValGet", body)
	if err != nil {
		return 0, err
	}
	v, err := dec.DecodeF32()
	if err != nil {
		return 0, protocolError("Signals.ValGet", "decode value", err)
	}
	return v, checkErrorTail("Signals.ValGet", dec)
}

func (c *Client) SignalsValsGet(indices []int32, waitForNewest bool) ([]float32, error) {
	for _, idx := range indices {
		if idx < 0 || idx > 127 {
			return nil, validationError("indices", "all must be in [0,127]")
		}
	}
	body := wire.Encode(nil, wire.NewI32(int32(len(indices))))
	body = wire.Encode(body, wire.NewI32Array(indices))
	body = wire.Encode(body, wire.NewU32(boolToU32(waitForNewest)))
	dec, err := c.call("Signals.ValsGet", body)
	if err != nil {
		return nil, err
	}
	vals, err := dec.DecodeF32Array()
	if err != nil {
		return nil, protocolError("Signals.ValsGet", "decode values", err)
	}
	return vals, checkErrorTail("Signals.ValsGet", dec)
}

func (c *Client) SignalsCalibrGet(index int32) (calibration, offset float32, err error) {
	body := wire.Encode(nil, wire.NewI32(index))
	dec, callErr := c.call("Signals.CalibrGet", body)
	if callErr != nil {
		return 0, 0, callErr
	}
	calibration, err = dec.DecodeF32()
	if err != nil {
		return 0, 0, protocolError("Signals.CalibrGet", "decode calibration", err)
	}
	offset, err = dec.DecodeF32()
	if err != nil {
		return 0, 0, protocolError("Signals.CalibrGet", "decode offset", err)
	}
	return calibration, offset, checkErrorTail("Signals.CalibrGet", dec)
}

func (c *Client) SignalsRangeGet(index int32) (lo, hi float32, err error) {
	body := wire.Encode(nil, wire.NewI32(index))
	dec, callErr := c.call("Signals.RangeGet", body)
	if callErr != nil {
		return 0, 0, callErr
	}
	lo, err = dec.DecodeF32()
	if err != nil {
		return 0, 0, protocolError("Signals.RangeGet", "decode lo", err)
	}
	hi, err = dec.DecodeF32()
	if err != nil {
		return 0, 0, protocolError("Signals.RangeGet", "decode hi", err)
	}
	return lo, hi, checkErrorTail("Signals.RangeGet", dec)
}

// ---- Oscilloscope (1-channel) ----

func (c *Client) Osci1TChSet(channelIndex int32) error {
	body := wire.Encode(nil, wire.NewI32(channelIndex))
	dec, err := c.call("Osci1T.ChSet", body)
	if err != nil {
		return err
	}
	return checkErrorTail("Osci1T.ChSet", dec)
}

func (c *Client) Osci1TRun() error {
	dec, err := c.call("Osci1T.Run", nil)
	if err != nil {
		return err
	}
	return checkErrorTail("Osci1T.Run", dec)
}

func (c *Client) Osci1TDataGet(waitForNewTrigger bool) (samplingInterval float32, data []float32, err error) {
	body := wire.Encode(nil, wire.NewU32(boolToU32(waitForNewTrigger)))
	dec, callErr := c.call("Osci1T.DataGet", body)
	if callErr != nil {
		return 0, nil, callErr
	}
	samplingInterval, err = dec.DecodeF32()
	if err != nil {
		return 0, nil, protocolError("Osci1T.DataGet", "decode sampling interval", err)
	}
	data, err = dec.DecodeF32Array()
	if err != nil {
		return 0, nil, protocolError("Osci1T.DataGet", "decode data", err)
	}
	return samplingInterval, data, checkErrorTail("Osci1T.DataGet", dec)
}

// ---- TCP logger control plane ----

func (c *Client) TCPLogChsSet(channelIndices []int32) error {
	body := wire.Encode(nil, wire.NewI32(int32(len(channelIndices))))
	body = wire.Encode(body, wire.NewI32Array(channelIndices))
	dec, err := c.call("TCPLog.ChsSet", body)
	if err != nil {
		return err
	}
	return checkErrorTail("TCPLog.ChsSet", dec)
}

func (c *Client) TCPLogOversamplSet(oversampling int32) error {
	body := wire.Encode(nil, wire.NewI32(oversampling))
	dec, err := c.call("TCPLog.OversamplSet", body)
	if err != nil {
		return err
	}
	return checkErrorTail("TCPLog.OversamplSet", dec)
}

func (c *Client) TCPLogStart() error {
	dec, err := c.call("TCPLog.Start", nil)
	if err != nil {
		return err
	}
	return checkErrorTail("TCPLog.Start", dec)
}

func (c *Client) TCPLogStop() error {
	dec, err := c.call("TCPLog.Stop", nil)
	if err != nil {
		return err
	}
	return checkErrorTail("TCPLog.Stop", dec)
}

func (c *Client) TCPLogStatusGet() (running bool, oversampling int32, channelCount int32, err error) {
	dec, callErr := c.call("TCPLog.StatusGet", nil)
	if callErr != nil {
		return false, 0, 0, callErr
	}
	status, err := dec.DecodeU32()
	if err != nil {
		return false, 0, 0, protocolError("TCPLog.StatusGet", "decode status", err)
	}
	oversampling, err = dec.DecodeI32()
	if err != nil {
		return false, 0, 0, protocolError("TCPLog.StatusGet", "decode oversampling", err)
	}
	channelCount, err = dec.DecodeI32()
	if err != nil {
		return false, 0, 0, protocolError("TCPLog.StatusGet", "decode channel count", err)
	}
	return status != 0, oversampling, channelCount, checkErrorTail("TCPLog.StatusGet", dec)
}

// ---- Scan ----

func (c *Client) ScanAction(start bool, direction int16) error {
	action := int16(0)
	if start {
		action = 1
	}
	body := wire.Encode(nil, wire.NewI16(action))
	body = wire.Encode(body, wire.NewI16(direction))
	dec, err := c.call("Scan.Action", body)
	if err != nil {
		return err
	}
	return checkErrorTail("Scan.Action", dec)
}

func (c *Client) ScanStatusGet() (running bool, err error) {
	dec, callErr := c.call("Scan.StatusGet", nil)
	if callErr != nil {
		return false, callErr
	}
	v, err := dec.DecodeU32()
	if err != nil {
		return false, protocolError("Scan.StatusGet", "decode status", err)
	}
	return v != 0, checkErrorTail("Scan.StatusGet", dec)
}

// ---- Tip shaper ----

func (c *Client) TipShaperStart(switchOffDelayMs float32, changeBiasVoltage bool, biasVoltageV float32) error {
	body := wire.Encode(nil, wire.NewF32(switchOffDelayMs))
	body = wire.Encode(body, wire.NewU16(boolToU16(changeBiasVoltage)))
	body = wire.Encode(body, wire.NewF32(biasVoltageV))
	dec, err := c.call("TipShaper.Start", body)
	if err != nil {
		return err
	}
	return checkErrorTail("TipShaper.Start", dec)
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func boolToU16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
