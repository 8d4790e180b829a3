package action

import (
	"testing"
	"time"

	"github.com/kronberger-droid/rusty-tip/internal/nanonis"
)

// fakeClient implements Client entirely in memory for driver tests.
type fakeClient struct {
	bias             float32
	position         nanonis.Position
	signalValues     map[int32]float32
	autoApproachOn   bool
	autoApproachOpened bool
	withdrawCalls    int
	biasPulses       int
	setBiasCalls     []float32
	failNextBias     error
}

func newFakeClient() *fakeClient {
	return &fakeClient{signalValues: map[int32]float32{}}
}

func (f *fakeClient) BiasSet(v float32) error {
	if f.failNextBias != nil {
		err := f.failNextBias
		f.failNextBias = nil
		return err
	}
	f.bias = v
	f.setBiasCalls = append(f.setBiasCalls, v)
	return nil
}
func (f *fakeClient) BiasGet() (float32, error) { return f.bias, nil }
func (f *fakeClient) BiasPulse(wait bool, width, v float32, zHold bool, mode int16) error {
	f.biasPulses++
	f.bias = v
	return nil
}
func (f *fakeClient) FolMeXYPosGet(wait bool) (nanonis.Position, error) { return f.position, nil }
func (f *fakeClient) FolMeXYPosSet(pos nanonis.Position, wait bool) error {
	f.position = pos
	return nil
}
func (f *fakeClient) MotorStartMove(axis nanonis.MotorAxis, direction int16, steps uint16, group int16, wait bool) error {
	return nil
}
func (f *fakeClient) MotorStartClosedLoop(target nanonis.Position, z float64, wait bool) error {
	f.position = target
	return nil
}
func (f *fakeClient) MotorStopMove() error { return nil }
func (f *fakeClient) ZCtrlOnOffSet(on bool) error { return nil }
func (f *fakeClient) ZCtrlOnOffGet() (bool, error) { return false, nil }
func (f *fakeClient) ZCtrlSetpntSet(v float32) error { return nil }
func (f *fakeClient) ZCtrlWithdraw(wait bool, timeoutMs int32) error {
	f.withdrawCalls++
	return nil
}
// AutoApproachOpen simulates an instantly-completing approach: the
// fake never reports the approach as still running, so pollAutoApproach
// returns as soon as it checks once.
func (f *fakeClient) AutoApproachOpen() error { f.autoApproachOpened = true; return nil }
func (f *fakeClient) AutoApproachOnOffSet(on bool) error { f.autoApproachOn = on; return nil }
func (f *fakeClient) AutoApproachOnOffGet() (bool, error) { return f.autoApproachOn, nil }
func (f *fakeClient) SignalsNamesGet() ([]string, error) { return []string{"a", "b"}, nil }
func (f *fakeClient) SignalsValGet(index int32, wait bool) (float32, error) {
	return f.signalValues[index], nil
}
func (f *fakeClient) SignalsValsGet(indices []int32, wait bool) ([]float32, error) {
	out := make([]float32, len(indices))
	for i, idx := range indices {
		out[i] = f.signalValues[idx]
	}
	return out, nil
}
func (f *fakeClient) ScanAction(start bool, direction int16) error { return nil }
func (f *fakeClient) ScanStatusGet() (bool, error) { return false, nil }
func (f *fakeClient) Osci1TChSet(ch int32) error { return nil }
func (f *fakeClient) Osci1TRun() error { return nil }
func (f *fakeClient) Osci1TDataGet(wait bool) (float32, []float32, error) {
	return 1.0, []float32{1, 2, 3}, nil
}
func (f *fakeClient) TipShaperStart(delay float32, changeBias bool, v float32) error { return nil }

func TestExecuteSetBiasThenReadBack(t *testing.T) {
	fc := newFakeClient()
	d := NewDriver(Config{Client: fc})

	_, err := d.Execute(Action{Kind: SetBias, BiasVoltage: -0.5})
	if err != nil {
		t.Fatalf("Execute SetBias: %v", err)
	}

	res, err := d.Execute(Action{Kind: ReadBias})
	if err != nil {
		t.Fatalf("Execute ReadBias: %v", err)
	}
	v, ok := res.AsF64()
	if !ok || float32(v) != -0.5 {
		t.Fatalf("unexpected bias: %v ok=%v", v, ok)
	}
}

func TestExecuteWithWindowCapturesFrames(t *testing.T) {
	fc := newFakeClient()
	fc.signalValues[0] = 1.5

	windowCalls := 0
	d := NewDriver(Config{
		Client: fc,
		Window: func(t0, t1 time.Time) []TimestampedSample {
			windowCalls++
			mid := t0.Add(t1.Sub(t0) / 2)
			return []TimestampedSample{{At: mid, Values: []float32{1.5}}}
		},
	})

	data, err := d.ExecuteWithWindow(Action{Kind: ReadSignal, SignalIndex: 0}, time.Second, time.Second)
	if err != nil {
		t.Fatalf("ExecuteWithWindow: %v", err)
	}
	if windowCalls != 1 {
		t.Fatalf("expected window to be queried once, got %d", windowCalls)
	}
	if len(data.During) != 1 {
		t.Fatalf("expected 1 frame during window, got %d", len(data.During))
	}
}

func TestExecuteRetriesTransientIOError(t *testing.T) {
	fc := newFakeClient()
	fc.failNextBias = &nanonis.Error{Kind: nanonis.KindIO, Detail: "connection reset"}

	d := NewDriver(Config{Client: fc, RetryBudget: 1, RetryDelay: time.Millisecond})
	_, err := d.Execute(Action{Kind: SetBias, BiasVoltage: 1.0})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(fc.setBiasCalls) != 1 {
		t.Fatalf("expected exactly one successful SetBias after retry, got %d", len(fc.setBiasCalls))
	}
}

func TestExecuteDoesNotRetryValidationError(t *testing.T) {
	fc := newFakeClient()
	fc.failNextBias = &nanonis.Error{Kind: nanonis.KindValidation, Detail: "bias out of range"}

	d := NewDriver(Config{Client: fc})
	_, err := d.Execute(Action{Kind: SetBias, BiasVoltage: 1.0})
	if err == nil {
		t.Fatalf("expected error to surface immediately")
	}
}

func TestStoreThenRetrieveReturnsTheInnerActionsRealResult(t *testing.T) {
	fc := newFakeClient()
	fc.signalValues[0] = -0.42
	d := NewDriver(Config{Client: fc})

	stored, err := d.Execute(Action{
		Kind:        Store,
		StoreKey:    "baseline_bias_signal",
		InnerAction: &Action{Kind: ReadSignal, SignalIndex: 0},
	})
	if err != nil {
		t.Fatalf("Execute Store: %v", err)
	}
	if v, ok := stored.AsF64(); !ok || float32(v) != -0.42 {
		t.Fatalf("expected Store to return the inner action's real result, got %v ok=%v", v, ok)
	}

	fc.signalValues[0] = 1.0 // change state to prove Retrieve replays the stored value, not a fresh read

	retrieved, err := d.Execute(Action{Kind: Retrieve, RetrieveKey: "baseline_bias_signal"})
	if err != nil {
		t.Fatalf("Execute Retrieve: %v", err)
	}
	if v, ok := retrieved.AsF64(); !ok || float32(v) != -0.42 {
		t.Fatalf("expected Retrieve to replay the stored value -0.42, got %v ok=%v", v, ok)
	}
}

func TestRetrieveUnknownKeyFails(t *testing.T) {
	fc := newFakeClient()
	d := NewDriver(Config{Client: fc})

	_, err := d.Execute(Action{Kind: Retrieve, RetrieveKey: "missing"})
	if err == nil {
		t.Fatalf("expected error retrieving an unset key")
	}
}

func TestSafeRepositionSequenceCallsWithdrawAndApproach(t *testing.T) {
	fc := newFakeClient()
	d := NewDriver(Config{Client: fc})

	_, err := d.Execute(Action{
		Kind:                SafeReposition,
		WithdrawTimeout:     time.Second,
		RepositionDZ:        -3,
		AutoApproachTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Execute SafeReposition: %v", err)
	}
	if fc.withdrawCalls != 1 {
		t.Fatalf("expected 1 withdraw call, got %d", fc.withdrawCalls)
	}
	if !fc.autoApproachOpened {
		t.Fatalf("expected auto-approach to have been opened")
	}
}
