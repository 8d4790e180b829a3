package action

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kronberger-droid/rusty-tip/internal/nanonis"
)

// Client is the subset of *nanonis.Client the driver depends on,
// declared here (consumer side) so tests can substitute a fake without
// standing up a TCP server.
type Client interface {
	BiasSet(v float32) error
	BiasGet() (float32, error)
	BiasPulse(waitUntilDone bool, pulseWidthSec, biasValueV float32, zControllerHold bool, pulseMode int16) error

	FolMeXYPosGet(waitForNewest bool) (nanonis.Position, error)
	FolMeXYPosSet(pos nanonis.Position, wait bool) error

	MotorStartMove(axis nanonis.MotorAxis, direction int16, steps uint16, group int16, wait bool) error
	MotorStartClosedLoop(target nanonis.Position, z float64, wait bool) error
	MotorStopMove() error

	ZCtrlOnOffSet(on bool) error
	ZCtrlOnOffGet() (bool, error)
	ZCtrlSetpntSet(setpointA float32) error
	ZCtrlWithdraw(wait bool, timeoutMs int32) error

	AutoApproachOpen() error
	AutoApproachOnOffSet(on bool) error
	AutoApproachOnOffGet() (bool, error)

	SignalsNamesGet() ([]string, error)
	SignalsValGet(index int32, waitForNewest bool) (float32, error)
	SignalsValsGet(indices []int32, waitForNewest bool) ([]float32, error)

	ScanAction(start bool, direction int16) error
	ScanStatusGet() (bool, error)

	Osci1TChSet(channelIndex int32) error
	Osci1TRun() error
	Osci1TDataGet(waitForNewTrigger bool) (float32, []float32, error)

	TipShaperStart(switchOffDelayMs float32, changeBiasVoltage bool, biasVoltageV float32) error
}

// Driver executes Actions against a Client, optionally capturing a
// telemetry window per execution and retrying transient errors.
type Driver struct {
	client Client
	window func(t0, t1 time.Time) []TimestampedSample
	log    *slog.Logger

	retryBudget int
	retryDelay  time.Duration

	stored map[string]Result
}

// TimestampedSample is the minimal shape of a captured telemetry frame
// the driver threads into ExperimentData, decoupled from the buffer
// package's concrete frame type.
type TimestampedSample struct {
	At     time.Time
	Values []float32
}

// WindowFunc captures frames in [t0,t1] from whatever buffer is wired
// in; nil disables windowed capture (ExecuteWithWindow then returns an
// ExperimentData with an empty frame slice).
type WindowFunc func(t0, t1 time.Time) []TimestampedSample

// Config configures a new Driver.
type Config struct {
	Client      Client
	Window      WindowFunc
	Logger      *slog.Logger
	RetryBudget int
	RetryDelay  time.Duration
}

func NewDriver(cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	return &Driver{
		client:      cfg.Client,
		window:      cfg.Window,
		log:         cfg.Logger,
		retryBudget: cfg.RetryBudget,
		retryDelay:  cfg.RetryDelay,
		stored:      map[string]Result{},
	}
}

// Execute runs a against the client and returns its Result, retrying
// transient protocol errors up to the driver's budget.
func (d *Driver) Execute(a Action) (Result, error) {
	var lastErr error
	for attempt := 0; attempt <= d.retryBudget; attempt++ {
		res, err := d.executeInternal(a)
		if err == nil {
			return res, nil
		}
		lastErr = err
		nerr, ok := err.(*nanonis.Error)
		if !ok || !nerr.Retryable() {
			return Result{}, err
		}
		d.log.Warn("action: retrying after transient error", "action", a, "attempt", attempt, "err", err)
		time.Sleep(d.retryDelay)
	}
	return Result{}, lastErr
}

// ExperimentData bundles an action's Result with the telemetry frames
// captured around its execution window.
type ExperimentData struct {
	Result  Result
	Frames  []TimestampedSample
	TStart  time.Time
	TEnd    time.Time
	During  []TimestampedSample
}

// ExecuteWithWindow runs a, capturing [t_start-pre, t_end+post] from the
// wired window function.
func (d *Driver) ExecuteWithWindow(a Action, pre, post time.Duration) (ExperimentData, error) {
	tStart := time.Now()
	res, err := d.Execute(a)
	tEnd := time.Now()
	if err != nil {
		return ExperimentData{}, err
	}

	data := ExperimentData{Result: res, TStart: tStart, TEnd: tEnd}
	if d.window != nil {
		data.Frames = d.window(tStart.Add(-pre), tEnd.Add(post))
		for _, f := range data.Frames {
			if !f.At.Before(tStart) && !f.At.After(tEnd) {
				data.During = append(data.During, f)
			}
		}
	}
	return data, nil
}

// ExecuteChain runs actions in order on one pinned client, stopping at
// the first error.
func (d *Driver) ExecuteChain(actions []Action) ([]Result, error) {
	out := make([]Result, 0, len(actions))
	for _, a := range actions {
		res, err := d.Execute(a)
		if err != nil {
			return out, fmt.Errorf("action chain: %s: %w", a, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// ExecuteChainWithWindow is the chain analog of ExecuteWithWindow: one
// t_start/t_end pair spans the whole chain.
func (d *Driver) ExecuteChainWithWindow(actions []Action, pre, post time.Duration) (ExperimentData, []Result, error) {
	tStart := time.Now()
	results, err := d.ExecuteChain(actions)
	tEnd := time.Now()
	if err != nil {
		return ExperimentData{}, results, err
	}

	data := ExperimentData{TStart: tStart, TEnd: tEnd}
	if len(results) > 0 {
		data.Result = results[len(results)-1]
	}
	if d.window != nil {
		data.Frames = d.window(tStart.Add(-pre), tEnd.Add(post))
		for _, f := range data.Frames {
			if !f.At.Before(tStart) && !f.At.After(tEnd) {
				data.During = append(data.During, f)
			}
		}
	}
	return data, results, nil
}
