// Package tipprep implements the tip-preparation control loop: a state
// machine that pulses, repositions, and re-classifies the tip until it
// is confirmed stable or the engine aborts.
package tipprep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kronberger-droid/rusty-tip/internal/action"
	"github.com/kronberger-droid/rusty-tip/internal/eventlog"
	"github.com/kronberger-droid/rusty-tip/internal/signals"
)

// StabilityConfig parametrizes the bias-sweep stability check run once
// the tip has verified Good.
type StabilityConfig struct {
	Enabled             bool
	AllowedChange       float32
	BiasRangeV          [2]float32
	Steps               int
	StepPeriod          time.Duration
	Polarity            Polarity
	MaxDuration         time.Duration
}

// Config holds every tunable the engine needs.
type Config struct {
	SharpBounds       [2]float32
	PrimarySignalIndex int32
	MaxCycles         int
	MaxDuration       time.Duration
	InitialBiasV      float32
	InitialZSetpointA float32
	VerifyCount       int
	DropFront         int
	StableThreshold   int

	RepositionDX, RepositionDY, RepositionDZ float64
	WithdrawTimeout                          time.Duration
	AutoApproachTimeout                      time.Duration

	Pulse     PulseStrategy
	Stability StabilityConfig
}

// ExitStatus is the terminal library-level outcome of a Run call.
type ExitStatus int

const (
	Completed ExitStatus = iota
	AbortedByLimit
	AbortedByUser
	Failed
)

func (s ExitStatus) String() string {
	switch s {
	case Completed:
		return "completed"
	case AbortedByLimit:
		return "aborted_by_limit"
	case AbortedByUser:
		return "aborted_by_user"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Engine drives the state machine against an action.Driver.
type Engine struct {
	cfg        Config
	driver     *action.Driver
	classifier *Classifier
	machine    *Machine
	registry   *signals.Registry
	sink       eventlog.Sink
	log        *slog.Logger

	cycle            int
	lastSignal       float32
	lastPulseVoltage float32
	startedAt        time.Time
}

// windowPad is how far before/after each pulse/reposition or sweep-step
// action the engine asks the driver's wired buffer for captured frames,
// so the persisted record's window summary has context on both sides of
// the action that triggered it.
const windowPad = 500 * time.Millisecond

// New builds an Engine. registry may be nil, in which case persisted
// records carry no signal confidence tag.
func New(cfg Config, driver *action.Driver, registry *signals.Registry, sink eventlog.Sink, log *slog.Logger) (*Engine, error) {
	if cfg.VerifyCount <= 0 {
		cfg.VerifyCount = 3
	}
	if cfg.DropFront <= 0 {
		cfg.DropFront = 10
	}
	if cfg.StableThreshold <= 0 {
		cfg.StableThreshold = cfg.VerifyCount
	}
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = eventlog.Discard{}
	}

	classifier, err := NewClassifierBuilder().
		Bounds(cfg.SharpBounds[0], cfg.SharpBounds[1]).
		DropFront(cfg.DropFront).
		StableThreshold(cfg.StableThreshold).
		Build()
	if err != nil {
		return nil, err
	}

	machine := NewMachine(StateBlunt)
	machine.AddTransition(StateBlunt, StateSharp, EventGoodVerified, nil)
	machine.AddTransition(StateBlunt, StateAborted, EventLimitHit, nil)
	machine.AddTransition(StateBlunt, StateAborted, EventFatalError, nil)
	machine.AddTransition(StateSharp, StateStable, EventStabilityPass, nil)
	machine.AddTransition(StateSharp, StateBlunt, EventStabilityFail, nil)
	machine.AddTransition(StateSharp, StateAborted, EventFatalError, nil)

	return &Engine{
		cfg:        cfg,
		driver:     driver,
		classifier: classifier,
		machine:    machine,
		registry:   registry,
		sink:       sink,
		log:        log,
	}, nil
}

// Run drives the control loop to completion, abort, or cancellation.
func (e *Engine) Run(ctx context.Context) (ExitStatus, error) {
	e.startedAt = time.Now()
	defer e.safeShutdown()
	if err := e.preLoopInit(); err != nil {
		return Failed, fmt.Errorf("tipprep: pre-loop init: %w", err)
	}

	for e.machine.Current() != StateStable {
		select {
		case <-ctx.Done():
			return AbortedByUser, ctx.Err()
		default:
		}

		if e.cfg.MaxCycles > 0 && e.cycle >= e.cfg.MaxCycles {
			e.machine.Fire(EventLimitHit)
			return AbortedByLimit, fmt.Errorf("tipprep: exceeded max cycles (%d)", e.cfg.MaxCycles)
		}
		if e.cfg.MaxDuration > 0 && time.Since(e.startedAt) >= e.cfg.MaxDuration {
			e.machine.Fire(EventLimitHit)
			return AbortedByLimit, fmt.Errorf("tipprep: exceeded max duration (%s)", e.cfg.MaxDuration)
		}

		var err error
		switch e.machine.Current() {
		case StateBlunt:
			err = e.bluntCycle(ctx)
		case StateSharp:
			err = e.sharpCycle(ctx)
		default:
			return Failed, fmt.Errorf("tipprep: unexpected state %s", e.machine.Current())
		}
		if err != nil {
			e.machine.Fire(EventFatalError)
			return Failed, err
		}
	}

	e.emit(eventlog.Record{
		Timestamp:        time.Now(),
		Cycle:            e.cycle,
		StateBefore:      string(StateSharp),
		ActionTaken:      "stability_pass",
		PulseVoltage:     e.lastPulseVoltage,
		Classification:   action.TipStable.String(),
		SignalConfidence: e.primarySignalConfidence(),
	})
	return Completed, nil
}

func (e *Engine) preLoopInit() error {
	if _, err := e.driver.Execute(action.Action{Kind: action.SetBias, BiasVoltage: e.cfg.InitialBiasV}); err != nil {
		return err
	}
	if _, err := e.driver.Execute(action.Action{Kind: action.AutoApproach, AutoApproachTimeout: time.Second}); err != nil {
		return err
	}
	return nil
}

// bluntCycle classifies the primary signal first, then acts on that
// classification: a Bad reading gets a corrective BiasPulse plus
// SafeReposition, while a Good-but-not-yet-verified reading only gets
// repositioned and re-read — the classifier's own consecutive-good
// counter (stableThreshold) is what decides when enough verified Good
// cycles have accumulated to transition to Sharp.
func (e *Engine) bluntCycle(ctx context.Context) error {
	e.cycle++
	before := e.machine.Current()

	v, err := e.driver.Execute(action.Action{Kind: action.ReadSignal, SignalIndex: e.cfg.PrimarySignalIndex})
	if err != nil {
		return err
	}
	signal, _ := v.AsF64()
	e.lastSignal = float32(signal)
	state := e.classifier.Classify(e.lastSignal)

	var chain []action.Action
	var actionTaken string
	var voltage float32
	if state == action.TipBad {
		var delta float32
		if h := e.classifier.History(); len(h) >= 2 {
			delta = h[len(h)-1] - h[len(h)-2]
		}
		voltage = e.cfg.Pulse.NextVoltage(e.cycle, e.lastSignal, delta)
		e.lastPulseVoltage = voltage
		chain = e.pulseAndRepositionChain(voltage)
		actionTaken = "bias_pulse+reposition"
	} else {
		chain = e.repositionOnlyChain()
		actionTaken = "reposition"
	}

	data, _, err := e.driver.ExecuteChainWithWindow(chain, windowPad, windowPad)
	if err != nil {
		return err
	}

	e.emit(eventlog.Record{
		Timestamp:        time.Now(),
		Cycle:            e.cycle,
		StateBefore:      string(before),
		ActionTaken:      actionTaken,
		PulseVoltage:     voltage,
		Classification:   state.String(),
		Window:           e.summarizeWindow(data),
		SignalConfidence: e.primarySignalConfidence(),
	})

	if state == action.TipStable {
		e.machine.Fire(EventGoodVerified)
	}
	return nil
}

func (e *Engine) pulseAndRepositionChain(voltage float32) []action.Action {
	return []action.Action{
		{Kind: action.BiasPulse, PulseWaitUntilDone: true, PulseWidthSec: 0.05, BiasVoltage: voltage, PulseZControllerHold: true, PulseMode: 2},
		e.repositionAction(),
		{Kind: action.Wait, WaitDuration: time.Second},
	}
}

func (e *Engine) repositionOnlyChain() []action.Action {
	return []action.Action{
		e.repositionAction(),
		{Kind: action.Wait, WaitDuration: time.Second},
	}
}

func (e *Engine) repositionAction() action.Action {
	return action.Action{
		Kind:                action.SafeReposition,
		WithdrawTimeout:     5 * time.Second,
		RepositionDX:        e.cfg.RepositionDX,
		RepositionDY:        e.cfg.RepositionDY,
		RepositionDZ:        e.cfg.RepositionDZ,
		AutoApproachTimeout: e.cfg.AutoApproachTimeout,
	}
}

// primarySignalConfidence looks up the primary signal's TCP-channel
// mapping confidence tag, so persisted records carry it alongside the
// reading they were captured for.
func (e *Engine) primarySignalConfidence() string {
	if e.registry == nil {
		return ""
	}
	sig, ok := e.registry.GetByIndex(e.cfg.PrimarySignalIndex)
	if !ok {
		return ""
	}
	return sig.TCPConfidence.String()
}

// summarizeWindow buckets a captured window's frames into pre/during/post
// segments relative to the action's [TStart,TEnd] and reduces each
// segment's primary-signal channel to mean/min/max/last. Frames are
// attributed to the primary signal via the registry's TCP channel
// mapping; with no mapping (or no registry) there is nothing to
// summarize and this returns nil.
func (e *Engine) summarizeWindow(data action.ExperimentData) *eventlog.WindowSummary {
	if len(data.Frames) == 0 || e.registry == nil {
		return nil
	}
	tcpChannel, ok := e.registry.NanonisToTCP(e.cfg.PrimarySignalIndex)
	if !ok {
		return nil
	}

	var pre, during, post []float32
	for _, f := range data.Frames {
		if int(tcpChannel) >= len(f.Values) {
			continue
		}
		v := f.Values[tcpChannel]
		switch {
		case f.At.Before(data.TStart):
			pre = append(pre, v)
		case f.At.After(data.TEnd):
			post = append(post, v)
		default:
			during = append(during, v)
		}
	}

	summary := &eventlog.WindowSummary{Pre: signalStats(pre), During: signalStats(during), Post: signalStats(post)}
	if summary.Pre == nil && summary.During == nil && summary.Post == nil {
		return nil
	}
	return summary
}

func signalStats(values []float32) *eventlog.SignalStats {
	if len(values) == 0 {
		return nil
	}
	stats := &eventlog.SignalStats{Min: values[0], Max: values[0], Last: values[len(values)-1]}
	var sum float32
	for _, v := range values {
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	stats.Mean = sum / float32(len(values))
	return stats
}

// sharpCycle runs the stability check (if enabled) and transitions to
// Stable on a pass or back to Blunt (with a corrective pulse) on a
// fail.
func (e *Engine) sharpCycle(ctx context.Context) error {
	if !e.cfg.Stability.Enabled {
		e.machine.Fire(EventStabilityPass)
		return nil
	}

	maxDelta, window, err := e.runStabilitySweep()
	if err != nil {
		return err
	}

	e.emit(eventlog.Record{
		Timestamp:        time.Now(),
		Cycle:            e.cycle,
		StateBefore:      string(StateSharp),
		ActionTaken:      "stability_sweep",
		Classification:   fmt.Sprintf("max_delta=%.6g", maxDelta),
		Window:           window,
		SignalConfidence: e.primarySignalConfidence(),
	})

	if maxDelta <= e.cfg.Stability.AllowedChange {
		e.machine.Fire(EventStabilityPass)
		return nil
	}
	var delta float32
	if h := e.classifier.History(); len(h) >= 2 {
		delta = h[len(h)-1] - h[len(h)-2]
	}
	voltage := e.cfg.Pulse.NextVoltage(e.cycle, e.lastSignal, delta)
	e.lastPulseVoltage = voltage
	pulse := action.Action{Kind: action.BiasPulse, PulseWaitUntilDone: true, PulseWidthSec: 0.05, BiasVoltage: voltage, PulseZControllerHold: true, PulseMode: 2}
	if _, err := e.driver.Execute(pulse); err != nil {
		return err
	}
	e.machine.Fire(EventStabilityFail)
	return nil
}

// runStabilitySweep steps bias across BiasRangeV, holding each step for
// StepPeriod, capturing the primary signal per step, and returns the
// max absolute deviation observed along with a window summary pooling
// every step's captured frames (the sweep's first step contributes the
// Pre segment, its last step the Post segment, everything in between
// the During segment).
func (e *Engine) runStabilitySweep() (float32, *eventlog.WindowSummary, error) {
	s := e.cfg.Stability
	steps := s.Steps
	if steps < 2 {
		steps = 2
	}
	span := s.BiasRangeV[1] - s.BiasRangeV[0]

	var tcpChannel int32
	var hasMapping bool
	if e.registry != nil {
		tcpChannel, hasMapping = e.registry.NanonisToTCP(e.cfg.PrimarySignalIndex)
	}
	var allPre, allDuring, allPost []float32

	var first float32
	var maxDelta float32
	for i := 0; i < steps; i++ {
		frac := float32(i) / float32(steps-1)
		bias := s.BiasRangeV[0] + span*frac
		if s.Polarity == PolarityNegative || (s.Polarity == PolarityBoth && i > steps/2) {
			bias = -bias
		}

		data, err := e.driver.ExecuteWithWindow(action.Action{Kind: action.SetBias, BiasVoltage: bias}, 0, s.StepPeriod)
		if err != nil {
			return 0, nil, err
		}
		if hasMapping {
			for _, f := range data.Frames {
				if int(tcpChannel) >= len(f.Values) {
					continue
				}
				v := f.Values[tcpChannel]
				switch {
				case f.At.Before(data.TStart):
					if i == 0 {
						allPre = append(allPre, v)
					}
				case f.At.After(data.TEnd):
					if i == steps-1 {
						allPost = append(allPost, v)
					}
				default:
					allDuring = append(allDuring, v)
				}
			}
		}

		time.Sleep(s.StepPeriod)

		res, err := e.driver.Execute(action.Action{Kind: action.ReadSignal, SignalIndex: e.cfg.PrimarySignalIndex})
		if err != nil {
			return 0, nil, err
		}
		v, _ := res.AsF64()
		val := float32(v)

		if i == 0 {
			first = val
		}
		delta := val - first
		if delta < 0 {
			delta = -delta
		}
		if delta > maxDelta {
			maxDelta = delta
		}
	}

	window := &eventlog.WindowSummary{Pre: signalStats(allPre), During: signalStats(allDuring), Post: signalStats(allPost)}
	if window.Pre == nil && window.During == nil && window.Post == nil {
		window = nil
	}
	return maxDelta, window, nil
}

// safeShutdown runs on every exit path: withdraw for safety, then stop
// auto-approach if the controller reports it running.
func (e *Engine) safeShutdown() {
	if _, err := e.driver.Execute(action.Action{Kind: action.Withdraw, WithdrawTimeout: 5 * time.Second}); err != nil {
		e.log.Warn("tipprep: safe shutdown withdraw failed", "err", err)
	}
	if _, err := e.driver.Execute(action.Action{Kind: action.StopAutoApproach}); err != nil {
		e.log.Warn("tipprep: safe shutdown stop auto-approach failed", "err", err)
	}
}

func (e *Engine) emit(rec eventlog.Record) {
	if err := e.sink.Write(rec); err != nil {
		e.log.Warn("tipprep: event sink write failed", "err", err)
	}
}
