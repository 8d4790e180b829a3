// Command tipprep wires the control client, telemetry stream, buffered
// reader, action driver, and tip-preparation engine together and runs
// the engine until it reaches a terminal status. It takes no flags: the single
// argument is a path to a YAML config file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kronberger-droid/rusty-tip/internal/action"
	"github.com/kronberger-droid/rusty-tip/internal/buffer"
	"github.com/kronberger-droid/rusty-tip/internal/config"
	"github.com/kronberger-droid/rusty-tip/internal/eventlog"
	"github.com/kronberger-droid/rusty-tip/internal/metrics"
	"github.com/kronberger-droid/rusty-tip/internal/nanonis"
	"github.com/kronberger-droid/rusty-tip/internal/signals"
	"github.com/kronberger-droid/rusty-tip/internal/telemetry"
	"github.com/kronberger-droid/rusty-tip/internal/tipprep"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: tipprep <config.yaml>")
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(os.Args[1], log); err != nil {
		log.Error("tipprep: exiting with error", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	controlPort := cfg.Nanonis.ControlPorts[0]
	client, err := nanonis.Dial(nanonis.Config{
		Host:   cfg.Nanonis.HostIP,
		Port:   controlPort,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("dial nanonis control port: %w", err)
	}
	defer client.Close()

	registry, err := buildSignalRegistry(client)
	if err != nil {
		return fmt.Errorf("build signal registry: %w", err)
	}
	log.Info("tipprep: signal registry ready", "signal_count", len(registry.AllNames()))

	if err := startTelemetry(client, cfg); err != nil {
		return fmt.Errorf("start telemetry logging: %w", err)
	}

	stream, err := telemetry.Dial(telemetry.Config{
		Host:             cfg.Nanonis.HostIP,
		Port:             cfg.DataAcquisition.DataPort,
		ExpectedChannels: len(cfg.DataAcquisition.Channels),
	})
	if err != nil {
		return fmt.Errorf("dial telemetry stream: %w", err)
	}

	bufReader := buffer.New(stream, buffer.Config{Logger: log})
	defer bufReader.Stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		var handler http.Handler
		m, handler = metrics.Register()
		go func() {
			addr := cfg.Metrics.ListenAddr
			if addr == "" {
				addr = ":9090"
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Warn("tipprep: metrics server exited", "err", err)
			}
		}()
	}

	driver := action.NewDriver(action.Config{
		Client: client,
		Window: func(t0, t1 time.Time) []action.TimestampedSample {
			frames := bufReader.Between(t0, t1)
			out := make([]action.TimestampedSample, len(frames))
			for i, f := range frames {
				out[i] = action.TimestampedSample{At: f.At, Values: f.Frame.Values}
			}
			return out
		},
		Logger: log,
	})

	logPath := cfg.Logging.LogPath + "/tipprep-events.jsonl"
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer logFile.Close()
	sink := eventlog.NewJSONSink(logFile)

	engineCfg := buildEngineConfig(cfg)
	engine, err := tipprep.New(engineCfg, driver, registry, sink, log)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	status, err := engine.Run(ctx)
	log.Info("tipprep: run finished", "status", status)
	if m != nil {
		m.CyclesTotal.WithLabelValues(status.String()).Inc()
	}
	return err
}

func buildSignalRegistry(client *nanonis.Client) (*signals.Registry, error) {
	names, err := client.SignalsNamesGet()
	if err != nil {
		return nil, err
	}
	return signals.NewBuilder().
		FromSignalNames(names).
		WithStandardMap().
		Build(), nil
}

func startTelemetry(client *nanonis.Client, cfg *config.Config) error {
	channels := make([]int32, len(cfg.DataAcquisition.Channels))
	for i, c := range cfg.DataAcquisition.Channels {
		channels[i] = int32(c)
	}
	if err := client.TCPLogChsSet(channels); err != nil {
		return err
	}
	if err := client.TCPLogOversamplSet(1); err != nil {
		return err
	}
	return client.TCPLogStart()
}

func buildEngineConfig(cfg *config.Config) tipprep.Config {
	sharp := [2]float32{cfg.TipPrep.SharpTipBounds[0], cfg.TipPrep.SharpTipBounds[1]}

	var pulse tipprep.PulseStrategy
	switch cfg.PulseMethod.Type {
	case "fixed":
		pulse = tipprep.FixedPulse{Voltage: cfg.PulseMethod.Voltage, Polarity: tipprep.PolarityPositive}
	case "linear":
		pulse = tipprep.LinearPulse{
			Clamp:         [2]float32{cfg.PulseMethod.LinearClamp[0], cfg.PulseMethod.LinearClamp[1]},
			VoltageBounds: [2]float32{cfg.PulseMethod.VoltageBounds[0], cfg.PulseMethod.VoltageBounds[1]},
			Polarity:      tipprep.PolarityPositive,
		}
	default: // "stepping"
		pulse = tipprep.NewSteppingPulse(
			cfg.PulseMethod.VoltageBounds[0], cfg.PulseMethod.VoltageBounds[1],
			cfg.PulseMethod.VoltageSteps, cfg.PulseMethod.CyclesBeforeStep,
			cfg.PulseMethod.Threshold, tipprep.PolarityPositive,
		)
	}

	var polarity tipprep.Polarity
	switch cfg.TipPrep.Stability.PolarityMode {
	case "negative":
		polarity = tipprep.PolarityNegative
	case "both":
		polarity = tipprep.PolarityBoth
	default:
		polarity = tipprep.PolarityPositive
	}

	stability := tipprep.StabilityConfig{
		Enabled:       cfg.TipPrep.Stability.CheckStability,
		AllowedChange: cfg.TipPrep.Stability.StableTipAllowedChange,
		Steps:         cfg.TipPrep.Stability.BiasSteps,
		StepPeriod:    time.Duration(cfg.TipPrep.Stability.StepPeriodMs) * time.Millisecond,
		Polarity:      polarity,
		MaxDuration:   time.Duration(cfg.TipPrep.Stability.MaxDurationSecs) * time.Second,
	}
	if len(cfg.TipPrep.Stability.BiasRangeV) == 2 {
		stability.BiasRangeV = [2]float32{cfg.TipPrep.Stability.BiasRangeV[0], cfg.TipPrep.Stability.BiasRangeV[1]}
	}

	return tipprep.Config{
		SharpBounds:          sharp,
		PrimarySignalIndex:   cfg.TipPrep.PrimarySignalIndex,
		MaxCycles:            cfg.TipPrep.MaxCycles,
		MaxDuration:          time.Duration(cfg.TipPrep.MaxDurationSecs) * time.Second,
		InitialBiasV:         cfg.TipPrep.InitialBiasV,
		InitialZSetpointA:    cfg.TipPrep.InitialZSetpointA,
		VerifyCount:          cfg.TipPrep.VerifyCount,
		RepositionDX:         cfg.TipPrep.RepositionDX,
		RepositionDY:         cfg.TipPrep.RepositionDY,
		RepositionDZ:         cfg.TipPrep.RepositionDZ,
		WithdrawTimeout:      5 * time.Second,
		AutoApproachTimeout:  10 * time.Second,
		Pulse:                pulse,
		Stability:            stability,
	}
}
