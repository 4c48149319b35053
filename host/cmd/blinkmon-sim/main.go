package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"blinkmon/core"
	"blinkmon/host/config"
	"blinkmon/host/gpio"
	"blinkmon/host/logger"
	"blinkmon/host/report"
	"blinkmon/host/serial"
	"blinkmon/sim"
)

func main() {
	cfg, err := config.Load("blinkmon-sim", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log.Debug, cfg.Log.Verbose)
	core.SetDebugWriter(logger.TraceWriter)
	core.SetDebugEnabled(cfg.Log.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("simulator failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	started := time.Now()
	core.SetEventsEnabled(cfg.Sim.Events)

	m, err := simulate(ctx, cfg, in, out)
	if err != nil {
		return err
	}
	finish(m)

	if cfg.Store.Path != "" && cfg.Store.History > 0 {
		return logHistory(context.Background(), cfg.Store.Path, cfg.Store.History, started)
	}
	return nil
}

// simulate runs the machine and returns once every report was published
func simulate(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*sim.Machine, error) {
	publishers, err := openPublishers(ctx, cfg)
	if err != nil {
		return nil, err
	}
	fanout := report.NewFanout(publishers...)

	fanoutCtx, stopFanout := context.WithCancel(context.Background())
	fanoutDone := make(chan struct{})
	go func() {
		fanout.Run(fanoutCtx)
		close(fanoutDone)
	}()
	defer func() {
		stopFanout()
		<-fanoutDone
	}()

	simCfg := sim.DefaultConfig()
	simCfg.HandlerCycles = cfg.Sim.HandlerCycles
	simCfg.Output = out
	simCfg.Reports = fanout
	simCfg.Pace = cfg.Sim.Pace

	if cfg.LED.Chip != "" {
		led, err := gpio.NewRealOutput(cfg.LED.Chip, cfg.LED.Line)
		if err != nil {
			return nil, fmt.Errorf("LED mirror: %w", err)
		}
		defer led.Close()
		simCfg.LEDMirror = led
		logger.Info().Str("chip", cfg.LED.Chip).Int("line", cfg.LED.Line).Msg("mirroring LED")
	}

	if cfg.Sim.Pace {
		input := make(chan []byte)
		go readInput(ctx, in, input)
		simCfg.Input = input

		m := sim.New(simCfg)
		logger.Info().Msg("simulator running, type commands and press Enter")
		m.Run(ctx)
		return m, nil
	}

	// Batch mode: the whole input is on the line before the clock starts
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var tr serial.NewlineTranslator

	m := sim.New(simCfg)
	m.Feed(tr.Translate(nil, data))
	m.RunFor(uint64(cfg.Sim.Seconds * core.CoreClockHz))
	return m, nil
}

// openPublishers builds the report publishers the configuration asks for
func openPublishers(ctx context.Context, cfg *config.Config) ([]report.Publisher, error) {
	publishers := []report.Publisher{report.NewLogPublisher()}

	if cfg.MQTT.Broker != "" {
		p, err := report.NewMQTTPublisher(cfg.MQTT.Broker, cfg.MQTT.Topic, cfg.MQTT.ClientID)
		if err != nil {
			return nil, fmt.Errorf("MQTT publisher: %w", err)
		}
		publishers = append(publishers, p)
		logger.Info().Str("broker", cfg.MQTT.Broker).Str("topic", cfg.MQTT.Topic).Msg("publishing usage reports")
	}

	if cfg.Store.Path != "" {
		s, err := report.OpenStore(ctx, cfg.Store.Path)
		if err != nil {
			for _, p := range publishers {
				p.Close()
			}
			return nil, fmt.Errorf("report store: %w", err)
		}
		publishers = append(publishers, s)
		logger.Info().Str("path", cfg.Store.Path).Msg("recording usage reports")
	}

	return publishers, nil
}

// readInput forwards stdin to the simulated serial line until EOF
func readInput(ctx context.Context, in io.Reader, input chan<- []byte) {
	defer close(input)

	var tr serial.NewlineTranslator
	r := bufio.NewReader(in)
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case input <- tr.Translate(nil, buf[:n]):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn().Err(err).Msg("input closed")
			}
			return
		}
	}
}

// finish logs the run summary and dumps the firmware's event ring
func finish(m *sim.Machine) {
	logger.Info().
		Uint64("cycles", m.Now()).
		Uint64("toggles", m.IRQCount(sim.IRQToggle)).
		Uint64("rx", m.IRQCount(sim.IRQSerial)).
		Uint64("reports", m.IRQCount(sim.IRQReport)).
		Uint32("period_ms", core.PeriodToMs(m.Timer.Reload())).
		Msg("simulator stopped")

	if err := m.UART.Err(); err != nil {
		logger.Warn().Err(err).Int("sent", m.UART.Sent).Msg("console output was lost")
	}
	if core.IsDebugEnabled() {
		core.DumpEvents()
	}
}

// storeHistory reads the newest records and the mean usage since a time
func storeHistory(ctx context.Context, path string, limit int, since time.Time) ([]report.Record, float64, error) {
	store, err := report.OpenStore(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	defer store.Close()

	records, err := store.Recent(ctx, limit)
	if err != nil {
		return nil, 0, err
	}
	avg, err := store.Average(ctx, since)
	if err != nil {
		return nil, 0, err
	}
	return records, avg, nil
}

// logHistory logs the stored reports of this run, newest first
func logHistory(ctx context.Context, path string, limit int, since time.Time) error {
	records, avg, err := storeHistory(ctx, path, limit, since)
	if err != nil {
		return fmt.Errorf("report history: %w", err)
	}

	for _, rec := range records {
		logger.Info().
			Uint64("seq", rec.Seq).
			Time("at", rec.Timestamp).
			Msg(rec.Line())
	}
	logger.Info().Float64("average", avg).Int("records", len(records)).Msg("usage history")
	return nil
}
