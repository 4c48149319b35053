package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkmon/core"
	"blinkmon/host/config"
	"blinkmon/host/report"
)

func batchConfig(seconds float64) *config.Config {
	return &config.Config{
		Serial: config.SerialConfig{Baud: core.SerialBaud},
		Sim:    config.SimConfig{Pace: false, HandlerCycles: 200, Seconds: seconds},
	}
}

func TestRunBatch(t *testing.T) {
	t.Cleanup(func() { core.SetPreemptHook(nil) })

	var out bytes.Buffer
	in := strings.NewReader("period 250\npause\r\nstart\n")

	require.NoError(t, run(context.Background(), batchConfig(1), in, &out))

	s := out.String()
	assert.Contains(t, s, "period 250\n\r>Period updated with new period 250\n\r")
	assert.Contains(t, s, "pause\n\r>Paused \n\r")
	assert.Contains(t, s, "start\n\r>Started \n\r")
}

func TestRunBatchRecordsReports(t *testing.T) {
	t.Cleanup(func() { core.SetPreemptHook(nil) })

	cfg := batchConfig(3.5)
	cfg.Store.Path = t.TempDir() + "/usage.db"

	require.NoError(t, run(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{}))

	store, err := report.OpenStore(context.Background(), cfg.Store.Path)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestRunBatchLogsHistory(t *testing.T) {
	t.Cleanup(func() { core.SetPreemptHook(nil) })

	started := time.Now()
	cfg := batchConfig(2.5)
	cfg.Store.Path = t.TempDir() + "/usage.db"
	cfg.Store.History = 1

	require.NoError(t, run(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{}))

	records, avg, err := storeHistory(context.Background(), cfg.Store.Path, cfg.Store.History, started)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(2), records[0].Seq, "newest record first")
	assert.Greater(t, avg, 0.0)
	assert.Less(t, avg, 100.0)

	_, avg, err = storeHistory(context.Background(), cfg.Store.Path, 1, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, avg, "no records after the run")
}

func TestRunBatchToBrokenOutput(t *testing.T) {
	t.Cleanup(func() { core.SetPreemptHook(nil) })

	// A closed console is logged, not fatal
	err := run(context.Background(), batchConfig(0.1), strings.NewReader("pause\n"), brokenWriter{})
	assert.NoError(t, err)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestReadInputTranslatesNewlines(t *testing.T) {
	input := make(chan []byte)
	go readInput(context.Background(), strings.NewReader("pause\r\nstart\n"), input)

	var got []byte
	for chunk := range input {
		got = append(got, chunk...)
	}
	assert.Equal(t, "pause\rstart\r", string(got))
}
