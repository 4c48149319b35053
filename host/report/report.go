// Package report carries the firmware's utilization reports off the board:
// to the log, to an MQTT broker and into a SQLite history.
package report

import (
	"context"
	"sync/atomic"
	"time"

	"blinkmon/core"
	"blinkmon/host/logger"
)

// Record is a utilization report stamped on arrival at the host
type Record struct {
	Seq       uint64
	Timestamp time.Time
	core.UsageReport
}

// Line renders the record the way the firmware prints it
func (r Record) Line() string {
	return string(core.FormatReport(nil, r.Percent))
}

// Publisher delivers records somewhere
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
	Close() error
}

// DefaultQueueSize bounds the records waiting for publishers
const DefaultQueueSize = 64

// Fanout is the firmware's report sink on the host. Report never blocks:
// records are queued and handed to the publishers by Run. When the queue is
// full the record is dropped and counted.
type Fanout struct {
	publishers []Publisher
	queue      chan Record
	now        func() time.Time

	seq     atomic.Uint64
	dropped atomic.Uint64
}

// NewFanout creates a sink feeding the given publishers
func NewFanout(publishers ...Publisher) *Fanout {
	return &Fanout{
		publishers: publishers,
		queue:      make(chan Record, DefaultQueueSize),
		now:        time.Now,
	}
}

// Report implements core.ReportSink
func (f *Fanout) Report(r core.UsageReport) {
	rec := Record{
		Seq:         f.seq.Add(1),
		Timestamp:   f.now(),
		UsageReport: r,
	}

	select {
	case f.queue <- rec:
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns how many records were lost to a full queue
func (f *Fanout) Dropped() uint64 {
	return f.dropped.Load()
}

// Run publishes queued records until ctx is cancelled, then drains the queue
// and closes the publishers
func (f *Fanout) Run(ctx context.Context) {
	defer f.close()

	for {
		select {
		case rec := <-f.queue:
			f.publish(ctx, rec)
		case <-ctx.Done():
			f.drain()
			return
		}
	}
}

func (f *Fanout) drain() {
	// Publishers get a short grace period once the caller gave up
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for {
		select {
		case rec := <-f.queue:
			f.publish(ctx, rec)
		default:
			return
		}
	}
}

func (f *Fanout) publish(ctx context.Context, rec Record) {
	for _, p := range f.publishers {
		if err := p.Publish(ctx, rec); err != nil {
			logger.Warn().Err(err).Uint64("seq", rec.Seq).Msg("failed to publish usage report")
		}
	}
}

func (f *Fanout) close() {
	for _, p := range f.publishers {
		if err := p.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close publisher")
		}
	}
	if n := f.Dropped(); n > 0 {
		logger.Warn().Uint64("dropped", n).Msg("usage reports were dropped")
	}
}

// LogPublisher writes records to the log at info level
type LogPublisher struct{}

// NewLogPublisher creates a log publisher
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish logs the record
func (LogPublisher) Publish(_ context.Context, rec Record) error {
	logger.Info().
		Uint64("seq", rec.Seq).
		Uint32("working", rec.Working).
		Uint32("sleeping", rec.Sleeping).
		Msg(rec.Line())
	return nil
}

// Close does nothing
func (LogPublisher) Close() error {
	return nil
}
