package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkmon/core"
)

// fakePublisher records published records for test assertions
type fakePublisher struct {
	mu      sync.Mutex
	records []Record
	err     error
	closed  bool
}

func (f *fakePublisher) Publish(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePublisher) Records() []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Record(nil), f.records...)
}

func TestRecordLine(t *testing.T) {
	rec := Record{UsageReport: core.UsageReport{Percent: 12.5}}
	assert.Equal(t, "12.5% is the CPU usage", rec.Line())
}

func TestFanoutDeliversToAllPublishers(t *testing.T) {
	a := &fakePublisher{}
	b := &fakePublisher{}
	fan := NewFanout(a, b)

	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fan.now = func() time.Time { return stamp }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fan.Run(ctx)
		close(done)
	}()

	fan.Report(core.UsageReport{Percent: 30, Working: 30, Sleeping: 70})
	fan.Report(core.UsageReport{Percent: 0})

	assert.Eventually(t, func() bool {
		return len(b.Records()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	records := a.Records()
	require.Len(t, records, 2)
	assert.Equal(t, uint64(1), records[0].Seq)
	assert.Equal(t, uint64(2), records[1].Seq)
	assert.Equal(t, float32(30), records[0].Percent)
	assert.Equal(t, uint32(70), records[0].Sleeping)
	assert.Equal(t, stamp, records[0].Timestamp)

	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestFanoutKeepsGoingAfterPublishError(t *testing.T) {
	failing := &fakePublisher{err: errors.New("broker down")}
	ok := &fakePublisher{}
	fan := NewFanout(failing, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fan.Run(ctx)

	fan.Report(core.UsageReport{Percent: 1})

	assert.Eventually(t, func() bool {
		return len(ok.Records()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFanoutReportNeverBlocks(t *testing.T) {
	pub := &fakePublisher{}
	fan := NewFanout(pub)

	// Nothing drains the queue yet
	for i := 0; i < DefaultQueueSize+10; i++ {
		fan.Report(core.UsageReport{})
	}
	assert.Equal(t, uint64(10), fan.Dropped())

	// Records queued before shutdown are still delivered
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fan.Run(ctx)

	assert.Len(t, pub.Records(), DefaultQueueSize)
	assert.True(t, pub.closed)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher()
	assert.NoError(t, p.Publish(context.Background(), Record{}))
	assert.NoError(t, p.Close())
}
