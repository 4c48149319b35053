package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingEvent(order *[]string, name string, wake uint64) *Event {
	return &Event{
		WakeTime: wake,
		Handler: func(e *Event) uint8 {
			*order = append(*order, name)
			return SF_DONE
		},
	}
}

func TestSchedulerDispatchesInWakeOrder(t *testing.T) {
	var s Scheduler
	var order []string

	s.Schedule(recordingEvent(&order, "c", 300))
	s.Schedule(recordingEvent(&order, "a", 100))
	s.Schedule(recordingEvent(&order, "b", 200))

	next, ok := s.NextWake()
	require.True(t, ok)
	assert.Equal(t, uint64(100), next)

	s.Dispatch(250)
	assert.Equal(t, []string{"a", "b"}, order)

	s.Dispatch(1000)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	_, ok = s.NextWake()
	assert.False(t, ok)
}

func TestSchedulerEqualWakeTimesKeepInsertionOrder(t *testing.T) {
	var s Scheduler
	var order []string

	s.Schedule(recordingEvent(&order, "first", 50))
	s.Schedule(recordingEvent(&order, "second", 50))
	s.Schedule(recordingEvent(&order, "third", 50))

	s.Dispatch(50)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestSchedulerCancel(t *testing.T) {
	var s Scheduler
	var order []string

	a := recordingEvent(&order, "a", 10)
	b := recordingEvent(&order, "b", 20)
	s.Schedule(a)
	s.Schedule(b)

	s.Cancel(b)
	s.Cancel(b) // second cancel is a no-op
	s.Dispatch(100)

	assert.Equal(t, []string{"a"}, order)
}

func TestSchedulerScheduleMovesEvent(t *testing.T) {
	var s Scheduler
	var order []string

	a := recordingEvent(&order, "a", 10)
	b := recordingEvent(&order, "b", 20)
	s.Schedule(a)
	s.Schedule(b)

	a.WakeTime = 30
	s.Schedule(a)

	s.Dispatch(100)
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestSchedulerReschedule(t *testing.T) {
	var s Scheduler
	fired := 0

	e := &Event{
		WakeTime: 100,
		Handler: func(e *Event) uint8 {
			fired++
			e.WakeTime += 100
			return SF_RESCHEDULE
		},
	}
	s.Schedule(e)

	s.Dispatch(450)
	assert.Equal(t, 4, fired)

	next, ok := s.NextWake()
	require.True(t, ok)
	assert.Equal(t, uint64(500), next)
}
