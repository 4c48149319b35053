package sim

// Event is a scheduled peripheral event in simulated cycles
type Event struct {
	WakeTime uint64
	Handler  func(*Event) uint8
	Next     *Event

	scheduled bool
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps pending events sorted by wake time
type Scheduler struct {
	list *Event
}

// Schedule adds an event to the schedule. An event that is already
// scheduled is moved.
func (s *Scheduler) Schedule(e *Event) {
	if e.scheduled {
		s.Cancel(e)
	}
	s.insert(e)
}

// insert inserts an event in sorted order by WakeTime.
// Events with equal wake times keep insertion order.
func (s *Scheduler) insert(e *Event) {
	e.scheduled = true
	if s.list == nil || e.WakeTime < s.list.WakeTime {
		e.Next = s.list
		s.list = e
		return
	}

	current := s.list
	for current.Next != nil && current.Next.WakeTime <= e.WakeTime {
		current = current.Next
	}

	e.Next = current.Next
	current.Next = e
}

// Cancel removes an event from the schedule
func (s *Scheduler) Cancel(e *Event) {
	if !e.scheduled {
		return
	}
	if s.list == e {
		s.list = e.Next
	} else {
		for current := s.list; current != nil; current = current.Next {
			if current.Next == e {
				current.Next = e.Next
				break
			}
		}
	}
	e.Next = nil
	e.scheduled = false
}

// NextWake returns the wake time of the earliest event
func (s *Scheduler) NextWake() (uint64, bool) {
	if s.list == nil {
		return 0, false
	}
	return s.list.WakeTime, true
}

// Dispatch runs every event with WakeTime <= now
func (s *Scheduler) Dispatch(now uint64) {
	for s.list != nil && s.list.WakeTime <= now {
		e := s.list
		s.list = e.Next
		e.Next = nil // Clear Next pointer to avoid circular references
		e.scheduled = false

		// Reschedule if requested
		if e.Handler(e) == SF_RESCHEDULE {
			s.insert(e)
		}
	}
}
