package timer

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Key identifies a periodic timer. Group is usually the MIDI status byte of
// the light group the timer drives and Control the LED's data byte.
type Key struct {
	Group   uint8
	Control uint8
}

type entry struct {
	id     uint64
	period time.Duration
	next   time.Time
	onTick func()
}

// Scheduler holds keyed periodic callbacks. It never starts goroutines of its
// own: the owning dispatcher asks for NextDeadline and calls RunDue, so ticks
// are delivered on the same thread as every other event.
type Scheduler struct {
	now    func() time.Time
	timers map[Key]*entry
	nextID uint64
	log    logrus.FieldLogger
}

// NewScheduler creates a scheduler. A nil clock uses time.Now.
func NewScheduler(now func() time.Time, log logrus.FieldLogger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		now:    now,
		timers: make(map[Key]*entry),
		log:    log.WithField("component", "timer"),
	}
}

// StartBlink registers onTick to run every period under key. A timer already
// running under the same key is cancelled first.
func (s *Scheduler) StartBlink(key Key, period time.Duration, onTick func()) {
	if period <= 0 || onTick == nil {
		s.log.Debugf("Ignoring timer %02X/%02X with period %v", key.Group, key.Control, period)
		return
	}
	s.StopBlink(key)

	s.nextID++
	s.timers[key] = &entry{
		id:     s.nextID,
		period: period,
		next:   s.now().Add(period),
		onTick: onTick,
	}
}

// StopBlink cancels the timer under key. It reports whether one was running;
// stopping an unknown key is a no-op.
func (s *Scheduler) StopBlink(key Key) bool {
	if _, ok := s.timers[key]; !ok {
		return false
	}
	delete(s.timers, key)
	return true
}

// Active reports whether a timer is registered under key.
func (s *Scheduler) Active(key Key) bool {
	_, ok := s.timers[key]
	return ok
}

// Len returns the number of live timers.
func (s *Scheduler) Len() int {
	return len(s.timers)
}

// StopAll cancels every timer.
func (s *Scheduler) StopAll() {
	if len(s.timers) > 0 {
		s.log.Debugf("Stopping %d timers", len(s.timers))
	}
	s.timers = make(map[Key]*entry)
}

// NextDeadline returns the earliest pending tick time.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	var (
		best  time.Time
		found bool
	)
	for _, e := range s.timers {
		if !found || e.next.Before(best) {
			best = e.next
			found = true
		}
	}
	return best, found
}

// RunDue fires every tick due at or before now, earliest first, and returns
// how many callbacks ran. A timer that falls more than one period behind is
// rescheduled from now instead of bursting.
func (s *Scheduler) RunDue(now time.Time) int {
	fired := 0
	for {
		e := s.earliestDue(now)
		if e == nil {
			return fired
		}

		next := e.next.Add(e.period)
		if !next.After(now) {
			next = now.Add(e.period)
		}
		e.next = next

		e.onTick()
		fired++
	}
}

func (s *Scheduler) earliestDue(now time.Time) *entry {
	var best *entry
	for _, e := range s.timers {
		if e.next.After(now) {
			continue
		}
		if best == nil || e.next.Before(best.next) || (e.next.Equal(best.next) && e.id < best.id) {
			best = e
		}
	}
	return best
}
