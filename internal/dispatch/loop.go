package dispatch

import (
	"context"
	"time"

	"github.com/PixPMusic/gopher-deck/internal/timer"
	"github.com/sirupsen/logrus"
)

// Loop runs every controller callback on one goroutine: MIDI input, engine
// notifications and blink ticks. Other goroutines hand work over with Post.
type Loop struct {
	work   chan func()
	timers *timer.Scheduler
	now    func() time.Time
	log    logrus.FieldLogger
}

// New creates a loop driving timers. queue is the Post buffer size.
func New(timers *timer.Scheduler, queue int, log logrus.FieldLogger) *Loop {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if queue <= 0 {
		queue = 256
	}
	return &Loop{
		work:   make(chan func(), queue),
		timers: timers,
		now:    time.Now,
		log:    log.WithField("component", "dispatch"),
	}
}

// Post queues fn to run on the loop. It blocks when the queue is full and
// returns false if ctx ends first.
func (l *Loop) Post(ctx context.Context, fn func()) bool {
	select {
	case l.work <- fn:
		return true
	case <-ctx.Done():
		return false
	}
}

// Deliverer adapts Post for engine notifications
func (l *Loop) Deliverer(ctx context.Context) func(fn func()) {
	return func(fn func()) {
		if !l.Post(ctx, fn) {
			l.log.Debug("Dropping engine notification after shutdown")
		}
	}
}

// Run processes posted work and due timers until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	wake := time.NewTimer(time.Hour)
	defer wake.Stop()

	for {
		l.runTimers()
		l.arm(wake)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.work:
			l.call(fn)
		case <-wake.C:
		}
	}
}

// arm resets wake to the next blink deadline, or parks it for an hour
func (l *Loop) arm(wake *time.Timer) {
	if !wake.Stop() {
		select {
		case <-wake.C:
		default:
		}
	}
	d := time.Hour
	if next, ok := l.timers.NextDeadline(); ok {
		d = next.Sub(l.now())
		if d < 0 {
			d = 0
		}
	}
	wake.Reset(d)
}

func (l *Loop) runTimers() {
	defer l.rescue()
	l.timers.RunDue(l.now())
}

func (l *Loop) call(fn func()) {
	defer l.rescue()
	fn()
}

// rescue keeps one failing callback from taking the loop down
func (l *Loop) rescue() {
	if r := recover(); r != nil {
		l.log.Errorf("Recovered from panic in callback: %v", r)
	}
}
