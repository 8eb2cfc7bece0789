package logger

import (
	"sync/atomic"
	"time"
)

// Activity times one named pipeline step.
type Activity struct {
	log   *Logger
	name  string
	start time.Time
}

// StartActivity logs the start of a step and returns a handle to end it.
func (l *Logger) StartActivity(name string) *Activity {
	l.Info("activity started", "activity", name)
	return &Activity{log: l, name: name, start: time.Now()}
}

// End logs the step duration along with any extra attributes.
func (a *Activity) End(args ...any) time.Duration {
	elapsed := time.Since(a.start)
	a.log.Info("activity finished", append([]any{"activity", a.name, "elapsed", elapsed}, args...)...)
	return elapsed
}

// Progress counts processed items and logs every `every` items.
type Progress struct {
	log   *Logger
	name  string
	every int64
	count atomic.Int64
}

// NewProgress creates a progress counter. A non-positive every disables periodic logging.
func (l *Logger) NewProgress(name string, every int) *Progress {
	return &Progress{log: l, name: name, every: int64(every)}
}

// Add records n processed items.
func (p *Progress) Add(n int) {
	total := p.count.Add(int64(n))
	if p.every > 0 && total/p.every != (total-int64(n))/p.every {
		p.log.Debug("progress", "collection", p.name, "items", total)
	}
}

// Count returns the number of items recorded so far.
func (p *Progress) Count() int {
	return int(p.count.Load())
}
