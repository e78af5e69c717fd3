package pool

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Progress observes a batch. Advance is called from a single goroutine,
// once per outcome.
type Progress interface {
	Start(total int)
	Advance(o Outcome)
}

type nopProgress struct{}

func (nopProgress) Start(int)       {}
func (nopProgress) Advance(Outcome) {}

// Counter counts finished URLs. It is safe to read while a batch runs.
type Counter struct {
	total  atomic.Int64
	done   atomic.Int64
	failed atomic.Int64
}

func (c *Counter) Start(total int) {
	c.total.Store(int64(total))
	c.done.Store(0)
	c.failed.Store(0)
}

func (c *Counter) Advance(o Outcome) {
	if o.Err != nil {
		c.failed.Add(1)
	}
	c.done.Add(1)
}

func (c *Counter) Total() int  { return int(c.total.Load()) }
func (c *Counter) Done() int   { return int(c.done.Load()) }
func (c *Counter) Failed() int { return int(c.failed.Load()) }

// LogProgress logs done/total after every outcome.
type LogProgress struct {
	Counter
}

func (l *LogProgress) Advance(o Outcome) {
	l.Counter.Advance(o)
	log.Info().Int("done", l.Done()).Int("total", l.Total()).Bool("ok", o.Err == nil).Str("url", o.URL).Msg("progress")
}
