package indexer

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
)

// poller drives the poll/reconcile cadence with gocron, a
// recurring-wall-clock-task scheduler. The indexer's cadence is always
// wall-clock (§4.5 hardcodes a fixed interval, never a block height), so
// the scheduler is used directly with that interval.
type poller struct {
	interval time.Duration
	sched    *gocron.Scheduler
}

func newPoller(interval time.Duration) *poller {
	return &poller{
		interval: interval,
		sched:    gocron.NewScheduler(time.UTC),
	}
}

// run invokes fn immediately, then schedules it every interval until
// ctx is done or stop is called.
func (p *poller) run(ctx context.Context, fn func(context.Context)) {
	fn(ctx)

	_, _ = p.sched.Every(p.interval).WaitForSchedule().Do(func() {
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})

	p.sched.StartAsync()
	<-ctx.Done()
	p.sched.Stop()
}

func (p *poller) stop() {
	p.sched.Stop()
}
