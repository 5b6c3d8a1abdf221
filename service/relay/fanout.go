package relay

import (
	"sync"

	"chatwire/tools/safe"
)

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout spreads broadcast work over a small worker pool so one large
// room cannot stall the router loop.
type Fanout struct {
	jobs chan fanoutJob
	done chan struct{}
	once sync.Once
}

func NewFanout(workers, queue int) *Fanout {
	f := &Fanout{
		jobs: make(chan fanoutJob, queue),
		done: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		safe.Go(f.worker)
	}
	return f
}

func (f *Fanout) worker() {
	for {
		select {
		case job := <-f.jobs:
			deliver(job)
		case <-f.done:
			// deliver what was queued before shutdown, then exit
			for {
				select {
				case job := <-f.jobs:
					deliver(job)
				default:
					return
				}
			}
		}
	}
}

func deliver(job fanoutJob) {
	for _, c := range job.conns {
		// Slow or already-closed client: skip rather than block the pool.
		c.enqueue(job.payload)
	}
}

func (f *Fanout) Dispatch(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	select {
	case f.jobs <- fanoutJob{conns: conns, payload: payload}:
	case <-f.done:
	}
}

// Close stops the pool after the queued work drains. Dispatch after
// Close is a no-op; calling Close twice is fine.
func (f *Fanout) Close() {
	f.once.Do(func() { close(f.done) })
}
