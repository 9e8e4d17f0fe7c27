// pkg/reader/pool.go - Bounded worker pool with a double-ended task queue
package reader

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"
)

// Routine is one unit of pool work.
type Routine interface {
	Do()
}

// Pool runs routines on a fixed set of workers over a double-ended queue:
// PushFront schedules a routine before all pending work, PushBack after
// it. This is deliberately not a priority queue; front insertion is the
// only ordering primitive.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Routine
	stopped bool

	wg       sync.WaitGroup
	onFinish func(Routine)
}

// NewPool starts workers goroutines. onFinish, when non-nil, observes
// every routine after it ran; it is called from worker goroutines.
func NewPool(workers int, onFinish func(Routine)) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{onFinish: onFinish}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// PushBack enqueues r after all pending routines.
func (p *Pool) PushBack(r Routine) {
	p.push(r, false)
}

// PushFront enqueues r before all pending routines, so it is picked up by
// the next free worker.
func (p *Pool) PushFront(r Routine) {
	p.push(r, true)
}

func (p *Pool) push(r Routine, front bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if front {
		p.queue = append([]Routine{r}, p.queue...)
	} else {
		p.queue = append(p.queue, r)
	}
	p.cond.Signal()
}

// Stop discards all queued routines and joins the workers. Routines
// already running finish first.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		r := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		var catcher panics.Catcher
		catcher.Try(r.Do)
		if recovered := catcher.Recovered(); recovered != nil {
			log.WithField("panic", recovered.String()).Error("reader task panicked")
		}
		if p.onFinish != nil {
			p.onFinish(r)
		}
	}
}
