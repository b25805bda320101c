package orchestration

import (
	"sync"
)

// runtime runs queued steps one at a time, in the order they were posted,
// on a single goroutine. Steps posted before end are still run.
type runtime struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	signal  chan struct{}
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once
}

func newRuntime() *runtime {
	return &runtime{
		signal:  make(chan struct{}, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (r *runtime) start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

func (r *runtime) run() {
	defer close(r.done)

	for {
		if step, ok := r.next(); ok {
			step()
			continue
		}

		select {
		case <-r.closeCh:
			if step, ok := r.next(); ok {
				step()
				continue
			}
			return
		case <-r.signal:
		}
	}
}

func (r *runtime) next() (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 {
		return nil, false
	}
	step := r.queue[0]
	r.queue[0] = nil
	r.queue = r.queue[1:]
	return step, true
}

// post queues step without waiting for it. It never blocks, which keeps
// device and network goroutines from stalling on a busy orchestrator.
func (r *runtime) post(step func()) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.queue = append(r.queue, step)
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
	return true
}

// do queues step and waits for its result. It must not be called from a
// step.
func (r *runtime) do(step func() error) error {
	result := make(chan error, 1)
	if !r.post(func() { result <- step() }) {
		return ErrClosed
	}
	return <-result
}

func (r *runtime) end() {
	r.endOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.closeCh)
	})
}

func (r *runtime) isClosed() bool {
	select {
	case <-r.closeCh:
		return true
	default:
		return false
	}
}

func (r *runtime) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// wait blocks until the runtime goroutine exited. A runtime that was never
// started can no longer be started afterwards.
func (r *runtime) wait() {
	r.startOnce.Do(func() { close(r.done) })
	<-r.done
}
