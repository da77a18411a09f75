package action

import "sync"

// Dispatcher serializes action mutations through a single consumer
// goroutine, matching the single-writer discipline the SearchAction
// mutators assume. Streaming callbacks from any provider goroutine Post
// their mutation closures; one loop applies them in arrival order.
type Dispatcher struct {
	mu      sync.Mutex
	closed  bool
	updates chan func()
	done    chan struct{}
}

// NewDispatcher starts a dispatcher with the given queue depth. A depth
// of zero makes Post fully synchronous with the apply loop.
func NewDispatcher(depth int) *Dispatcher {
	d := &Dispatcher{
		updates: make(chan func(), depth),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for fn := range d.updates {
		fn()
	}
}

// Post enqueues a mutation. It blocks when the queue is full rather than
// dropping: every streamed token must land, in order. Posts racing Close
// are dropped silently once the dispatcher is closed.
func (d *Dispatcher) Post(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.updates <- fn
}

// Close stops accepting mutations and waits for the queued ones to be
// applied. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.updates)
	}
	d.mu.Unlock()
	<-d.done
}
