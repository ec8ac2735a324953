// Package bridge moves work from blocking engine goroutines onto a single
// delivery goroutine that owns the outbound transport.
package bridge

import (
	"sync"

	"github.com/rs/zerolog"
)

// Task is one unit of delivery work. Each task performs a single send.
type Task func()

// Dispatcher runs submitted tasks in FIFO order on one goroutine.
// Submit never blocks and is safe from any goroutine.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []Task
	closed bool
	wake   chan struct{}
	done   chan struct{}
	log    zerolog.Logger
}

// New starts a dispatcher. Close must be called to stop it.
func New(log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		log:  log,
	}
	go d.run()
	return d
}

// Submit enqueues t. It returns false and drops t after Close.
func (d *Dispatcher) Submit(t Task) bool {
	if t == nil {
		return false
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		tasksDropped.Inc()
		d.log.Debug().Msg("dispatcher closed; task dropped")
		return false
	}
	d.queue = append(d.queue, t)
	queueDepth.Inc()
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of queued tasks not yet started.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Close stops intake, runs everything already queued and waits for the
// delivery goroutine to exit. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		select {
		case d.wake <- struct{}{}:
		default:
		}
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, t := range batch {
			queueDepth.Dec()
			d.exec(t)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-d.wake
	}
}

func (d *Dispatcher) exec(t Task) {
	defer func() {
		if r := recover(); r != nil {
			tasksPanicked.Inc()
			d.log.Error().Interface("panic", r).Msg("delivery task panicked")
		}
	}()
	t()
	tasksDelivered.Inc()
}
