package jobs

import (
	"sync"

	"streamvio-transcoder/internal/logging"
)

// Observer is a caller-supplied sink for progress notifications. It is
// invoked on a dedicated goroutine owned by the dispatcher, never on the
// encoding goroutine.
type Observer func(progress int)

// Dispatcher bridges progress events from the encoding goroutine to the
// registry and to at most one observer per job.
//
// Each subscription owns a single delivery goroutine fed through a
// conflating channel: the publisher never blocks, and a slow observer
// simply sees the latest value instead of a backlog. The subscription is
// released exactly once, and Unsubscribe does not return until the
// delivery goroutine has stopped, so a callback can never fire after
// Unsubscribe has returned. Teardown paths that may run on the delivery
// goroutine itself (an observer cancelling its own job) use Mute, which
// stops delivery without waiting.
type Dispatcher struct {
	registry *Registry

	mu        sync.Mutex
	observers map[ID]*subscription
}

// NewDispatcher creates a dispatcher that records progress in registry
// before forwarding it to observers.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		observers: make(map[ID]*subscription),
	}
}

// Subscribe registers an observer for a job. A prior subscription for the
// same id is replaced and released; the old observer is not called again
// once Subscribe returns. A nil observer is a no-op.
func (d *Dispatcher) Subscribe(id ID, fn Observer) {
	if fn == nil {
		return
	}

	sub := newSubscription(fn)

	d.mu.Lock()
	old := d.observers[id]
	d.observers[id] = sub
	d.mu.Unlock()

	if old != nil {
		old.release()
	}
}

// Publish records a progress value in the registry and, if an observer is
// subscribed and the job has not been cancelled, forwards the recorded
// value to it. Publish never blocks on the observer.
func (d *Dispatcher) Publish(id ID, progress int) {
	if err := d.registry.SetProgress(id, progress); err != nil {
		logging.Debug("Progress for unknown job %s dropped", id)
		return
	}

	rec, err := d.registry.Get(id)
	if err != nil || rec.Status == StatusCancelled {
		return
	}

	d.mu.Lock()
	sub := d.observers[id]
	d.mu.Unlock()

	if sub != nil {
		// Deliver the registry's clamped value so observers see a
		// non-decreasing sequence even if the engine misbehaves.
		sub.offer(rec.Progress)
	}
}

// Unsubscribe releases any observer registered for the job. It is
// idempotent and safe for unknown ids. After it returns, no further
// callback fires for this subscription. It waits for any in-flight
// callback, so it must never run on the delivery goroutine; use Mute
// from observer code.
func (d *Dispatcher) Unsubscribe(id ID) {
	d.mu.Lock()
	sub := d.observers[id]
	delete(d.observers, id)
	d.mu.Unlock()

	if sub != nil {
		sub.release()
	}
}

// Mute stops further deliveries for a job without waiting for an
// in-flight callback to return, so it is safe to call from inside the
// observer itself. The subscription stays registered until Unsubscribe
// releases it.
func (d *Dispatcher) Mute(id ID) {
	d.mu.Lock()
	sub := d.observers[id]
	d.mu.Unlock()

	if sub != nil {
		sub.halt()
	}
}

// subscription is the single-owner handle around one observer. The handle
// is released at most once; delivery stops before release() returns.
type subscription struct {
	events   chan int
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSubscription(fn Observer) *subscription {
	s := &subscription{
		events: make(chan int, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run(fn)
	return s
}

func (s *subscription) run(fn Observer) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case v := <-s.events:
			// A halt may have raced the queued value; prefer stopping
			// over delivering stale progress.
			select {
			case <-s.stop:
				return
			default:
			}
			s.deliver(fn, v)
		}
	}
}

// deliver invokes the observer, swallowing panics so a torn-down observer
// cannot crash the publisher side.
func (s *subscription) deliver(fn Observer, v int) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Progress observer panicked: %v", r)
		}
	}()
	fn(v)
}

// offer places v in the conflating channel without blocking; if a stale
// value is still queued it is displaced by the newer one.
func (s *subscription) offer(v int) {
	select {
	case s.events <- v:
	default:
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- v:
		default:
		}
	}
}

// halt stops delivery without waiting for the goroutine to exit.
// Reentrancy-safe: may be called from inside the observer callback.
func (s *subscription) halt() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// release stops delivery and waits for the goroutine, including any
// in-flight callback. Must not be called on the delivery goroutine.
func (s *subscription) release() {
	s.halt()
	<-s.done
}
