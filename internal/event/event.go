package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultPoolSize = 1000
	defaultTimeout  = 30 * time.Second
)

type Event interface {
	Name() string
}

// Keyed events sharing a key are handled one at a time, in publish order.
type Keyed interface {
	Event
	Key() string
}

type Handler func(ctx context.Context, e Event) error

// Bus is an in-memory event bus. Handlers run on their own goroutines, at most
// PoolSize at a time.
type Bus struct {
	pool     chan struct{}
	timeout  time.Duration
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	handlers map[string][]Handler

	// chains holds, per key, the channel closed when the last dispatched
	// handler of that key returns.
	chainMu sync.Mutex
	chains  map[string]chan struct{}
}

type Config struct {
	PoolSize int
	Timeout  time.Duration
}

// NewBus create a new event bus. Caller should call Stop for graceful shutdown the bus.
func NewBus(c Config) *Bus {
	if c.PoolSize <= 0 {
		c.PoolSize = defaultPoolSize
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	return &Bus{
		pool:     make(chan struct{}, c.PoolSize),
		timeout:  c.Timeout,
		wg:       new(sync.WaitGroup),
		handlers: make(map[string][]Handler),
		chains:   make(map[string]chan struct{}),
	}
}

// Subscribe to an event
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], h)
}

// Handle subscribes a handler typed to the concrete event E.
func Handle[E Event](b *Bus, h func(ctx context.Context, e E) error) {
	var zero E
	b.Subscribe(zero.Name(), func(ctx context.Context, e Event) error {
		te, ok := e.(E)
		if !ok {
			return fmt.Errorf("event: unexpected type %T for %s", e, e.Name())
		}
		return h(ctx, te)
	})
}

// Publish an event
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, h := range b.handlers[e.Name()] {
		b.dispatch(ctx, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	b.wg.Add(1)

	// A handler queued behind its key takes a pool slot only once it may run.
	prev, release := b.chain(e)
	if prev == nil {
		b.pool <- struct{}{}
	}

	go func() {
		if prev != nil {
			<-prev
			b.pool <- struct{}{}
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "event: handler panic",
					"event", e.Name(),
					"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
				)
			}

			cancel()
			release()
			<-b.pool
			b.wg.Done()
		}()

		if err := h(ctx, e); err != nil {
			slog.ErrorContext(ctx, "event: handle event failed",
				"event", e.Name(),
				"error", err,
			)
		}
	}()
}

// chain links a keyed event behind the previous handler of its key. prev is
// nil when there is nothing to wait for. release must be called once the
// handler returns.
func (b *Bus) chain(e Event) (prev <-chan struct{}, release func()) {
	k, ok := e.(Keyed)
	if !ok || k.Key() == "" {
		return nil, func() {}
	}
	key := k.Key()

	done := make(chan struct{})

	b.chainMu.Lock()
	if p, ok := b.chains[key]; ok {
		prev = p
	}
	b.chains[key] = done
	b.chainMu.Unlock()

	return prev, func() {
		b.chainMu.Lock()
		if b.chains[key] == done {
			delete(b.chains, key)
		}
		b.chainMu.Unlock()
		close(done)
	}
}

// Stop waits for all handlers to finish
func (b *Bus) Stop() {
	b.wg.Wait()
}
