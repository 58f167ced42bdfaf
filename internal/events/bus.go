package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"walletsync/internal/log"
)

const DefaultBufferSize = 16

type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	closed  bool
	dropped atomic.Uint64
	now     func() time.Time
	logger  *log.Logger
}

type Option func(*Bus)

// WithBufferSize sets the per-subscriber buffer. Values below 1 are ignored.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(b *Bus) { b.logger = log.OrDefault(l, log.ComponentEvents) }
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: DefaultBufferSize,
		now:    time.Now,
		logger: log.OrDefault(nil, log.ComponentEvents),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

var _ Publisher = (*Bus)(nil)

type Subscription struct {
	id     uint64
	name   string
	bus    *Bus
	ch     chan Event
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Subscribe registers h and starts its delivery goroutine. name only labels
// log lines.
func (b *Bus) Subscribe(name string, h Handler) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		name:   name,
		bus:    b,
		ch:     make(chan Event, b.buffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		close(s.ch)
		close(s.done)
		return s
	}
	b.nextID++
	s.id = b.nextID
	b.subs[s.id] = s
	b.mu.Unlock()

	go s.run(h)
	b.logger.Debug("Subscribed", log.FieldScreen, name)
	return s
}

func (s *Subscription) run(h Handler) {
	defer close(s.done)
	for e := range s.ch {
		if s.ctx.Err() != nil {
			continue
		}
		h(s.ctx, e)
	}
}

// Unsubscribe stops delivery. Events still buffered are discarded. It may be
// called from inside the handler and more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		b := s.bus
		b.mu.Lock()
		if _, ok := b.subs[s.id]; ok {
			delete(b.subs, s.id)
			close(s.ch)
		}
		b.mu.Unlock()
		b.logger.Debug("Unsubscribed", log.FieldScreen, s.name)
	})
}

// Done is closed once the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Publish hands e to every current subscriber without blocking. A missing
// timestamp is filled in.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if err := e.Validate(); err != nil {
		b.logger.WarnContext(ctx, "Dropping invalid event", log.FieldError, err)
		return
	}
	if e.At.IsZero() {
		e.At = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
			b.logger.WarnContext(ctx, "Subscriber buffer full, event dropped",
				log.FieldScreen, s.name,
				log.FieldAction, e.Action,
				log.FieldTransactionID, e.ID)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were dropped on full buffers.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close ends every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}
