package amqp

import (
	"context"
	"time"

	"walletsync/internal/events"
	"walletsync/internal/log"
)

// Transport is the broker side of a Bridge.
type Transport interface {
	Publish(ctx context.Context, msg *EventMessage) error
	Consume(ctx context.Context, handler func(*EventMessage) error) error
}

var _ Transport = (*Client)(nil)

// Bridge forwards local bus events to the broker and injects events from
// other processes into the local bus. Broker failures are logged and never
// reach the code that emitted the event.
type Bridge struct {
	transport  Transport
	bus        *events.Bus
	instanceID string
	logger     *log.Logger
	sleep      func(context.Context, time.Duration) bool
}

func NewBridge(t Transport, bus *events.Bus, instanceID string, logger *log.Logger) *Bridge {
	return &Bridge{
		transport:  t,
		bus:        bus,
		instanceID: instanceID,
		logger:     log.OrDefault(logger, log.ComponentAMQP),
		sleep:      sleepCtx,
	}
}

// Run relays events until ctx is cancelled. The consume side reconnects with
// exponential backoff.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.bus.Subscribe("amqp-bridge", b.forward)
	defer sub.Unsubscribe()

	for attempt := 0; ; attempt++ {
		started := time.Now()
		err := b.transport.Consume(ctx, b.inject)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > maxBackoff {
			attempt = 0
		}
		wait := exponentialBackoff(attempt)
		b.logger.WarnContext(ctx, "Event consumer stopped, retrying",
			log.FieldError, err,
			"connection_error", isConnectionError(err),
			"retry_in", wait)
		if !b.sleep(ctx, wait) {
			return nil
		}
	}
}

func (b *Bridge) forward(ctx context.Context, e events.Event) {
	if !e.Local() {
		return
	}
	relay(ctx, b.transport, b.instanceID, e, b.logger)
}

func (b *Bridge) inject(msg *EventMessage) error {
	if msg.Origin == b.instanceID {
		return nil
	}
	b.bus.Publish(context.Background(), msg.Event())
	return nil
}

// Relay publishes events straight to the broker. Processes that only emit
// use it instead of a Bridge.
type Relay struct {
	transport  Transport
	instanceID string
	logger     *log.Logger
}

var _ events.Publisher = (*Relay)(nil)

func NewRelay(t Transport, instanceID string, logger *log.Logger) *Relay {
	return &Relay{transport: t, instanceID: instanceID, logger: log.OrDefault(logger, log.ComponentAMQP)}
}

func (r *Relay) Publish(ctx context.Context, e events.Event) {
	if err := e.Validate(); err != nil {
		r.logger.WarnContext(ctx, "Dropping invalid event", log.FieldError, err)
		return
	}
	relay(ctx, r.transport, r.instanceID, e, r.logger)
}

func relay(ctx context.Context, t Transport, origin string, e events.Event, logger *log.Logger) {
	if err := t.Publish(ctx, NewEventMessage(e, origin)); err != nil {
		logger.WarnContext(ctx, "Failed to relay event",
			log.FieldError, err,
			log.FieldAction, e.Action,
			log.FieldTransactionID, e.ID)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
