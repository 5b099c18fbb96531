package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/pkg/eventbus"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/Temutjin2k/room-compass/pkg/metrics"
	"github.com/Temutjin2k/room-compass/pkg/rabbit"
)

const ExchangeLocationFanout = "location_fanout"

// subscriberBuffer is the per-subscriber backlog before events are dropped.
const subscriberBuffer = 16

type LocationBrokerConfig struct {
	PublishAttempts int
	RetryInterval   time.Duration
}

// LocationBroker distributes change events. Published events go to the
// location_fanout exchange and every instance feeds what it consumes into its
// local bus. Without a RabbitMQ client events go to the local bus directly.
type LocationBroker struct {
	client *rabbit.RabbitMQ
	bus    *eventbus.Bus[models.ChangeEvent]
	cfg    LocationBrokerConfig
	l      logger.Logger
}

func NewLocationBroker(client *rabbit.RabbitMQ, bus *eventbus.Bus[models.ChangeEvent], cfg LocationBrokerConfig, l logger.Logger) *LocationBroker {
	if cfg.PublishAttempts <= 0 {
		cfg.PublishAttempts = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	return &LocationBroker{
		client: client,
		bus:    bus,
		cfg:    cfg,
		l:      l,
	}
}

// Setup declares the exchange.
func (b *LocationBroker) Setup() error {
	if b.client == nil {
		return nil
	}
	if err := b.client.DeclareFanout(ExchangeLocationFanout); err != nil {
		return fmt.Errorf("declare %s: %w", ExchangeLocationFanout, err)
	}
	return nil
}

// Publish announces a change to all instances.
func (b *LocationBroker) Publish(ctx context.Context, ev models.ChangeEvent) error {
	ctx = wrap.WithAction(ctx, types.ActionChangeEvent)

	if b.client == nil {
		b.fanout(ev)
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("marshal: %w", err))
	}

	err = retry(ctx, b.cfg.PublishAttempts, b.cfg.RetryInterval, func() error {
		if err := b.client.EnsureConnection(ctx); err != nil {
			return err
		}
		return b.client.Publish(ctx, ExchangeLocationFanout, "", body, wrap.GetRequestID(ctx))
	})
	metrics.RecordRabbitMQPublish(string(types.RoomService), ExchangeLocationFanout, err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("publish: %w", err))
	}
	return nil
}

// Subscribe returns the local stream of events matching filter.
func (b *LocationBroker) Subscribe(filter models.ChangeFilter) (<-chan models.ChangeEvent, func()) {
	return b.bus.Subscribe(filter.Match, subscriberBuffer)
}

// Consume feeds fanout messages into the local bus until ctx is done,
// reconnecting when the channel closes.
func (b *LocationBroker) Consume(ctx context.Context) error {
	const op = "LocationBroker.Consume"

	if b.client == nil {
		<-ctx.Done()
		return nil
	}

	ctx = wrap.WithAction(ctx, types.ActionChangeEvent)
	for {
		if ctx.Err() != nil {
			b.l.Debug(ctx, "location consumer stopped by context")
			return nil
		}

		if err := b.client.EnsureConnection(ctx); err != nil {
			b.l.Error(ctx, "ensure connection failed", err, "op", op)
			b.sleep(ctx)
			continue
		}

		if err := b.client.DeclareFanout(ExchangeLocationFanout); err != nil {
			b.l.Error(ctx, "declare exchange failed", err, "op", op)
			b.sleep(ctx)
			continue
		}

		msgs, err := b.client.ConsumeFanout(ExchangeLocationFanout)
		if err != nil {
			b.l.Error(ctx, "consume failed", err, "op", op)
			b.sleep(ctx)
			continue
		}

		b.l.Info(ctx, "start consuming location changes", "exchange", ExchangeLocationFanout)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				b.l.Info(ctx, "location consumer shutting down", "op", op)
				return nil

			case msg, ok := <-msgs:
				if !ok {
					b.l.Warn(ctx, "message channel closed, reconnecting...", "op", op)
					b.sleep(ctx)
					break consumeLoop
				}
				b.deliver(ctx, msg.Body)
			}
		}
	}
}

func (b *LocationBroker) deliver(ctx context.Context, body []byte) {
	var ev models.ChangeEvent
	err := json.Unmarshal(body, &ev)
	metrics.RecordRabbitMQConsume(string(types.RoomService), ExchangeLocationFanout, err)
	if err != nil {
		b.l.Error(ctx, "decode failed", err)
		return
	}

	b.fanout(ev)
}

// fanout hands ev to local subscribers and counts deliveries lost on full buffers.
func (b *LocationBroker) fanout(ev models.ChangeEvent) {
	before := b.bus.Dropped()
	b.bus.Publish(ev)
	if dropped := b.bus.Dropped() - before; dropped > 0 {
		metrics.EventsDroppedTotal.Add(float64(dropped))
	}
}

func (b *LocationBroker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(b.cfg.RetryInterval * 4):
	}
}
