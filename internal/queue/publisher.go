package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// queues lists every queue the service publishes to.  They are
// declared durable so messages survive broker restarts.
var queues = []string{TicketBooked, TicketCancelled}

const (
	defaultDialTimeout = 2 * time.Second
	defaultRetryDelay  = 5 * time.Second
)

// ErrBrokerUnavailable is returned without dialling while a recent
// connection attempt has failed.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// Publisher publishes ticket events to RabbitMQ on the default
// exchange, one durable queue per event type.  The connection is
// opened lazily and re-dialled after any failure, so a broker outage
// costs failed publishes but never a restart.  A failed dial is not
// retried for retryDelay, so callers fail fast during an outage
// instead of queueing behind one dial timeout each.
type Publisher struct {
	url         string
	log         *zap.Logger
	dialTimeout time.Duration
	retryDelay  time.Duration

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	downUntil time.Time
}

// NewPublisher returns a Publisher for the broker at url.  No
// connection is made until the first Publish.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		url:         url,
		log:         log.Named("publisher"),
		dialTimeout: defaultDialTimeout,
		retryDelay:  defaultRetryDelay,
	}
}

// channel returns the open channel or dials the broker.  The dial is
// bounded by dialTimeout and by ctx's deadline, whichever is sooner.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()
	if time.Now().Before(p.downUntil) {
		return nil, ErrBrokerUnavailable
	}
	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("dial broker: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		p.downUntil = time.Now().Add(p.retryDelay)
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare %s: %w", q, err)
		}
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// Publish sends ev to the queue named by ev.Type as a persistent JSON
// message.  Errors are logged and returned so the caller can choose
// to ignore them.
func (p *Publisher) Publish(ctx context.Context, ev TicketEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel(ctx)
	if err != nil {
		p.log.Warn("broker unavailable", zap.String("event", ev.Type), zap.Error(err))
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ev.Type, false, false, pub); err != nil {
		p.log.Warn("publish failed", zap.String("event", ev.Type), zap.String("ticket_id", ev.TicketID), zap.Error(err))
		p.closeLocked()
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
