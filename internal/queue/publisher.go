package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/model"
)

// ErrBrokerUnavailable is returned while the publisher waits out a failed
// dial instead of dialling again.
var ErrBrokerUnavailable = errors.New("rabbitmq unavailable")

// Publisher sends audit events to a durable queue over one long-lived
// channel.  The connection is dialled on first use and again after it
// drops.  A failed dial is not retried until cooldown has passed, so a
// sweep that expires many visits with the broker down costs at most one
// dial timeout.
type Publisher struct {
	url      string
	queue    string
	timeout  time.Duration
	cooldown time.Duration
	log      *zap.Logger

	dial func() (*amqp.Connection, error)
	now  func() time.Time

	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	retryAfter time.Time
}

func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{
		url:      url,
		queue:    queue,
		timeout:  3 * time.Second,
		cooldown: 15 * time.Second,
		log:      log,
		now:      time.Now,
	}
	p.dial = func() (*amqp.Connection, error) {
		return amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
	}
	return p
}

// channel returns the open channel, dialling when there is none.  Callers
// hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if p.now().Before(p.retryAfter) {
		return nil, ErrBrokerUnavailable
	}

	conn, err := p.dial()
	if err != nil {
		p.retryAfter = p.now().Add(p.cooldown)
		p.log.Warn("rabbitmq dial failed", zap.Duration("retry_in", p.cooldown), zap.Error(err))
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.retryAfter = p.now().Add(p.cooldown)
		return nil, err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.retryAfter = p.now().Add(p.cooldown)
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// PublishAudit marks the message persistent.  Errors are returned so the
// caller can log and carry on; the transition is never rolled back.
func (p *Publisher) PublishAudit(ctx context.Context, e model.AuditEntry) error {
	body, err := json.Marshal(EventFromAudit(e))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    time.Now().UTC(),
		Type:         string(e.Action),
		Body:         body,
	})
	if err != nil {
		// Drop the session; the next publish dials a fresh one.
		p.reset()
	}
	return err
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
