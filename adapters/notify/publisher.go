package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ActionCommunityCreated = "community.created"
	ActionCommunityUpdated = "community.updated"
	ActionCommunityDeleted = "community.deleted"
	ActionMemberAdded      = "member.added"
	ActionMemberRemoved    = "member.removed"

	routingKeyPrefix = "communities."
)

type Meta struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Source     string    `json:"source,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Envelope is the JSON body of every change notification.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

func (e Envelope) RoutingKey() string {
	return routingKeyPrefix + e.Meta.Type
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes envelopes to a durable topic exchange.
type AMQPPublisher struct {
	exchange string
	appID    string
	conn     *amqp.Connection

	mu sync.Mutex
	ch channel
}

type AMQPOption func(*AMQPPublisher)

func WithAppID(appID string) AMQPOption {
	return func(p *AMQPPublisher) {
		p.appID = strings.TrimSpace(appID)
	}
}

// DialAMQP connects to url and declares exchange as a durable topic exchange.
func DialAMQP(url string, exchange string, opts ...AMQPOption) (*AMQPPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("notify: amqp url is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("notify: open channel: %w", err)
	}
	publisher, err := newAMQPPublisher(ch, exchange, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	publisher.conn = conn
	return publisher, nil
}

func newAMQPPublisher(ch channel, exchange string, opts ...AMQPOption) (*AMQPPublisher, error) {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		return nil, fmt.Errorf("notify: exchange is required")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("notify: declare exchange %q: %w", exchange, err)
	}
	publisher := &AMQPPublisher{
		exchange: exchange,
		appID:    "go-communities",
		ch:       ch,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(publisher)
		}
	}
	return publisher, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, env Envelope) error {
	if p == nil {
		return fmt.Errorf("notify: publisher is nil")
	}
	if strings.TrimSpace(env.Meta.ID) == "" {
		return fmt.Errorf("notify: envelope meta id is required")
	}
	if env.Meta.OccurredAt.IsZero() {
		env.Meta.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("notify: marshal envelope: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return fmt.Errorf("notify: publisher is closed")
	}
	return p.ch.PublishWithContext(ctx, p.exchange, env.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    env.Meta.ID,
		Type:         env.Meta.Type,
		Timestamp:    env.Meta.OccurredAt,
		AppId:        p.appID,
	})
}

func (p *AMQPPublisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			firstErr = err
		}
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}

func newEnvelope(action string, data any, now time.Time, source string) Envelope {
	return Envelope{
		Meta: Meta{
			ID:         uuid.NewString(),
			Type:       action,
			Source:     source,
			OccurredAt: now,
		},
		Data: data,
	}
}

var _ Publisher = (*AMQPPublisher)(nil)
