package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/cart"
)

const publishTimeout = 3 * time.Second

// publishChannel is the subset of *amqp.Channel the publisher needs.
type publishChannel interface {
	exchangeDeclarer
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type envelopeBuilder struct {
	seq SequenceRepository
}

func (b envelopeBuilder) build(ctx context.Context, c *cart.Cart, meta cart.CheckoutMetadata) (CartCheckedOutEnvelope, error) {
	env := NewCartCheckedOut(c, meta)
	if b.seq != nil {
		seq, err := b.seq.NextSequence(ctx, env.PartitionKey)
		if err != nil {
			return CartCheckedOutEnvelope{}, fmt.Errorf("next sequence: %w", err)
		}
		env.Sequence = seq
	}
	return env, nil
}

// RabbitPublisher publishes CartCheckedOut envelopes to the events exchange.
type RabbitPublisher struct {
	envelopeBuilder

	mu  sync.Mutex // amqp channels are not safe for concurrent publish
	ch  publishChannel
	log logrus.FieldLogger
}

func NewRabbitPublisher(conn *amqp.Connection, seq SequenceRepository, log logrus.FieldLogger) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newRabbitPublisher(ch, seq, log)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return p, nil
}

func newRabbitPublisher(ch publishChannel, seq SequenceRepository, log logrus.FieldLogger) (*RabbitPublisher, error) {
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	return &RabbitPublisher{
		envelopeBuilder: envelopeBuilder{seq: seq},
		ch:              ch,
		log:             log,
	}, nil
}

func (p *RabbitPublisher) PublishCartCheckedOut(ctx context.Context, c *cart.Cart, meta cart.CheckoutMetadata) error {
	env, err := p.build(ctx, c, meta)
	if err != nil {
		return err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", CartCheckedOutEventName, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	err = p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		CartCheckedOutRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.EventID,
			CorrelationId: env.CorrelationID,
			Type:          env.EventName,
			Timestamp:     env.OccurredAt,
			Body:          body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", CartCheckedOutEventName, err)
	}

	p.log.WithFields(logrus.Fields{
		"event_id":       env.EventID,
		"cart_id":        env.Payload.CartID,
		"sequence":       env.Sequence,
		"correlation_id": env.CorrelationID,
	}).Info("cart checked out event published")
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}

// LogPublisher stands in for RabbitPublisher when no broker is configured.
// Envelopes are still built and sequenced, then written to the log.
type LogPublisher struct {
	envelopeBuilder
	log logrus.FieldLogger
}

func NewLogPublisher(seq SequenceRepository, log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{envelopeBuilder: envelopeBuilder{seq: seq}, log: log}
}

func (p *LogPublisher) PublishCartCheckedOut(ctx context.Context, c *cart.Cart, meta cart.CheckoutMetadata) error {
	env, err := p.build(ctx, c, meta)
	if err != nil {
		return err
	}

	p.log.WithFields(logrus.Fields{
		"event":          env.EventName,
		"event_id":       env.EventID,
		"cart_id":        env.Payload.CartID,
		"user_id":        env.Payload.UserID,
		"total_amount":   env.Payload.TotalAmount,
		"sequence":       env.Sequence,
		"correlation_id": env.CorrelationID,
	}).Info("no broker configured, event logged only")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
