package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LeadEvent is emitted after every lifecycle intent that changed a lead.
type LeadEvent struct {
	Type       string    `json:"type"`
	Tenant     string    `json:"tenant"`
	LeadID     string    `json:"lead_id"`
	Status     string    `json:"status,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StepDuePayload asks the worker to deliver one sequence step to a lead.
type StepDuePayload struct {
	Tenant       string    `json:"tenant"`
	FollowUpID   string    `json:"followup_id"`
	LeadID       string    `json:"lead_id"`
	LeadName     string    `json:"lead_name"`
	LeadEmail    string    `json:"lead_email"`
	SequenceID   string    `json:"sequence_id"`
	SequenceName string    `json:"sequence_name"`
	StepIndex    int       `json:"step_index"`
	Channel      string    `json:"channel"`
	Subject      string    `json:"subject,omitempty"`
	Content      string    `json:"content,omitempty"`
	DueAt        time.Time `json:"due_at"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	ch publisher
}

func NewProducer(ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{ch: ch}
}

func (p *RabbitMQProducer) PublishLeadEvent(ctx context.Context, event LeadEvent) error {
	return p.publish(ctx, LeadEventRoutingKey, event)
}

func (p *RabbitMQProducer) PublishStepDue(ctx context.Context, payload StepDuePayload) error {
	return p.publish(ctx, StepDueRoutingKey, payload)
}

func (p *RabbitMQProducer) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}
