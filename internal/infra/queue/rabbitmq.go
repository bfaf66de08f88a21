package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.leadflow"
	DLXName      = "ex.leadflow.dlx"

	StepDueQueue      = "q.followup.steps"
	StepDueDLQ        = "q.followup.steps.dlq"
	StepDueRoutingKey = "k.followup.step_due"

	// Lead events are published for downstream consumers (CRM, analytics),
	// which declare and bind their own queues.
	LeadEventRoutingKey = "k.lead.event"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.Ch.Close(); err != nil {
		_ = r.Conn.Close()
		return err
	}
	return r.Conn.Close()
}

func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(StepDueDLQ, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(StepDueDLQ, StepDueRoutingKey, DLXName, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": StepDueRoutingKey,
	}
	if _, err := ch.QueueDeclare(StepDueQueue, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(StepDueQueue, StepDueRoutingKey, ExchangeName, false, nil)
}
