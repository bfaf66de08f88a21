package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// StepHandler delivers one due step. Returning an error dead-letters the message.
type StepHandler interface {
	HandleStepDue(ctx context.Context, payload StepDuePayload) error
}

type Worker struct {
	Channel *amqp.Channel
	Handler StepHandler
	log     logrus.FieldLogger
}

func NewWorker(ch *amqp.Channel, handler StepHandler, log logrus.FieldLogger) *Worker {
	return &Worker{
		Channel: ch,
		Handler: handler,
		log:     log.WithField("component", "step_worker"),
	}
}

// Start consumes queueName until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.log.Infof("👷 Worker waiting on queue '%s'", queueName)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var payload StepDuePayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		w.log.WithError(err).Warn("❌ Invalid step payload, dead-lettering")
		_ = d.Nack(false, false)
		return
	}

	log := w.log.WithFields(logrus.Fields{
		"tenant":      payload.Tenant,
		"followup_id": payload.FollowUpID,
		"step":        payload.StepIndex,
		"channel":     payload.Channel,
	})
	if err := w.Handler.HandleStepDue(ctx, payload); err != nil {
		log.WithError(err).Error("❌ Step delivery failed")
		_ = d.Nack(false, false)
		return
	}
	log.Info("✅ Step delivered")
	_ = d.Ack(false)
}
