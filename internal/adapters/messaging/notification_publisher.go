package messaging

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

var _ ports.NotificationPublisher = (*RabbitMQBroker)(nil)

// Publish sends n to the notification queue as a persistent JSON message.
// The notification id doubles as the AMQP message id so consumers can dedupe
// redeliveries from the relay.
func (rmq *RabbitMQBroker) Publish(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	// Respect context deadline
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return ctx.Err()
		}
	}

	_, err = rmq.cb.Execute(func() (interface{}, error) {
		err := rmq.ch.PublishWithContext(
			ctx,
			"",            // exchange (default)
			rmq.queueName, // routing key == queue name
			false,         // mandatory
			false,         // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    n.ID,
				Type:         string(n.Type),
				Timestamp:    n.OccurredAt,
				Body:         body,
			},
		)
		return nil, err
	})
	return err
}
