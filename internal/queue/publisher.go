package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/seat-reservation/internal/model"
)

// Publisher sends sale.paid events to RabbitMQ.  It dials per event, which
// is fine for the payment rate of a box office.
type Publisher struct {
	URL   string
	Queue string
}

// NewPublisher returns a Publisher for the default sale.paid queue.
func NewPublisher(url string) *Publisher {
	return &Publisher{URL: url, Queue: SalePaidQueue}
}

// SalePaid publishes a persistent SalePaidEvent.  It satisfies the
// engine's notifier interface.
func (p *Publisher) SalePaid(ctx context.Context, sale *model.Sale, occ *model.Occurrence) error {
	body, err := json.Marshal(NewSalePaidEvent(sale, occ))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	err = ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    sale.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
