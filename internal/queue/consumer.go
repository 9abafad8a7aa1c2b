package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer appends sale.paid events to <Dir>/sales.log.
type Consumer struct {
	URL   string
	Queue string
	Dir   string
}

// NewConsumer returns a Consumer writing to the logs directory.
func NewConsumer(url string) *Consumer {
	return &Consumer{URL: url, Queue: SalePaidQueue, Dir: "logs"}
}

// Run consumes until ctx is canceled, reconnecting with exponential backoff
// when the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err == nil {
			backoff = time.Second
			err = c.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		log.Warnf("sale-consumer: %v; retrying in %s", err, backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for d := range msgs {
		if err := c.handleMessage(d.Body); err != nil {
			log.Errorf("sale-consumer: %v", err)
			// malformed events would loop forever if requeued
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev SalePaidEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.SaleID == "" {
		return errors.New("event without sale_id")
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.Dir, "sales.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open sales log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write sales log: %w", err)
	}
	return nil
}

func formatLine(ev SalePaidEvent) string {
	return fmt.Sprintf("[%s] Sale paid | sale_id=%s | buyer_id=%d | occurrence_id=%d | title=%q | starts_at=%s | ticket=%s | total=%d cents | seats=[%s]\n",
		ev.PaidAt, ev.SaleID, ev.BuyerID, ev.OccurrenceID, ev.Title, ev.StartsAt, ev.TicketCode, ev.TotalCents, strings.Join(ev.Seats, ","))
}
