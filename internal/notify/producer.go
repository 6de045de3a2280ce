// README: RabbitMQ producer for transition events, with a no-op fallback when
// the broker is unavailable at startup.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Publisher is implemented by the real producer and the fallback.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body any) error
	Close()
}

type Producer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewProducer(amqpURL string) (*Producer, error) {
	conn, err := amqp091.DialConfig(amqpURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Producer{conn: conn, channel: ch}, nil
}

func (p *Producer) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        payload,
	})
}

func (p *Producer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// NopPublisher logs and drops events; used when the broker is down so the
// lifecycle machine never blocks on notification delivery.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	log.Printf("[NOTIFY] broker unavailable; dropped event exchange=%s key=%s", exchange, routingKey)
	return nil
}

func (NopPublisher) Close() {}
