// Package mailqueue moves outbound mail through RabbitMQ so that request
// handlers never wait on SMTP.
package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"yks_coach_backend/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Message 一封待发送的邮件
type Message struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	QueueAt time.Time `json:"queued_at"`
}

// Handler 处理一条消息，返回错误时消息被拒绝且不重新入队
type Handler func(ctx context.Context, msg Message) error

type Publisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

func (p *Publisher) connection() (*amqp.Connection, error) {
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	p.conn = conn
	return conn, nil
}

// Publish 以持久化消息写入队列
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.connection()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	if msg.QueueAt.IsZero() {
		msg.QueueAt = time.Now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.QueueAt,
		Body:         body,
	})
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}

// Consume 连接 RabbitMQ 并持续消费，断线后指数退避重连，ctx 取消时返回
func Consume(ctx context.Context, url, queue string, handle Handler) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Log.Warn("mail consumer: dial failed",
				zap.Duration("retry_in", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, handle)
		_ = conn.Close()
		if err != nil {
			logger.Log.Warn("mail consumer: loop ended, reconnecting", zap.Error(err))
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, handle Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		logger.Log.Warn("mail consumer: set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			handleDelivery(ctx, d, handle)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, handle Handler) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		logger.Log.Error("mail consumer: bad payload", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := handle(ctx, msg); err != nil {
		logger.Log.Error("mail consumer: send failed", zap.String("to", msg.To), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
