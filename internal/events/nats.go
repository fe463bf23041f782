package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Conn: часть *nats.Conn, нужная публикатору
type Conn interface {
	Publish(subject string, data []byte) error
}

type NatsPublisher struct {
	conn   Conn
	logger *zap.Logger
}

// NewNatsPublisher подключается к NATS; возвращает и соединение, чтобы main мог его закрыть
func NewNatsPublisher(natsURL string, logger *zap.Logger) (*NatsPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(natsURL, nats.Name("lesson-scheduler"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	return NewPublisherWithConn(nc, logger), nc, nil
}

func NewPublisherWithConn(conn Conn, logger *zap.Logger) *NatsPublisher {
	return &NatsPublisher{conn: conn, logger: logger}
}

func (p *NatsPublisher) Publish(ctx context.Context, event BookingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	subject := event.Type.Subject()
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Debug("Published booking event",
		zap.String("subject", subject),
		zap.Int64("booking_id", event.BookingID))

	return nil
}
