package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ak/pos/internal/domain/services"
	"github.com/ak/pos/internal/infrastructure/config"
	"github.com/ak/pos/internal/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaPublisher delivers order events to a Kafka topic, keyed by tenant so
// each tenant's orders stay in partition order.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

func NewKafkaPublisher(cfg config.KafkaConfig, log *logger.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{
		writer: writer,
		logger: log.WithComponent("events"),
	}
}

func (p *KafkaPublisher) OrderCommitted(ctx context.Context, evt *services.OrderCommittedEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.TenantKey),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("order.committed")},
		},
	})
	if err != nil {
		return err
	}
	p.logger.Debug("published order.committed",
		zap.String("order_number", evt.OrderNumber),
		zap.String("tenant", evt.TenantKey))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
