package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"nunbody/internal/models"
)

// KafkaBus publishes photo events to a topic and consumes them in a consumer group.
type KafkaBus struct {
	cfg    models.KafkaConfig
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaBus(cfg models.KafkaConfig, log *zap.Logger) *KafkaBus {
	return &KafkaBus{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		log: log,
	}
}

func (b *KafkaBus) Publish(ctx context.Context, e Event) error {
	const op = "events.KafkaBus.Publish"

	value, err := e.encode()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := b.writer.WriteMessages(ctx, kafka.Message{Key: e.key(), Value: value}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (b *KafkaBus) Consume(ctx context.Context, h Handler) error {
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.cfg.Brokers,
		Topic:   b.cfg.Topic,
		GroupID: b.cfg.GroupID,
	})
	defer consumer.Close()

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			b.log.Warn("error reading message", zap.Error(err))
			continue
		}
		e, err := decode(msg.Value)
		if err != nil {
			b.log.Warn("dropping undecodable event", zap.ByteString("key", msg.Key), zap.Error(err))
			continue
		}
		if err := h(ctx, e); err != nil {
			b.log.Error("error handling event", zap.String("type", string(e.Type)), zap.Int64("photo_id", e.PhotoID), zap.Error(err))
		}
	}
}

func (b *KafkaBus) Close() error {
	return b.writer.Close()
}
