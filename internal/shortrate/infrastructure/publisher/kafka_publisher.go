package publisher

import (
	"context"

	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	"github.com/wyfcoding/shortrate/pkg/logger"
)

// MessageProducer is satisfied by *mq.KafkaProducer.
type MessageProducer interface {
	SendMessage(ctx context.Context, topic string, key string, value any) error
}

// KafkaEventPublisher 基于 Kafka 的领域事件发布者
type KafkaEventPublisher struct {
	producer MessageProducer
}

// NewKafkaEventPublisher 创建 Kafka 事件发布者
func NewKafkaEventPublisher(producer MessageProducer) domain.EventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// Publish 以 JSON 发布事件，key 决定分区
func (p *KafkaEventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.producer.SendMessage(ctx, topic, key, event)
}

// NoopEventPublisher 未配置 broker 时使用，只记录调试日志
type NoopEventPublisher struct{}

// NewNoopEventPublisher 创建空发布者
func NewNoopEventPublisher() domain.EventPublisher {
	return &NoopEventPublisher{}
}

// Publish 丢弃事件
func (p *NoopEventPublisher) Publish(ctx context.Context, topic string, key string, _ any) error {
	logger.Debug(ctx, "event dropped, no brokers configured", "topic", topic, "key", key)
	return nil
}
