package events

import (
	"context"
	"strings"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
)

// Publisher отправляет сообщения outbox во внешнюю шину.
type Publisher interface {
	Publish(ctx context.Context, m *entity.OutboxMessage) error
	Close() error
}

// KafkaPublisher публикует события жизненного цикла в Kafka.
// Ключ сообщения - идентификатор агрегата, поэтому события одного
// контракта или заказа попадают в одну партицию по порядку.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	log      logrus.FieldLogger
}

func newProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Version = sarama.V2_6_0_0
	return config
}

func NewKafkaPublisher(brokers string, log logrus.FieldLogger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(splitBrokers(brokers), newProducerConfig())
	if err != nil {
		return nil, err
	}
	return NewKafkaPublisherWithProducer(producer, log), nil
}

// NewKafkaPublisherWithProducer оборачивает готовый продюсер.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, log logrus.FieldLogger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, m *entity.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: m.Topic,
		Key:   sarama.StringEncoder(m.Key),
		Value: sarama.ByteEncoder(m.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_id"), Value: []byte(m.ID.String())},
		},
		Timestamp: m.CreatedAt,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.WithError(err).WithField("event_id", m.ID).Error("events: не удалось отправить сообщение в Kafka")
		return err
	}

	p.log.WithFields(logrus.Fields{
		"topic":     m.Topic,
		"partition": partition,
		"offset":    offset,
		"event_id":  m.ID,
	}).Debug("events: событие опубликовано")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// LogPublisher только пишет события в лог. Используется без Kafka.
type LogPublisher struct {
	log logrus.FieldLogger
}

func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, m *entity.OutboxMessage) error {
	p.log.WithFields(logrus.Fields{
		"topic":    m.Topic,
		"key":      m.Key,
		"event_id": m.ID,
		"payload":  string(m.Payload),
	}).Info("events: событие")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
