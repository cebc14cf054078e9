package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/events"
)

func outboxMessage(t *testing.T) *entity.OutboxMessage {
	t.Helper()
	ev := entity.NewOrderEvent(uuid.New(), entity.System, valueobject.EventOrderCompleted, "Заказ завершён", nil,
		time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	m, err := entity.NewOutboxMessage("order.events", ev)
	require.NoError(t, err)
	return m
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	defer producer.Close()

	m := outboxMessage(t)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "order.events" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != m.Key {
			return errors.New("message key must be the aggregate id")
		}
		return nil
	})

	log, _ := test.NewNullLogger()
	err := events.NewKafkaPublisherWithProducer(producer, log).Publish(context.Background(), m)
	assert.NoError(t, err)
}

func TestKafkaPublisher_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	defer producer.Close()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	log, hook := test.NewNullLogger()
	err := events.NewKafkaPublisherWithProducer(producer, log).Publish(context.Background(), outboxMessage(t))

	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "error", hook.LastEntry().Level.String())
}

func TestLogPublisher(t *testing.T) {
	log, hook := test.NewNullLogger()
	require.NoError(t, events.NewLogPublisher(log).Publish(context.Background(), outboxMessage(t)))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "order.events", hook.LastEntry().Data["topic"])
}
