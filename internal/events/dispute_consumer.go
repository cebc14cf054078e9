package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-contracts/internal/usecase/lifecycle"
)

const (
	DisputeOpened   = "dispute.opened"
	DisputeResolved = "dispute.resolved"

	defaultRetries    = 3
	defaultRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

// DisputeMessage - сообщение подсистемы споров.
type DisputeMessage struct {
	Type       string     `json:"type"`
	DisputeID  uuid.UUID  `json:"dispute_id"`
	OrderID    uuid.UUID  `json:"order_id"`
	Outcome    string     `json:"outcome,omitempty"`
	ResolvedBy *uuid.UUID `json:"resolved_by,omitempty"`
}

// DisputeEngine - операции движка, которые вызывает подсистема споров.
type DisputeEngine interface {
	EnterDispute(ctx context.Context, orderID, disputeID uuid.UUID, actor entity.Actor) (*entity.Order, error)
	ResolveDispute(ctx context.Context, orderID, disputeID uuid.UUID, outcome valueobject.DisputeOutcome, actor entity.Actor) (*lifecycle.ContractResult, error)
}

// DisputeHandler применяет сообщения о спорах к заказам.
type DisputeHandler struct {
	engine     DisputeEngine
	log        logrus.FieldLogger
	retries    int
	retryDelay time.Duration
}

type HandlerOption func(*DisputeHandler)

// WithRetry задаёт число повторов и начальную задержку для временных ошибок.
func WithRetry(retries int, delay time.Duration) HandlerOption {
	return func(h *DisputeHandler) {
		h.retries = retries
		h.retryDelay = delay
	}
}

func NewDisputeHandler(engine DisputeEngine, log logrus.FieldLogger, opts ...HandlerOption) *DisputeHandler {
	h := &DisputeHandler{engine: engine, log: log, retries: defaultRetries, retryDelay: defaultRetryDelay}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleDisputeMessage разбирает сообщение и вызывает движок. Постоянные ошибки
// (битое сообщение, недопустимый переход) возвращаются сразу, временные повторяются.
func (h *DisputeHandler) HandleDisputeMessage(ctx context.Context, value []byte) error {
	var msg DisputeMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное сообщение о споре")
	}
	if msg.OrderID == uuid.Nil || msg.DisputeID == uuid.Nil {
		return apperror.New(apperror.ErrCodeValidation, "в сообщении о споре нет order_id или dispute_id")
	}

	var apply func() error
	switch msg.Type {
	case DisputeOpened:
		apply = func() error {
			_, err := h.engine.EnterDispute(ctx, msg.OrderID, msg.DisputeID, entity.System)
			return err
		}
	case DisputeResolved:
		outcome, err := valueobject.NewDisputeOutcome(msg.Outcome)
		if err != nil {
			return err
		}
		actor := entity.System
		if msg.ResolvedBy != nil {
			actor = entity.Actor{ID: *msg.ResolvedBy, Role: valueobject.RoleAdmin}
		}
		apply = func() error {
			_, err := h.engine.ResolveDispute(ctx, msg.OrderID, msg.DisputeID, outcome, actor)
			return err
		}
	default:
		h.log.WithField("type", msg.Type).Warn("events: неизвестный тип сообщения о споре")
		return nil
	}

	log := h.log.WithFields(logrus.Fields{"type": msg.Type, "order_id": msg.OrderID, "dispute_id": msg.DisputeID})
	delay := h.retryDelay
	var err error
	for attempt := 0; attempt <= h.retries; attempt++ {
		if attempt > 0 {
			log.WithField("attempt", attempt).WithError(err).Warn("events: повтор обработки спора")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}
		if err = apply(); err == nil || !isRetryable(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("dispute %s: %w", msg.Type, err)
	}
	log.Info("events: сообщение о споре обработано")
	return nil
}

// isRetryable: повторять имеет смысл только сбои инфраструктуры.
func isRetryable(err error) bool {
	switch apperror.CodeOf(err) {
	case apperror.ErrCodeDatabaseError, apperror.ErrCodeInternal, "":
		return true
	default:
		return false
	}
}

// DisputeConsumer читает топик споров в составе группы потребителей.
type DisputeConsumer struct {
	group   sarama.ConsumerGroup
	handler *DisputeHandler
	log     logrus.FieldLogger
	topics  []string
}

func NewDisputeConsumer(brokers, groupID, topic string, handler *DisputeHandler, log logrus.FieldLogger) (*DisputeConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_6_0_0

	group, err := sarama.NewConsumerGroup(splitBrokers(brokers), groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return &DisputeConsumer{group: group, handler: handler, log: log, topics: []string{topic}}, nil
}

// Start блокируется до отмены ctx.
func (c *DisputeConsumer) Start(ctx context.Context) error {
	handler := &disputeGroupHandler{handler: c.handler, log: c.log}
	for {
		select {
		case <-ctx.Done():
			c.log.Info("events: потребитель споров остановлен")
			return nil
		default:
			if err := c.group.Consume(ctx, c.topics, handler); err != nil {
				c.log.WithError(err).Error("events: ошибка чтения из Kafka")
				return err
			}
		}
	}
}

func (c *DisputeConsumer) Close() error {
	return c.group.Close()
}

type disputeGroupHandler struct {
	handler *DisputeHandler
	log     logrus.FieldLogger
}

func (h *disputeGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Debug("events: сессия группы потребителей начата")
	return nil
}

func (h *disputeGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Debug("events: сессия группы потребителей завершена")
	return nil
}

// ConsumeClaim отмечает сообщение обработанным и после неудачи: ошибка уже
// прошла повторы, а застрявшее сообщение остановило бы всю партицию.
func (h *disputeGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			if err := h.handler.HandleDisputeMessage(session.Context(), message.Value); err != nil {
				h.log.WithFields(logrus.Fields{
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
				}).WithError(err).Error("events: сообщение о споре не обработано")
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
