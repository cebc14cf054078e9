package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxMessage - событие, ожидающее публикации в шину. Пишется в той же транзакции, что и событие.
type OutboxMessage struct {
	ID          uuid.UUID
	Topic       string
	Key         string
	Payload     []byte
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// EventEnvelope - формат сообщения о событии жизненного цикла в шине.
type EventEnvelope struct {
	EventID       uuid.UUID      `json:"event_id"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   uuid.UUID      `json:"aggregate_id"`
	Type          string         `json:"type"`
	ActorID       *uuid.UUID     `json:"actor_id,omitempty"`
	Description   string         `json:"description"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

func NewOutboxMessage(topic string, e *Event) (*OutboxMessage, error) {
	payload, err := json.Marshal(EventEnvelope{
		EventID:       e.ID,
		AggregateType: string(e.AggregateType),
		AggregateID:   e.AggregateID,
		Type:          string(e.Type),
		ActorID:       e.ActorID,
		Description:   e.Description,
		Metadata:      e.Metadata,
		OccurredAt:    e.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		ID:        e.ID,
		Topic:     topic,
		Key:       e.AggregateID.String(),
		Payload:   payload,
		CreatedAt: e.CreatedAt,
	}, nil
}

// OrderSpawnIntent - запись о контракте, принятом без заказа. Закрывается заданием восстановления.
type OrderSpawnIntent struct {
	ContractID uuid.UUID
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
	OrderID    *uuid.UUID
}
