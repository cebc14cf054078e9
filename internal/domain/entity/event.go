package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
)

// Event - запись журнала. Не изменяется и не удаляется.
type Event struct {
	ID            uuid.UUID
	AggregateType valueobject.AggregateType
	AggregateID   uuid.UUID
	ActorID       *uuid.UUID
	Type          valueobject.EventType
	Description   string
	Metadata      map[string]any
	CreatedAt     time.Time
}

func NewContractEvent(contractID uuid.UUID, actor Actor, eventType valueobject.EventType, description string, metadata map[string]any, now time.Time) *Event {
	return newEvent(valueobject.AggregateContract, contractID, actor, eventType, description, metadata, now)
}

func NewOrderEvent(orderID uuid.UUID, actor Actor, eventType valueobject.EventType, description string, metadata map[string]any, now time.Time) *Event {
	return newEvent(valueobject.AggregateOrder, orderID, actor, eventType, description, metadata, now)
}

func newEvent(aggregate valueobject.AggregateType, id uuid.UUID, actor Actor, eventType valueobject.EventType, description string, metadata map[string]any, now time.Time) *Event {
	return &Event{
		ID:            uuid.New(),
		AggregateType: aggregate,
		AggregateID:   id,
		ActorID:       actor.ActorRef(),
		Type:          eventType,
		Description:   description,
		Metadata:      metadata,
		CreatedAt:     now,
	}
}
