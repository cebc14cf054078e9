package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
)

// ErrDuplicateNumber возвращается при нарушении уникальности номера контракта или заказа.
var ErrDuplicateNumber = errors.New("duplicate document number")

// LifecycleStore - хранилище контрактов и заказов с транзакционной границей.
type LifecycleStore interface {
	// WithinTx выполняет fn в одной транзакции. Ошибка fn откатывает все записи.
	WithinTx(ctx context.Context, fn func(tx LifecycleTx) error) error

	GetContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	ListDeliverables(ctx context.Context, orderID uuid.UUID) ([]entity.Deliverable, error)
	ListEvents(ctx context.Context, aggregate valueobject.AggregateType, id uuid.UUID) ([]entity.Event, error)
	ListPendingRepairs(ctx context.Context, limit int) ([]entity.OrderSpawnIntent, error)
}

// LifecycleTx - операции внутри транзакции. Lock* блокируют строку до конца транзакции.
type LifecycleTx interface {
	LockContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error)

	InsertContract(ctx context.Context, c *entity.Contract) error
	InsertOrder(ctx context.Context, o *entity.Order) error
	// UpdateContract и UpdateOrder сверяют Version и увеличивают его.
	UpdateContract(ctx context.Context, c *entity.Contract) error
	UpdateOrder(ctx context.Context, o *entity.Order) error

	GetDeliverable(ctx context.Context, orderID, id uuid.UUID) (*entity.Deliverable, error)
	InsertDeliverable(ctx context.Context, d *entity.Deliverable) error
	UpdateDeliverable(ctx context.Context, d *entity.Deliverable) error
	CountRevisionDeliverables(ctx context.Context, orderID uuid.UUID) (int, error)

	AppendEvent(ctx context.Context, e *entity.Event) error
	EnqueueOutbox(ctx context.Context, m *entity.OutboxMessage) error

	UpsertRepairIntent(ctx context.Context, intent *entity.OrderSpawnIntent) error
	ResolveRepairIntent(ctx context.Context, contractID, orderID uuid.UUID) error

	// Savepoint откатывает только записи fn, если она вернула ошибку.
	Savepoint(ctx context.Context, name string, fn func() error) error
}

// OutboxStore выдаёт неопубликованные сообщения. Сообщения, для которых fn вернула
// ошибку, остаются в очереди с увеличенным счётчиком попыток.
type OutboxStore interface {
	ProcessOutbox(ctx context.Context, limit int, fn func(ctx context.Context, m *entity.OutboxMessage) error) (int, error)
}

type ServiceCatalog interface {
	GetService(ctx context.Context, id uuid.UUID) (*entity.Service, error)
}

type AttachmentResolver interface {
	// Resolve находит загруженный файл владельца и возвращает его описание.
	Resolve(ctx context.Context, fileRef uuid.UUID, ownerID uuid.UUID) (*entity.Attachment, error)
}
