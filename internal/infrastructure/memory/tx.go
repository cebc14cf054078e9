package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

type memTx struct {
	state *state
	now   func() time.Time
}

func (t *memTx) LockContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	c, ok := t.state.contracts[id]
	if !ok {
		return nil, apperror.ErrContractNotFound
	}
	return &c, nil
}

func (t *memTx) LockOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	o, ok := t.state.orders[id]
	if !ok {
		return nil, apperror.ErrOrderNotFound
	}
	return &o, nil
}

func (t *memTx) InsertContract(ctx context.Context, c *entity.Contract) error {
	if _, taken := t.state.contractNumbers[c.Number]; taken {
		return repository.ErrDuplicateNumber
	}
	c.Version = 1
	t.state.contracts[c.ID] = *c
	t.state.contractNumbers[c.Number] = c.ID
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *entity.Order) error {
	if _, taken := t.state.orderNumbers[o.Number]; taken {
		return repository.ErrDuplicateNumber
	}
	o.Version = 1
	stored := *o
	stored.Deliverables = nil
	t.state.orders[o.ID] = stored
	t.state.orderNumbers[o.Number] = o.ID
	return nil
}

func (t *memTx) UpdateContract(ctx context.Context, c *entity.Contract) error {
	current, ok := t.state.contracts[c.ID]
	if !ok {
		return apperror.ErrContractNotFound
	}
	if current.Version != c.Version {
		return apperror.ErrConcurrentUpdate
	}
	c.Version++
	t.state.contracts[c.ID] = *c
	return nil
}

func (t *memTx) UpdateOrder(ctx context.Context, o *entity.Order) error {
	current, ok := t.state.orders[o.ID]
	if !ok {
		return apperror.ErrOrderNotFound
	}
	if current.Version != o.Version {
		return apperror.ErrConcurrentUpdate
	}
	o.Version++
	stored := *o
	stored.Deliverables = nil
	t.state.orders[o.ID] = stored
	return nil
}

func (t *memTx) GetDeliverable(ctx context.Context, orderID, id uuid.UUID) (*entity.Deliverable, error) {
	for _, d := range t.state.deliverables[orderID] {
		if d.ID == id {
			out := d
			return &out, nil
		}
	}
	return nil, apperror.ErrDeliverableNotFound
}

func (t *memTx) InsertDeliverable(ctx context.Context, d *entity.Deliverable) error {
	t.state.deliverables[d.OrderID] = append(t.state.deliverables[d.OrderID], *d)
	return nil
}

func (t *memTx) UpdateDeliverable(ctx context.Context, d *entity.Deliverable) error {
	list := t.state.deliverables[d.OrderID]
	for i := range list {
		if list[i].ID == d.ID {
			list[i] = *d
			return nil
		}
	}
	return apperror.ErrDeliverableNotFound
}

func (t *memTx) CountRevisionDeliverables(ctx context.Context, orderID uuid.UUID) (int, error) {
	n := 0
	for _, d := range t.state.deliverables[orderID] {
		if d.IsRevision {
			n++
		}
	}
	return n, nil
}

func (t *memTx) AppendEvent(ctx context.Context, e *entity.Event) error {
	t.state.events = append(t.state.events, *e)
	return nil
}

func (t *memTx) EnqueueOutbox(ctx context.Context, m *entity.OutboxMessage) error {
	t.state.outbox = append(t.state.outbox, *m)
	return nil
}

func (t *memTx) UpsertRepairIntent(ctx context.Context, intent *entity.OrderSpawnIntent) error {
	if current, ok := t.state.intents[intent.ContractID]; ok {
		intent.CreatedAt = current.CreatedAt
		intent.Attempts = current.Attempts + 1
	} else if intent.Attempts == 0 {
		intent.Attempts = 1
	}
	intent.ResolvedAt = nil
	t.state.intents[intent.ContractID] = *intent
	return nil
}

func (t *memTx) ResolveRepairIntent(ctx context.Context, contractID, orderID uuid.UUID) error {
	intent, ok := t.state.intents[contractID]
	if !ok {
		return nil
	}
	stamp := t.now()
	if orderID != uuid.Nil {
		id := orderID
		intent.OrderID = &id
	}
	intent.ResolvedAt = &stamp
	intent.UpdatedAt = stamp
	t.state.intents[contractID] = intent
	return nil
}

// Savepoint сохраняет копию состояния и восстанавливает её при ошибке fn.
func (t *memTx) Savepoint(ctx context.Context, name string, fn func() error) error {
	snapshot := t.state.clone()
	if err := fn(); err != nil {
		t.state = snapshot
		return err
	}
	return nil
}
