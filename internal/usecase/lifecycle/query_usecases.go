package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

func (e *Engine) GetContract(ctx context.Context, id uuid.UUID, actor entity.Actor) (*entity.Contract, error) {
	c, err := e.store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.CanView(actor) {
		return nil, apperror.ErrForbidden
	}
	return c, nil
}

// GetOrder возвращает заказ вместе с результатами работы.
func (e *Engine) GetOrder(ctx context.Context, id uuid.UUID, actor entity.Actor) (*entity.Order, error) {
	o, err := e.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.CanView(actor) {
		return nil, apperror.ErrForbidden
	}
	o.Deliverables, err = e.store.ListDeliverables(ctx, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (e *Engine) ListContractEvents(ctx context.Context, id uuid.UUID, actor entity.Actor) ([]entity.Event, error) {
	if _, err := e.GetContract(ctx, id, actor); err != nil {
		return nil, err
	}
	return e.store.ListEvents(ctx, valueobject.AggregateContract, id)
}

func (e *Engine) ListOrderEvents(ctx context.Context, id uuid.UUID, actor entity.Actor) ([]entity.Event, error) {
	o, err := e.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.CanView(actor) {
		return nil, apperror.ErrForbidden
	}
	return e.store.ListEvents(ctx, valueobject.AggregateOrder, id)
}
