package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

type CreateContractInput struct {
	ServiceID          uuid.UUID
	ClientID           uuid.UUID
	ConversationID     *uuid.UUID
	ScopeOfWork        string
	CancellationPolicy string
	Price              *decimal.Decimal
	Currency           string
	DeliveryDays       *int
	RevisionsIncluded  *int
}

func (in CreateContractInput) terms() entity.ContractTerms {
	return entity.ContractTerms{
		ClientID:           in.ClientID,
		ConversationID:     in.ConversationID,
		ScopeOfWork:        in.ScopeOfWork,
		CancellationPolicy: in.CancellationPolicy,
		Price:              in.Price,
		Currency:           in.Currency,
		DeliveryDays:       in.DeliveryDays,
		RevisionsIncluded:  in.RevisionsIncluded,
	}
}

// ContractResult - контракт и связанный с ним заказ, если он есть.
type ContractResult struct {
	Contract *entity.Contract
	Order    *entity.Order
}

// CreateContract создаёт оферту фрилансера по услуге из каталога.
func (e *Engine) CreateContract(ctx context.Context, actor entity.Actor, in CreateContractInput) (_ *entity.Contract, err error) {
	ctx, span := e.startSpan(ctx, "CreateContract", actorAttrs(actor)...)
	defer func() { endSpan(span, err) }()

	service, err := e.catalog.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	contract, err := entity.NewContract(*service, actor, in.terms(), "", now)
	if err != nil {
		return nil, err
	}

	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		if err := e.insertContract(ctx, tx, contract); err != nil {
			return err
		}
		return e.record(ctx, tx, entity.NewContractEvent(contract.ID, actor, valueobject.EventContractCreated,
			"Контракт "+contract.Number+" предложен клиенту",
			map[string]any{
				"service_id":          contract.ServiceID.String(),
				"client_id":           contract.ClientID.String(),
				"price":               contract.Price.Amount.String(),
				"currency":            contract.Price.Currency,
				"initiated_by":        string(valueobject.RoleFreelancer),
				"freelancer_accepted": contract.FreelancerAcceptedAt != nil,
			}, now))
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"contract_id": contract.ID,
		"number":      contract.Number,
		"actor_id":    actor.ID,
	}).Info("lifecycle: контракт создан")
	return contract, nil
}

// PlaceOrder - вход со стороны клиента: контракт и ожидающий заказ создаются вместе.
func (e *Engine) PlaceOrder(ctx context.Context, actor entity.Actor, in CreateContractInput) (_ *ContractResult, err error) {
	ctx, span := e.startSpan(ctx, "PlaceOrder", actorAttrs(actor)...)
	defer func() { endSpan(span, err) }()

	service, err := e.catalog.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	contract, err := entity.NewClientContract(*service, actor, in.terms(), "", now)
	if err != nil {
		return nil, err
	}
	order := entity.NewOrderFromContract(contract, "", valueobject.OrderStatusPendingAcceptance, now)
	contract.AttachOrder(order.ID, now)

	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		if err := e.insertContract(ctx, tx, contract); err != nil {
			return err
		}
		if err := e.insertOrder(ctx, tx, order); err != nil {
			return err
		}
		if err := e.record(ctx, tx, entity.NewContractEvent(contract.ID, actor, valueobject.EventContractCreated,
			"Контракт "+contract.Number+" оформлен клиентом",
			map[string]any{
				"order_id": order.ID.String(),
				"price":    contract.Price.Amount.String(),
				"currency": contract.Price.Currency,
				// Согласие исполнителя в этом сценарии не собирается.
				"initiated_by":        string(valueobject.RoleClient),
				"freelancer_accepted": contract.FreelancerAcceptedAt != nil,
			}, now)); err != nil {
			return err
		}
		return e.record(ctx, tx, entity.NewOrderEvent(order.ID, actor, valueobject.EventOrderCreated,
			"Заказ "+order.Number+" создан и ожидает подтверждения",
			map[string]any{"contract_id": contract.ID.String()}, now))
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"contract_id": contract.ID,
		"order_id":    order.ID,
		"actor_id":    actor.ID,
	}).Info("lifecycle: заказ оформлен клиентом")
	return &ContractResult{Contract: contract, Order: order}, nil
}

// AcceptContract принимает контракт и в той же транзакции порождает заказ.
// Если заказ создать не удалось, принятие всё равно сохраняется, а вызывающий
// получает результат вместе с ошибкой INCONSISTENT.
func (e *Engine) AcceptContract(ctx context.Context, contractID uuid.UUID, actor entity.Actor) (_ *ContractResult, err error) {
	ctx, span := e.startSpan(ctx, "AcceptContract", append(actorAttrs(actor), attribute.String("contract.id", contractID.String()))...)
	defer func() { endSpan(span, err) }()

	now := e.now()
	var (
		result   ContractResult
		spawnErr error
	)
	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		result, spawnErr = ContractResult{}, nil

		c, err := tx.LockContract(ctx, contractID)
		if err != nil {
			return err
		}
		if err := c.Accept(actor, now); err != nil {
			return err
		}
		if err := e.record(ctx, tx, entity.NewContractEvent(c.ID, actor, valueobject.EventContractAccepted,
			"Клиент принял контракт "+c.Number, map[string]any{"ip": actor.IP}, now)); err != nil {
			return err
		}
		result.Contract = c

		if c.HasOrder() {
			o, err := tx.LockOrder(ctx, *c.OrderID)
			if err != nil {
				return err
			}
			if err := o.Start(now); err != nil {
				return err
			}
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return err
			}
			if err := e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventOrderAccepted,
				"Заказ "+o.Number+" принят в работу", nil, now)); err != nil {
				return err
			}
			result.Order = o
			return tx.UpdateContract(ctx, c)
		}

		spawnErr = tx.Savepoint(ctx, "spawn_order", func() error {
			o, err := e.spawnOrder(ctx, tx, c, actor, now)
			if err != nil {
				return err
			}
			result.Order = o
			return nil
		})
		if spawnErr != nil {
			c.OrderID = nil
			if err := e.recordSpawnFailure(ctx, tx, c, actor, spawnErr, now); err != nil {
				return err
			}
		}
		return tx.UpdateContract(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	if spawnErr != nil {
		e.log.WithFields(logrus.Fields{
			"contract_id": contractID,
			"error":       spawnErr.Error(),
		}).Error("lifecycle: контракт принят, но заказ не создан; поставлен в очередь восстановления")
		return &result, apperror.Wrap(spawnErr, apperror.ErrCodeInconsistent, "контракт принят, заказ будет создан повторно")
	}

	e.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"order_id":    result.Order.ID,
		"actor_id":    actor.ID,
	}).Info("lifecycle: контракт принят")
	return &result, nil
}

// spawnOrder создаёт заказ в работе по принятому контракту.
func (e *Engine) spawnOrder(ctx context.Context, tx repository.LifecycleTx, c *entity.Contract, actor entity.Actor, now time.Time) (*entity.Order, error) {
	o := entity.NewOrderFromContract(c, "", valueobject.OrderStatusInProgress, now)
	if err := e.insertOrder(ctx, tx, o); err != nil {
		return nil, err
	}
	c.AttachOrder(o.ID, now)
	err := e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventOrderCreated,
		"Заказ "+o.Number+" создан по контракту "+c.Number,
		map[string]any{"contract_id": c.ID.String(), "delivery_date": o.DeliveryDate.Format(time.RFC3339)}, now))
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (e *Engine) recordSpawnFailure(ctx context.Context, tx repository.LifecycleTx, c *entity.Contract, actor entity.Actor, cause error, now time.Time) error {
	if err := e.record(ctx, tx, entity.NewContractEvent(c.ID, actor, valueobject.EventContractOrderSpawnFailed,
		"Не удалось создать заказ по контракту "+c.Number,
		map[string]any{"error": cause.Error(), "code": string(apperror.CodeOf(cause))}, now)); err != nil {
		return err
	}
	return tx.UpsertRepairIntent(ctx, &entity.OrderSpawnIntent{
		ContractID: c.ID,
		LastError:  cause.Error(),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (e *Engine) RejectContract(ctx context.Context, contractID uuid.UUID, actor entity.Actor, reason string) (_ *ContractResult, err error) {
	ctx, span := e.startSpan(ctx, "RejectContract", append(actorAttrs(actor), attribute.String("contract.id", contractID.String()))...)
	defer func() { endSpan(span, err) }()

	now := e.now()
	var result ContractResult
	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		c, err := tx.LockContract(ctx, contractID)
		if err != nil {
			return err
		}
		if err := c.Reject(actor, reason, now); err != nil {
			return err
		}
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		if err := e.record(ctx, tx, entity.NewContractEvent(c.ID, actor, valueobject.EventContractRejected,
			"Контракт "+c.Number+" отклонён", map[string]any{"reason": *c.RejectionReason, "ip": actor.IP}, now)); err != nil {
			return err
		}
		result = ContractResult{Contract: c}

		if !c.HasOrder() {
			return nil
		}
		o, err := tx.LockOrder(ctx, *c.OrderID)
		if err != nil {
			return err
		}
		if err := o.Withdraw(actor, reason, now); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		result.Order = o
		return e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventOrderCancelled,
			"Заказ "+o.Number+" отменён: контракт отклонён", map[string]any{"reason": reason}, now))
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"contract_id": contractID, "actor_id": actor.ID}).Info("lifecycle: контракт отклонён")
	return &result, nil
}

// CancelContract отменяет контракт и связанный заказ одной операцией.
func (e *Engine) CancelContract(ctx context.Context, contractID uuid.UUID, actor entity.Actor, reason string) (_ *ContractResult, err error) {
	ctx, span := e.startSpan(ctx, "CancelContract", append(actorAttrs(actor), attribute.String("contract.id", contractID.String()))...)
	defer func() { endSpan(span, err) }()

	now := e.now()
	var result ContractResult
	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		c, err := tx.LockContract(ctx, contractID)
		if err != nil {
			return err
		}
		if err := c.Cancel(actor, reason, now); err != nil {
			return err
		}
		result = ContractResult{Contract: c}

		if c.HasOrder() {
			o, err := tx.LockOrder(ctx, *c.OrderID)
			if err != nil {
				return err
			}
			if err := o.Cancel(actor, reason, now); err != nil {
				return err
			}
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return err
			}
			result.Order = o
		} else if err := tx.ResolveRepairIntent(ctx, c.ID, uuid.Nil); err != nil {
			return err
		}

		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		if err := e.record(ctx, tx, entity.NewContractEvent(c.ID, actor, valueobject.EventContractCancelled,
			"Контракт "+c.Number+" отменён", map[string]any{"reason": reason}, now)); err != nil {
			return err
		}
		if result.Order == nil {
			return nil
		}
		return e.record(ctx, tx, entity.NewOrderEvent(result.Order.ID, actor, valueobject.EventOrderCancelled,
			"Заказ "+result.Order.Number+" отменён вместе с контрактом", map[string]any{"reason": reason}, now))
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"contract_id": contractID, "actor_id": actor.ID}).Info("lifecycle: контракт отменён")
	return &result, nil
}
