package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

func requireAdmin(actor entity.Actor) error {
	if !actor.IsAdmin() {
		return apperror.New(apperror.ErrCodeForbidden, "операция доступна только администратору")
	}
	return nil
}

// EnterDispute замораживает заказ по открытому спору. Повторное уведомление
// о том же споре ничего не меняет.
func (e *Engine) EnterDispute(ctx context.Context, orderID, disputeID uuid.UUID, actor entity.Actor) (_ *entity.Order, err error) {
	ctx, span := e.startSpan(ctx, "EnterDispute", append(orderAttrs(actor, orderID), attribute.String("dispute.id", disputeID.String()))...)
	defer func() { endSpan(span, err) }()

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	now := e.now()
	var order *entity.Order
	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		before := o.Status
		changed, err := o.EnterDispute(disputeID, now)
		if err != nil {
			return err
		}
		order = o
		if !changed {
			return nil
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		return e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventDisputeOpened,
			"По заказу "+o.Number+" открыт спор",
			map[string]any{"dispute_id": disputeID.String(), "status_before": string(before)}, now))
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"order_id": orderID, "dispute_id": disputeID}).Info("lifecycle: заказ заморожен спором")
	return order, nil
}

// ResolveDispute применяет внешнее решение по спору. Исходы REFUND_CLIENT,
// PAY_FREELANCER и SPLIT завершают заказ, NONE возвращает его в прежний статус.
// Не принятый исполнителем заказ при любом исходе кроме NONE отменяется.
func (e *Engine) ResolveDispute(ctx context.Context, orderID, disputeID uuid.UUID, outcome valueobject.DisputeOutcome, actor entity.Actor) (_ *ContractResult, err error) {
	ctx, span := e.startSpan(ctx, "ResolveDispute", append(orderAttrs(actor, orderID),
		attribute.String("dispute.id", disputeID.String()),
		attribute.String("dispute.outcome", string(outcome)))...)
	defer func() { endSpan(span, err) }()

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	contractID, err := e.contractOf(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var result ContractResult
	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		c, o, err := lockPair(ctx, tx, contractID, orderID)
		if err != nil {
			return err
		}
		if err := o.ResolveDispute(disputeID, outcome, actor.ActorRef(), now); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		result = ContractResult{Contract: c, Order: o}

		if err := e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventDisputeResolved,
			"Спор по заказу "+o.Number+" закрыт: "+string(outcome),
			map[string]any{"dispute_id": disputeID.String(), "outcome": string(outcome), "status": string(o.Status)}, now)); err != nil {
			return err
		}

		switch o.Status {
		case valueobject.OrderStatusCompleted:
			if err := e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventOrderCompleted,
				"Заказ "+o.Number+" завершён по решению спора", map[string]any{"outcome": string(outcome)}, now)); err != nil {
				return err
			}
		case valueobject.OrderStatusCancelled:
			if err := e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventOrderCancelled,
				"Заказ "+o.Number+" отменён по решению спора", map[string]any{"outcome": string(outcome)}, now)); err != nil {
				return err
			}
		}
		return e.followOrder(ctx, tx, c, o, actor, "решение по спору: "+string(outcome), now)
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"order_id":   orderID,
		"dispute_id": disputeID,
		"outcome":    outcome,
		"status":     result.Order.Status,
	}).Info("lifecycle: спор закрыт")
	return &result, nil
}
