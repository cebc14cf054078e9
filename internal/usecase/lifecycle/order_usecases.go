package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

type DeliveryInput struct {
	Type       valueobject.DeliverableType
	FileRef    *uuid.UUID
	Message    string
	IsRevision bool
}

type DeliveryResult struct {
	Order       *entity.Order
	Deliverable *entity.Deliverable
}

func orderAttrs(actor entity.Actor, orderID uuid.UUID) []attribute.KeyValue {
	return append(actorAttrs(actor), attribute.String("order.id", orderID.String()))
}

// SubmitDelivery принимает сдачу работы. Номер правки считается под блокировкой заказа.
func (e *Engine) SubmitDelivery(ctx context.Context, orderID uuid.UUID, actor entity.Actor, in DeliveryInput) (_ *DeliveryResult, err error) {
	ctx, span := e.startSpan(ctx, "SubmitDelivery", orderAttrs(actor, orderID)...)
	defer func() { endSpan(span, err) }()

	draft := entity.DeliveryDraft{Type: in.Type, FileRef: in.FileRef, Message: in.Message, IsRevision: in.IsRevision}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	// Файл разрешается до транзакции: внутри неё внешних обращений нет.
	var mimeType *string
	if draft.Type == valueobject.DeliverableTypeFile {
		current, err := e.store.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !current.CanView(actor) {
			return nil, apperror.New(apperror.ErrCodeForbidden, "сдать работу может только исполнитель")
		}
		att, err := e.attachments.Resolve(ctx, *draft.FileRef, current.FreelancerID)
		if err != nil {
			return nil, err
		}
		if att.MimeType != "" {
			mt := att.MimeType
			mimeType = &mt
		}
	}

	now := e.now()
	var result DeliveryResult
	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		prior, err := tx.CountRevisionDeliverables(ctx, o.ID)
		if err != nil {
			return err
		}
		revisionNumber, err := o.SubmitDelivery(actor, draft.IsRevision, prior, now)
		if err != nil {
			return err
		}

		d := entity.NewDeliverable(o.ID, draft, mimeType, revisionNumber, now)
		if err := tx.InsertDeliverable(ctx, d); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		result = DeliveryResult{Order: o, Deliverable: d}

		description := "Исполнитель сдал работу по заказу " + o.Number
		if draft.IsRevision {
			description = "Исполнитель сдал правку по заказу " + o.Number
		}
		return e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventDeliverySubmitted, description,
			map[string]any{
				"deliverable_id":  d.ID.String(),
				"is_revision":     d.IsRevision,
				"revision_number": revisionMeta(d.RevisionNumber),
			}, now))
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"order_id":       orderID,
		"deliverable_id": result.Deliverable.ID,
		"is_revision":    draft.IsRevision,
	}).Info("lifecycle: работа сдана")
	return &result, nil
}

// AcceptDelivery завершает заказ. В журнал пишутся два события: принятие работы и завершение заказа.
func (e *Engine) AcceptDelivery(ctx context.Context, orderID uuid.UUID, actor entity.Actor, deliverableID uuid.UUID) (_ *DeliveryResult, err error) {
	ctx, span := e.startSpan(ctx, "AcceptDelivery", orderAttrs(actor, orderID)...)
	defer func() { endSpan(span, err) }()

	now := e.now()
	var result DeliveryResult
	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		d, err := tx.GetDeliverable(ctx, o.ID, deliverableID)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if err := o.AcceptDelivery(actor, d, now); err != nil {
			return err
		}
		if err := tx.UpdateDeliverable(ctx, d); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		result = DeliveryResult{Order: o, Deliverable: d}

		if err := e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventDeliveryAccepted,
			"Клиент принял работу по заказу "+o.Number,
			map[string]any{"deliverable_id": d.ID.String()}, now)); err != nil {
			return err
		}
		return e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventOrderCompleted,
			"Заказ "+o.Number+" завершён",
			map[string]any{"completed_at": o.CompletedAt.Format(time.RFC3339)}, now))
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"order_id": orderID, "deliverable_id": deliverableID}).Info("lifecycle: заказ завершён")
	return &result, nil
}

// RequestRevision отправляет заказ на доработку. Счётчик правок растёт только со следующей сдачей.
func (e *Engine) RequestRevision(ctx context.Context, orderID uuid.UUID, actor entity.Actor, reason string) (_ *entity.Order, err error) {
	ctx, span := e.startSpan(ctx, "RequestRevision", orderAttrs(actor, orderID)...)
	defer func() { endSpan(span, err) }()

	now := e.now()
	var order *entity.Order
	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.RequestRevision(actor, reason, now); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventRevisionRequested,
			"Клиент запросил правки по заказу "+o.Number,
			map[string]any{
				"reason":             reason,
				"revisions_used":     o.RevisionsUsed,
				"revisions_included": o.RevisionsIncluded,
			}, now))
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"order_id": orderID, "actor_id": actor.ID}).Info("lifecycle: запрошены правки")
	return order, nil
}

// CancelOrder отменяет заказ и выводит из действия контракт в той же транзакции.
func (e *Engine) CancelOrder(ctx context.Context, orderID uuid.UUID, actor entity.Actor, reason string) (_ *ContractResult, err error) {
	ctx, span := e.startSpan(ctx, "CancelOrder", orderAttrs(actor, orderID)...)
	defer func() { endSpan(span, err) }()

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
		if err := o.Cancel(actor, reason, now); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		result = ContractResult{Contract: c, Order: o}
		if err := e.record(ctx, tx, entity.NewOrderEvent(o.ID, actor, valueobject.EventOrderCancelled,
			"Заказ "+o.Number+" отменён", map[string]any{"reason": reason}, now)); err != nil {
			return err
		}
		return e.followOrder(ctx, tx, c, o, actor, reason, now)
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"order_id": orderID, "actor_id": actor.ID}).Info("lifecycle: заказ отменён")
	return &result, nil
}

// contractOf читает контракт заказа до начала транзакции: блокировки берутся
// в порядке контракт, затем заказ.
func (e *Engine) contractOf(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return uuid.Nil, err
	}
	return o.ContractID, nil
}

func lockPair(ctx context.Context, tx repository.LifecycleTx, contractID, orderID uuid.UUID) (*entity.Contract, *entity.Order, error) {
	c, err := tx.LockContract(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	o, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.ContractID != c.ID {
		return nil, nil, apperror.New(apperror.ErrCodeInternal, "заказ не принадлежит контракту")
	}
	return c, o, nil
}

// followOrder выравнивает контракт по заказу и журналирует смену статуса контракта.
func (e *Engine) followOrder(ctx context.Context, tx repository.LifecycleTx, c *entity.Contract, o *entity.Order, actor entity.Actor, reason string, now time.Time) error {
	if !c.FollowOrder(o, actor, reason, now) {
		return nil
	}
	if err := tx.UpdateContract(ctx, c); err != nil {
		return err
	}
	if c.Status != valueobject.ContractStatusCancelled {
		return nil
	}
	return e.record(ctx, tx, entity.NewContractEvent(c.ID, actor, valueobject.EventContractCancelled,
		"Контракт "+c.Number+" отменён вслед за заказом "+o.Number,
		map[string]any{"order_id": o.ID.String(), "reason": reason}, now))
}
