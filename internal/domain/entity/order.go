package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

type Order struct {
	ID             uuid.UUID
	Number         string
	ContractID     uuid.UUID
	ServiceID      uuid.UUID
	ClientID       uuid.UUID
	FreelancerID   uuid.UUID
	ConversationID *uuid.UUID

	Status valueobject.OrderStatus

	// Копия условий контракта на момент появления заказа.
	Price             valueobject.Money
	DeliveryDays      int
	RevisionsIncluded int
	DeliveryDate      time.Time
	RevisionsUsed     int

	CancelledAt        *time.Time
	CancelledBy        *uuid.UUID
	CancellationReason *string
	CompletedAt        *time.Time

	DisputeID           *uuid.UUID
	StatusBeforeDispute *valueobject.OrderStatus

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	Deliverables []Deliverable
}

// NewOrderFromContract порождает заказ по контракту. Условия копируются, а не связываются.
func NewOrderFromContract(c *Contract, number string, status valueobject.OrderStatus, now time.Time) *Order {
	return &Order{
		ID:                uuid.New(),
		Number:            number,
		ContractID:        c.ID,
		ServiceID:         c.ServiceID,
		ClientID:          c.ClientID,
		FreelancerID:      c.FreelancerID,
		ConversationID:    c.ConversationID,
		Status:            status,
		Price:             c.Price,
		DeliveryDays:      c.DeliveryDays,
		RevisionsIncluded: c.RevisionsIncluded,
		DeliveryDate:      now.AddDate(0, 0, c.DeliveryDays),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (o *Order) IsParticipant(userID uuid.UUID) bool {
	return o.ClientID == userID || o.FreelancerID == userID
}

func (o *Order) CanView(actor Actor) bool {
	return actor.IsAdmin() || o.IsParticipant(actor.ID)
}

func (o *Order) IsDisputed() bool {
	return o.Status == valueobject.OrderStatusDisputed
}

func (o *Order) RevisionsLeft() int {
	return o.RevisionsIncluded - o.RevisionsUsed
}

func (o *Order) guard(actor Actor, allowed func(Actor) bool, denied string) error {
	if !actor.IsAdmin() && !allowed(actor) {
		return apperror.New(apperror.ErrCodeForbidden, denied)
	}
	if o.IsDisputed() {
		return apperror.ErrOrderDisputed
	}
	return nil
}

func (o *Order) isClient(a Actor) bool     { return a.ID == o.ClientID }
func (o *Order) isFreelancer(a Actor) bool { return a.ID == o.FreelancerID }
func (o *Order) isParty(a Actor) bool      { return o.IsParticipant(a.ID) }

func (o *Order) invalidState(action string) error {
	return apperror.New(apperror.ErrCodeInvalidState, action+": недопустимо в статусе "+string(o.Status))
}

// Start переводит ожидающий заказ в работу после принятия контракта.
func (o *Order) Start(now time.Time) error {
	if o.IsDisputed() {
		return apperror.ErrOrderDisputed
	}
	if !o.Status.CanTransitionTo(valueobject.OrderStatusInProgress) {
		return o.invalidState("начать работу")
	}
	o.Status = valueobject.OrderStatusInProgress
	o.DeliveryDate = now.AddDate(0, 0, o.DeliveryDays)
	o.UpdatedAt = now
	return nil
}

// SubmitDelivery проверяет сдачу работы и возвращает номер правки (nil для первичной сдачи).
// priorRevisions - число уже сданных правок, посчитанное под блокировкой заказа.
func (o *Order) SubmitDelivery(actor Actor, isRevision bool, priorRevisions int, now time.Time) (*int, error) {
	if err := o.guard(actor, o.isFreelancer, "сдать работу может только исполнитель"); err != nil {
		return nil, err
	}

	switch o.Status {
	case valueobject.OrderStatusInProgress:
	case valueobject.OrderStatusRevisionRequested:
		if !isRevision {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "после запроса правок сдаётся только правка")
		}
	default:
		return nil, o.invalidState("сдать работу")
	}

	var revisionNumber *int
	if isRevision {
		if priorRevisions != o.RevisionsUsed {
			return nil, apperror.New(apperror.ErrCodeInternal, "счётчик правок расходится с результатами работы")
		}
		next := priorRevisions + 1
		if next > o.RevisionsIncluded {
			return nil, apperror.New(apperror.ErrCodeRevisionsExceeded, "превышено количество правок по контракту")
		}
		revisionNumber = &next
		o.RevisionsUsed = next
	}

	o.Status = valueobject.OrderStatusDelivered
	o.UpdatedAt = now
	return revisionNumber, nil
}

// AcceptDelivery принимает результат работы и завершает заказ.
func (o *Order) AcceptDelivery(actor Actor, d *Deliverable, now time.Time) error {
	if err := o.guard(actor, o.isClient, "принять работу может только клиент"); err != nil {
		return err
	}
	if d == nil || d.OrderID != o.ID {
		return apperror.ErrDeliverableNotFound
	}
	if !o.Status.CanTransitionTo(valueobject.OrderStatusCompleted) {
		return o.invalidState("принять работу")
	}
	if d.AcceptedAt != nil {
		return apperror.New(apperror.ErrCodeInvalidState, "результат работы уже принят")
	}

	d.Accept(now)
	o.complete(now)
	return nil
}

func (o *Order) RequestRevision(actor Actor, reason string, now time.Time) error {
	if err := o.guard(actor, o.isClient, "запросить правки может только клиент"); err != nil {
		return err
	}
	if !o.Status.CanTransitionTo(valueobject.OrderStatusRevisionRequested) {
		return o.invalidState("запросить правки")
	}
	if strings.TrimSpace(reason) == "" {
		return apperror.New(apperror.ErrCodeInvalidTerms, "причина запроса правок обязательна")
	}
	if o.RevisionsUsed >= o.RevisionsIncluded {
		return apperror.ErrNoRevisionsLeft
	}
	o.Status = valueobject.OrderStatusRevisionRequested
	o.UpdatedAt = now
	return nil
}

// Cancel отменяет заказ. Контракт отменяется движком в той же транзакции.
func (o *Order) Cancel(actor Actor, reason string, now time.Time) error {
	if err := o.guard(actor, o.isParty, "отменить заказ может только его участник"); err != nil {
		return err
	}
	if !o.Status.CanTransitionTo(valueobject.OrderStatusCancelled) {
		return o.invalidState("отменить заказ")
	}
	o.markCancelled(actor.ActorRef(), reason, now)
	return nil
}

// EnterDispute замораживает заказ. Повторное открытие того же спора ничего не меняет
// и возвращает false.
func (o *Order) EnterDispute(disputeID uuid.UUID, now time.Time) (bool, error) {
	if disputeID == uuid.Nil {
		return false, apperror.New(apperror.ErrCodeValidation, "идентификатор спора обязателен")
	}
	if o.IsDisputed() {
		if o.DisputeID != nil && *o.DisputeID == disputeID {
			return false, nil
		}
		return false, apperror.New(apperror.ErrCodeInvalidState, "по заказу уже открыт другой спор")
	}
	if !o.Status.CanEnterDispute() {
		return false, o.invalidState("открыть спор")
	}

	before := o.Status
	id := disputeID
	o.StatusBeforeDispute = &before
	o.DisputeID = &id
	o.Status = valueobject.OrderStatusDisputed
	o.UpdatedAt = now
	return true, nil
}

// ResolveDispute применяет решение по спору и размораживает заказ.
func (o *Order) ResolveDispute(disputeID uuid.UUID, outcome valueobject.DisputeOutcome, resolvedBy *uuid.UUID, now time.Time) error {
	if !o.IsDisputed() {
		return o.invalidState("закрыть спор")
	}
	if o.DisputeID == nil || *o.DisputeID != disputeID {
		return apperror.New(apperror.ErrCodeInvalidState, "спор не относится к заказу")
	}

	before := valueobject.OrderStatusInProgress
	if o.StatusBeforeDispute != nil {
		before = *o.StatusBeforeDispute
	}
	o.DisputeID = nil
	o.StatusBeforeDispute = nil

	switch next := outcome.ResolvedStatus(before); next {
	case valueobject.OrderStatusCompleted:
		o.complete(now)
	case valueobject.OrderStatusCancelled:
		o.markCancelled(resolvedBy, "решение по спору: "+string(outcome), now)
	default:
		o.Status = next
		o.UpdatedAt = now
	}
	return nil
}

func (o *Order) complete(now time.Time) {
	stamp := now
	o.Status = valueobject.OrderStatusCompleted
	o.CompletedAt = &stamp
	o.UpdatedAt = now
}

func (o *Order) markCancelled(by *uuid.UUID, reason string, now time.Time) {
	stamp := now
	o.Status = valueobject.OrderStatusCancelled
	o.CancelledAt = &stamp
	o.CancelledBy = by
	if reason = strings.TrimSpace(reason); reason != "" {
		o.CancellationReason = &reason
	}
	o.UpdatedAt = now
}

// Withdraw закрывает ожидающий заказ при отклонении контракта. Права проверены на контракте.
func (o *Order) Withdraw(actor Actor, reason string, now time.Time) error {
	if o.IsDisputed() {
		return apperror.ErrOrderDisputed
	}
	if o.Status != valueobject.OrderStatusPendingAcceptance {
		return o.invalidState("отклонить заказ")
	}
	o.markCancelled(actor.ActorRef(), reason, now)
	return nil
}
