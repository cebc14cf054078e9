package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

type Contract struct {
	ID     uuid.UUID
	Number string

	// Снимок услуги на момент оферты, после создания не меняется.
	ServiceID          uuid.UUID
	ServiceTitle       string
	ServiceDescription string
	ServicePrice       decimal.Decimal
	ServiceCurrency    string

	ClientID       uuid.UUID
	FreelancerID   uuid.UUID
	ConversationID *uuid.UUID

	ScopeOfWork        string
	CancellationPolicy string
	Price              valueobject.Money
	DeliveryDays       int
	RevisionsIncluded  int
	Status             valueobject.ContractStatus

	FreelancerAcceptedAt *time.Time
	FreelancerAcceptedIP *string
	ClientAcceptedAt     *time.Time
	ClientAcceptedIP     *string

	RejectedAt      *time.Time
	RejectedBy      *uuid.UUID
	RejectionReason *string

	CancelledAt        *time.Time
	CancelledBy        *uuid.UUID
	CancellationReason *string

	OrderID *uuid.UUID
	Version int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContractTerms - условия оферты. Незаданные поля берутся из услуги.
type ContractTerms struct {
	ClientID           uuid.UUID
	ConversationID     *uuid.UUID
	ScopeOfWork        string
	CancellationPolicy string
	Price              *decimal.Decimal
	Currency           string
	DeliveryDays       *int
	RevisionsIncluded  *int
}

func (t ContractTerms) resolve(service Service) (valueobject.Money, int, int, error) {
	amount := service.Price
	if t.Price != nil {
		amount = *t.Price
	}
	currency := t.Currency
	if currency == "" {
		currency = service.Currency
	}
	price, err := valueobject.NewPrice(amount, currency)
	if err != nil {
		return valueobject.Money{}, 0, 0, err
	}

	days := service.DeliveryDays
	if t.DeliveryDays != nil {
		days = *t.DeliveryDays
	}
	if days <= 0 {
		return valueobject.Money{}, 0, 0, apperror.New(apperror.ErrCodeInvalidTerms, "срок выполнения должен быть положительным")
	}

	revisions := service.Revisions
	if t.RevisionsIncluded != nil {
		revisions = *t.RevisionsIncluded
	}
	if revisions < 0 {
		return valueobject.Money{}, 0, 0, apperror.New(apperror.ErrCodeInvalidTerms, "количество правок не может быть отрицательным")
	}
	return price, days, revisions, nil
}

// NewContract создаёт оферту в статусе PENDING_ACCEPTANCE.
// Предлагать может только фрилансер услуги или администратор.
func NewContract(service Service, actor Actor, terms ContractTerms, number string, now time.Time) (*Contract, error) {
	if terms.ClientID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "клиент обязателен")
	}
	if terms.ClientID == service.FreelancerID {
		return nil, apperror.New(apperror.ErrCodeInvalidTerms, "клиент и исполнитель должны различаться")
	}
	price, days, revisions, err := terms.resolve(service)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != service.FreelancerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "предложить контракт может только исполнитель услуги")
	}

	c := newContract(service, terms, price, days, revisions, number, now)
	// Фрилансер соглашается с условиями в момент оферты.
	stamp := now
	c.FreelancerAcceptedAt = &stamp
	if actor.ID == service.FreelancerID {
		c.FreelancerAcceptedIP = actor.ipRef()
	}
	return c, nil
}

// NewClientContract создаёт контракт со стороны клиента (оформление заказа).
// Это черновик: согласие клиента фиксируется позже через Accept.
func NewClientContract(service Service, actor Actor, terms ContractTerms, number string, now time.Time) (*Contract, error) {
	if terms.ClientID == uuid.Nil {
		terms.ClientID = actor.ID
	}
	if terms.ClientID == service.FreelancerID {
		return nil, apperror.New(apperror.ErrCodeInvalidTerms, "нельзя заказать собственную услугу")
	}
	price, days, revisions, err := terms.resolve(service)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != terms.ClientID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "оформить заказ может только сам клиент")
	}

	return newContract(service, terms, price, days, revisions, number, now), nil
}

func newContract(service Service, terms ContractTerms, price valueobject.Money, days, revisions int, number string, now time.Time) *Contract {
	return &Contract{
		ID:                 uuid.New(),
		Number:             number,
		ServiceID:          service.ID,
		ServiceTitle:       service.Title,
		ServiceDescription: service.Description,
		ServicePrice:       service.Price,
		ServiceCurrency:    service.Currency,
		ClientID:           terms.ClientID,
		FreelancerID:       service.FreelancerID,
		ConversationID:     terms.ConversationID,
		ScopeOfWork:        strings.TrimSpace(terms.ScopeOfWork),
		CancellationPolicy: strings.TrimSpace(terms.CancellationPolicy),
		Price:              price,
		DeliveryDays:       days,
		RevisionsIncluded:  revisions,
		Status:             valueobject.ContractStatusPendingAcceptance,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (c *Contract) IsParticipant(userID uuid.UUID) bool {
	return c.ClientID == userID || c.FreelancerID == userID
}

func (c *Contract) CanView(actor Actor) bool {
	return actor.IsAdmin() || c.IsParticipant(actor.ID)
}

func (c *Contract) HasOrder() bool {
	return c.OrderID != nil
}

func (c *Contract) authorizeClient(actor Actor, action string) error {
	if actor.IsAdmin() || actor.ID == c.ClientID {
		return nil
	}
	return apperror.New(apperror.ErrCodeForbidden, action+" может только клиент контракта")
}

// Accept фиксирует согласие клиента. Заказ порождает движок.
func (c *Contract) Accept(actor Actor, now time.Time) error {
	if err := c.authorizeClient(actor, "принять контракт"); err != nil {
		return err
	}
	if !c.Status.CanTransitionTo(valueobject.ContractStatusActive) {
		return apperror.New(apperror.ErrCodeInvalidState, "контракт нельзя принять в статусе "+string(c.Status))
	}
	c.Status = valueobject.ContractStatusActive
	stamp := now
	c.ClientAcceptedAt = &stamp
	if actor.ID == c.ClientID {
		c.ClientAcceptedIP = actor.ipRef()
	}
	c.UpdatedAt = now
	return nil
}

func (c *Contract) Reject(actor Actor, reason string, now time.Time) error {
	if err := c.authorizeClient(actor, "отклонить контракт"); err != nil {
		return err
	}
	if !c.Status.CanTransitionTo(valueobject.ContractStatusRejected) {
		return apperror.New(apperror.ErrCodeInvalidState, "контракт нельзя отклонить в статусе "+string(c.Status))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperror.New(apperror.ErrCodeInvalidTerms, "причина отклонения обязательна")
	}
	c.Status = valueobject.ContractStatusRejected
	stamp := now
	c.RejectedAt = &stamp
	c.RejectedBy = actor.ActorRef()
	c.RejectionReason = &reason
	c.UpdatedAt = now
	return nil
}

// Cancel отменяет контракт по инициативе любой стороны или администратора.
func (c *Contract) Cancel(actor Actor, reason string, now time.Time) error {
	if !actor.IsAdmin() && !c.IsParticipant(actor.ID) {
		return apperror.New(apperror.ErrCodeForbidden, "отменить контракт может только его участник")
	}
	if !c.Status.CanTransitionTo(valueobject.ContractStatusCancelled) {
		return apperror.New(apperror.ErrCodeInvalidState, "контракт нельзя отменить в статусе "+string(c.Status))
	}
	c.retire(actor, reason, now)
	return nil
}

// retire переводит контракт в CANCELLED вслед за заказом. Права уже проверены на заказе.
func (c *Contract) retire(actor Actor, reason string, now time.Time) {
	c.Status = valueobject.ContractStatusCancelled
	stamp := now
	c.CancelledAt = &stamp
	c.CancelledBy = actor.ActorRef()
	if reason = strings.TrimSpace(reason); reason != "" {
		c.CancellationReason = &reason
	}
	c.UpdatedAt = now
}

// FollowOrder выравнивает статус контракта по статусу заказа.
// Возвращает true, если статус контракта изменился.
func (c *Contract) FollowOrder(o *Order, actor Actor, reason string, now time.Time) bool {
	target := valueobject.MirrorContractStatus(o.Status)
	if target == c.Status || !c.Status.CanTransitionTo(target) {
		return false
	}
	if target == valueobject.ContractStatusCancelled {
		c.retire(actor, reason, now)
		return true
	}
	c.Status = target
	c.UpdatedAt = now
	return true
}

func (c *Contract) AttachOrder(orderID uuid.UUID, now time.Time) {
	id := orderID
	c.OrderID = &id
	c.UpdatedAt = now
}
