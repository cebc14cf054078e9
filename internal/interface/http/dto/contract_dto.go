package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/validation"
)

type CreateContractRequest struct {
	ServiceID          string           `json:"service_id" binding:"required,uuid"`
	ClientID           string           `json:"client_id" binding:"required,uuid"`
	ConversationID     *string          `json:"conversation_id" binding:"omitempty,uuid"`
	ScopeOfWork        string           `json:"scope_of_work"`
	CancellationPolicy string           `json:"cancellation_policy"`
	Price              *decimal.Decimal `json:"price"`
	Currency           string           `json:"currency"`
	DeliveryDays       *int             `json:"delivery_days"`
	RevisionsIncluded  *int             `json:"revisions_included"`
}

// PlaceOrderRequest - оформление заказа клиентом. client_id нужен только администратору.
type PlaceOrderRequest struct {
	ServiceID          string           `json:"service_id" binding:"required,uuid"`
	ClientID           *string          `json:"client_id" binding:"omitempty,uuid"`
	ConversationID     *string          `json:"conversation_id" binding:"omitempty,uuid"`
	ScopeOfWork        string           `json:"scope_of_work"`
	CancellationPolicy string           `json:"cancellation_policy"`
	Price              *decimal.Decimal `json:"price"`
	Currency           string           `json:"currency"`
	DeliveryDays       *int             `json:"delivery_days"`
	RevisionsIncluded  *int             `json:"revisions_included"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type ContractResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Number               string          `json:"contract_number"`
	ServiceID            uuid.UUID       `json:"service_id"`
	ServiceTitle         string          `json:"service_title"`
	ServiceDescription   string          `json:"service_description"`
	ServicePrice         decimal.Decimal `json:"service_price"`
	ServiceCurrency      string          `json:"service_currency"`
	ClientID             uuid.UUID       `json:"client_id"`
	FreelancerID         uuid.UUID       `json:"freelancer_id"`
	ConversationID       *uuid.UUID      `json:"conversation_id,omitempty"`
	ScopeOfWork          string          `json:"scope_of_work"`
	CancellationPolicy   string          `json:"cancellation_policy"`
	Price                decimal.Decimal `json:"price"`
	Currency             string          `json:"currency"`
	DeliveryDays         int             `json:"delivery_days"`
	RevisionsIncluded    int             `json:"revisions_included"`
	Status               string          `json:"status"`
	FreelancerAcceptedAt *time.Time      `json:"freelancer_accepted_at,omitempty"`
	ClientAcceptedAt     *time.Time      `json:"client_accepted_at,omitempty"`
	RejectedAt           *time.Time      `json:"rejected_at,omitempty"`
	RejectedBy           *uuid.UUID      `json:"rejected_by,omitempty"`
	RejectionReason      *string         `json:"rejection_reason,omitempty"`
	CancelledAt          *time.Time      `json:"cancelled_at,omitempty"`
	CancelledBy          *uuid.UUID      `json:"cancelled_by,omitempty"`
	CancellationReason   *string         `json:"cancellation_reason,omitempty"`
	OrderID              *uuid.UUID      `json:"order_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ContractResultResponse - контракт вместе с заказом, если операция его затронула.
type ContractResultResponse struct {
	Contract *ContractResponse `json:"contract"`
	Order    *OrderResponse    `json:"order,omitempty"`
}

// IP сторон в ответ не попадают: это доказательная информация для разбирательств.
func ToContractResponse(c *entity.Contract) *ContractResponse {
	if c == nil {
		return nil
	}
	return &ContractResponse{
		ID:                   c.ID,
		Number:               c.Number,
		ServiceID:            c.ServiceID,
		ServiceTitle:         c.ServiceTitle,
		ServiceDescription:   c.ServiceDescription,
		ServicePrice:         c.ServicePrice,
		ServiceCurrency:      c.ServiceCurrency,
		ClientID:             c.ClientID,
		FreelancerID:         c.FreelancerID,
		ConversationID:       c.ConversationID,
		ScopeOfWork:          c.ScopeOfWork,
		CancellationPolicy:   c.CancellationPolicy,
		Price:                c.Price.Amount,
		Currency:             c.Price.Currency,
		DeliveryDays:         c.DeliveryDays,
		RevisionsIncluded:    c.RevisionsIncluded,
		Status:               string(c.Status),
		FreelancerAcceptedAt: c.FreelancerAcceptedAt,
		ClientAcceptedAt:     c.ClientAcceptedAt,
		RejectedAt:           c.RejectedAt,
		RejectedBy:           c.RejectedBy,
		RejectionReason:      c.RejectionReason,
		CancelledAt:          c.CancelledAt,
		CancelledBy:          c.CancelledBy,
		CancellationReason:   c.CancellationReason,
		OrderID:              c.OrderID,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

func ToContractResultResponse(c *entity.Contract, o *entity.Order) ContractResultResponse {
	return ContractResultResponse{Contract: ToContractResponse(c), Order: ToOrderResponse(o)}
}

type EventResponse struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	ActorID     *uuid.UUID     `json:"actor_id,omitempty"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func ToEventResponses(events []entity.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:          e.ID,
			Type:        string(e.Type),
			ActorID:     e.ActorID,
			Description: e.Description,
			Metadata:    e.Metadata,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

// ParseOptionalUUID разбирает необязательный идентификатор из запроса.
func ParseOptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *CreateContractRequest) Validate() error {
	return validation.ValidateTerms(r.ScopeOfWork, r.CancellationPolicy)
}

func (r *PlaceOrderRequest) Validate() error {
	return validation.ValidateTerms(r.ScopeOfWork, r.CancellationPolicy)
}

func (r *ReasonRequest) Validate() error {
	return validation.ValidateReason(r.Reason)
}
