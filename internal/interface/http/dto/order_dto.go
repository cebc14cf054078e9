package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/validation"
)

type DeliveryRequest struct {
	Type       string  `json:"type" binding:"required"`
	FileRef    *string `json:"file_ref" binding:"omitempty,uuid"`
	Message    string  `json:"message"`
	IsRevision bool    `json:"is_revision"`
}

type OpenDisputeRequest struct {
	DisputeID string `json:"dispute_id" binding:"required,uuid"`
}

type ResolveDisputeRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

type OrderResponse struct {
	ID                  uuid.UUID             `json:"id"`
	Number              string                `json:"order_number"`
	ContractID          uuid.UUID             `json:"contract_id"`
	ServiceID           uuid.UUID             `json:"service_id"`
	ClientID            uuid.UUID             `json:"client_id"`
	FreelancerID        uuid.UUID             `json:"freelancer_id"`
	ConversationID      *uuid.UUID            `json:"conversation_id,omitempty"`
	Status              string                `json:"status"`
	Price               decimal.Decimal       `json:"price"`
	Currency            string                `json:"currency"`
	DeliveryDays        int                   `json:"delivery_days"`
	DeliveryDate        time.Time             `json:"delivery_date"`
	RevisionsIncluded   int                   `json:"revisions_included"`
	RevisionsUsed       int                   `json:"revisions_used"`
	CancelledAt         *time.Time            `json:"cancelled_at,omitempty"`
	CancelledBy         *uuid.UUID            `json:"cancelled_by,omitempty"`
	CancellationReason  *string               `json:"cancellation_reason,omitempty"`
	CompletedAt         *time.Time            `json:"completed_at,omitempty"`
	DisputeID           *uuid.UUID            `json:"dispute_id,omitempty"`
	StatusBeforeDispute *string               `json:"status_before_dispute,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
	Deliverables        []DeliverableResponse `json:"deliverables,omitempty"`
}

type DeliverableResponse struct {
	ID             uuid.UUID  `json:"id"`
	Type           string     `json:"type"`
	FileRef        *uuid.UUID `json:"file_ref,omitempty"`
	MimeType       *string    `json:"mime_type,omitempty"`
	Message        string     `json:"message,omitempty"`
	IsRevision     bool       `json:"is_revision"`
	RevisionNumber *int       `json:"revision_number,omitempty"`
	DeliveredAt    time.Time  `json:"delivered_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
}

type DeliveryResultResponse struct {
	Order       *OrderResponse       `json:"order"`
	Deliverable *DeliverableResponse `json:"deliverable"`
}

func ToOrderResponse(o *entity.Order) *OrderResponse {
	if o == nil {
		return nil
	}
	resp := &OrderResponse{
		ID:                 o.ID,
		Number:             o.Number,
		ContractID:         o.ContractID,
		ServiceID:          o.ServiceID,
		ClientID:           o.ClientID,
		FreelancerID:       o.FreelancerID,
		ConversationID:     o.ConversationID,
		Status:             string(o.Status),
		Price:              o.Price.Amount,
		Currency:           o.Price.Currency,
		DeliveryDays:       o.DeliveryDays,
		DeliveryDate:       o.DeliveryDate,
		RevisionsIncluded:  o.RevisionsIncluded,
		RevisionsUsed:      o.RevisionsUsed,
		CancelledAt:        o.CancelledAt,
		CancelledBy:        o.CancelledBy,
		CancellationReason: o.CancellationReason,
		CompletedAt:        o.CompletedAt,
		DisputeID:          o.DisputeID,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if o.StatusBeforeDispute != nil {
		before := string(*o.StatusBeforeDispute)
		resp.StatusBeforeDispute = &before
	}
	for i := range o.Deliverables {
		resp.Deliverables = append(resp.Deliverables, *ToDeliverableResponse(&o.Deliverables[i]))
	}
	return resp
}

func ToDeliverableResponse(d *entity.Deliverable) *DeliverableResponse {
	if d == nil {
		return nil
	}
	return &DeliverableResponse{
		ID:             d.ID,
		Type:           string(d.Type),
		FileRef:        d.FileRef,
		MimeType:       d.MimeType,
		Message:        d.Message,
		IsRevision:     d.IsRevision,
		RevisionNumber: d.RevisionNumber,
		DeliveredAt:    d.DeliveredAt,
		AcceptedAt:     d.AcceptedAt,
	}
}

func (r *DeliveryRequest) Validate() error {
	return validation.ValidateDeliveryMessage(r.Type, r.Message)
}

func (r *OpenDisputeRequest) Validate() error { return nil }

func (r *ResolveDisputeRequest) Validate() error { return nil }
