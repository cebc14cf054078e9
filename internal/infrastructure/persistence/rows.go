package persistence

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
)

const contractColumns = `id, contract_number, service_id, service_title, service_description, service_price,
	service_currency, client_id, freelancer_id, conversation_id, scope_of_work, cancellation_policy,
	price, currency, delivery_days, revisions_included, status,
	freelancer_accepted_at, freelancer_accepted_ip, client_accepted_at, client_accepted_ip,
	rejected_at, rejected_by, rejection_reason, cancelled_at, cancelled_by, cancellation_reason,
	order_id, version, created_at, updated_at`

type contractRow struct {
	ID                   uuid.UUID       `db:"id"`
	Number               string          `db:"contract_number"`
	ServiceID            uuid.UUID       `db:"service_id"`
	ServiceTitle         string          `db:"service_title"`
	ServiceDescription   string          `db:"service_description"`
	ServicePrice         decimal.Decimal `db:"service_price"`
	ServiceCurrency      string          `db:"service_currency"`
	ClientID             uuid.UUID       `db:"client_id"`
	FreelancerID         uuid.UUID       `db:"freelancer_id"`
	ConversationID       *uuid.UUID      `db:"conversation_id"`
	ScopeOfWork          string          `db:"scope_of_work"`
	CancellationPolicy   string          `db:"cancellation_policy"`
	Price                decimal.Decimal `db:"price"`
	Currency             string          `db:"currency"`
	DeliveryDays         int             `db:"delivery_days"`
	RevisionsIncluded    int             `db:"revisions_included"`
	Status               string          `db:"status"`
	FreelancerAcceptedAt *time.Time      `db:"freelancer_accepted_at"`
	FreelancerAcceptedIP *string         `db:"freelancer_accepted_ip"`
	ClientAcceptedAt     *time.Time      `db:"client_accepted_at"`
	ClientAcceptedIP     *string         `db:"client_accepted_ip"`
	RejectedAt           *time.Time      `db:"rejected_at"`
	RejectedBy           *uuid.UUID      `db:"rejected_by"`
	RejectionReason      *string         `db:"rejection_reason"`
	CancelledAt          *time.Time      `db:"cancelled_at"`
	CancelledBy          *uuid.UUID      `db:"cancelled_by"`
	CancellationReason   *string         `db:"cancellation_reason"`
	OrderID              *uuid.UUID      `db:"order_id"`
	Version              int             `db:"version"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

func (r *contractRow) toEntity() *entity.Contract {
	return &entity.Contract{
		ID:                   r.ID,
		Number:               r.Number,
		ServiceID:            r.ServiceID,
		ServiceTitle:         r.ServiceTitle,
		ServiceDescription:   r.ServiceDescription,
		ServicePrice:         r.ServicePrice,
		ServiceCurrency:      r.ServiceCurrency,
		ClientID:             r.ClientID,
		FreelancerID:         r.FreelancerID,
		ConversationID:       r.ConversationID,
		ScopeOfWork:          r.ScopeOfWork,
		CancellationPolicy:   r.CancellationPolicy,
		Price:                valueobject.Money{Amount: r.Price, Currency: r.Currency},
		DeliveryDays:         r.DeliveryDays,
		RevisionsIncluded:    r.RevisionsIncluded,
		Status:               valueobject.ContractStatus(r.Status),
		FreelancerAcceptedAt: r.FreelancerAcceptedAt,
		FreelancerAcceptedIP: r.FreelancerAcceptedIP,
		ClientAcceptedAt:     r.ClientAcceptedAt,
		ClientAcceptedIP:     r.ClientAcceptedIP,
		RejectedAt:           r.RejectedAt,
		RejectedBy:           r.RejectedBy,
		RejectionReason:      r.RejectionReason,
		CancelledAt:          r.CancelledAt,
		CancelledBy:          r.CancelledBy,
		CancellationReason:   r.CancellationReason,
		OrderID:              r.OrderID,
		Version:              r.Version,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func contractRowOf(c *entity.Contract) contractRow {
	return contractRow{
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
		FreelancerAcceptedIP: c.FreelancerAcceptedIP,
		ClientAcceptedAt:     c.ClientAcceptedAt,
		ClientAcceptedIP:     c.ClientAcceptedIP,
		RejectedAt:           c.RejectedAt,
		RejectedBy:           c.RejectedBy,
		RejectionReason:      c.RejectionReason,
		CancelledAt:          c.CancelledAt,
		CancelledBy:          c.CancelledBy,
		CancellationReason:   c.CancellationReason,
		OrderID:              c.OrderID,
		Version:              c.Version,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

const orderColumns = `id, order_number, contract_id, service_id, client_id, freelancer_id, conversation_id,
	status, price, currency, delivery_days, revisions_included, revisions_used, delivery_date,
	cancelled_at, cancelled_by, cancellation_reason, completed_at, dispute_id, status_before_dispute,
	version, created_at, updated_at`

type orderRow struct {
	ID                  uuid.UUID       `db:"id"`
	Number              string          `db:"order_number"`
	ContractID          uuid.UUID       `db:"contract_id"`
	ServiceID           uuid.UUID       `db:"service_id"`
	ClientID            uuid.UUID       `db:"client_id"`
	FreelancerID        uuid.UUID       `db:"freelancer_id"`
	ConversationID      *uuid.UUID      `db:"conversation_id"`
	Status              string          `db:"status"`
	Price               decimal.Decimal `db:"price"`
	Currency            string          `db:"currency"`
	DeliveryDays        int             `db:"delivery_days"`
	RevisionsIncluded   int             `db:"revisions_included"`
	RevisionsUsed       int             `db:"revisions_used"`
	DeliveryDate        time.Time       `db:"delivery_date"`
	CancelledAt         *time.Time      `db:"cancelled_at"`
	CancelledBy         *uuid.UUID      `db:"cancelled_by"`
	CancellationReason  *string         `db:"cancellation_reason"`
	CompletedAt         *time.Time      `db:"completed_at"`
	DisputeID           *uuid.UUID      `db:"dispute_id"`
	StatusBeforeDispute *string         `db:"status_before_dispute"`
	Version             int             `db:"version"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

func (r *orderRow) toEntity() *entity.Order {
	o := &entity.Order{
		ID:                 r.ID,
		Number:             r.Number,
		ContractID:         r.ContractID,
		ServiceID:          r.ServiceID,
		ClientID:           r.ClientID,
		FreelancerID:       r.FreelancerID,
		ConversationID:     r.ConversationID,
		Status:             valueobject.OrderStatus(r.Status),
		Price:              valueobject.Money{Amount: r.Price, Currency: r.Currency},
		DeliveryDays:       r.DeliveryDays,
		RevisionsIncluded:  r.RevisionsIncluded,
		RevisionsUsed:      r.RevisionsUsed,
		DeliveryDate:       r.DeliveryDate,
		CancelledAt:        r.CancelledAt,
		CancelledBy:        r.CancelledBy,
		CancellationReason: r.CancellationReason,
		CompletedAt:        r.CompletedAt,
		DisputeID:          r.DisputeID,
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.StatusBeforeDispute != nil {
		before := valueobject.OrderStatus(*r.StatusBeforeDispute)
		o.StatusBeforeDispute = &before
	}
	return o
}

func orderRowOf(o *entity.Order) orderRow {
	row := orderRow{
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
		RevisionsIncluded:  o.RevisionsIncluded,
		RevisionsUsed:      o.RevisionsUsed,
		DeliveryDate:       o.DeliveryDate,
		CancelledAt:        o.CancelledAt,
		CancelledBy:        o.CancelledBy,
		CancellationReason: o.CancellationReason,
		CompletedAt:        o.CompletedAt,
		DisputeID:          o.DisputeID,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if o.StatusBeforeDispute != nil {
		before := string(*o.StatusBeforeDispute)
		row.StatusBeforeDispute = &before
	}
	return row
}

const deliverableColumns = `id, order_id, type, file_ref, mime_type, message, is_revision, revision_number,
	delivered_at, accepted_at`

type deliverableRow struct {
	ID             uuid.UUID  `db:"id"`
	OrderID        uuid.UUID  `db:"order_id"`
	Type           string     `db:"type"`
	FileRef        *uuid.UUID `db:"file_ref"`
	MimeType       *string    `db:"mime_type"`
	Message        string     `db:"message"`
	IsRevision     bool       `db:"is_revision"`
	RevisionNumber *int       `db:"revision_number"`
	DeliveredAt    time.Time  `db:"delivered_at"`
	AcceptedAt     *time.Time `db:"accepted_at"`
}

func (r *deliverableRow) toEntity() entity.Deliverable {
	return entity.Deliverable{
		ID:             r.ID,
		OrderID:        r.OrderID,
		Type:           valueobject.DeliverableType(r.Type),
		FileRef:        r.FileRef,
		MimeType:       r.MimeType,
		Message:        r.Message,
		IsRevision:     r.IsRevision,
		RevisionNumber: r.RevisionNumber,
		DeliveredAt:    r.DeliveredAt,
		AcceptedAt:     r.AcceptedAt,
	}
}

type eventRow struct {
	ID          uuid.UUID  `db:"id"`
	AggregateID uuid.UUID  `db:"aggregate_id"`
	ActorID     *uuid.UUID `db:"actor_id"`
	Type        string     `db:"event_type"`
	Description string     `db:"description"`
	Metadata    []byte     `db:"metadata"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (r *eventRow) toEntity(aggregate valueobject.AggregateType) (entity.Event, error) {
	e := entity.Event{
		ID:            r.ID,
		AggregateType: aggregate,
		AggregateID:   r.AggregateID,
		ActorID:       r.ActorID,
		Type:          valueobject.EventType(r.Type),
		Description:   r.Description,
		CreatedAt:     r.CreatedAt,
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &e.Metadata); err != nil {
			return entity.Event{}, err
		}
	}
	return e, nil
}

type outboxRow struct {
	ID          uuid.UUID  `db:"id"`
	Topic       string     `db:"topic"`
	Key         string     `db:"message_key"`
	Payload     []byte     `db:"payload"`
	Attempts    int        `db:"attempts"`
	LastError   *string    `db:"last_error"`
	CreatedAt   time.Time  `db:"created_at"`
	PublishedAt *time.Time `db:"published_at"`
}

func (r *outboxRow) toEntity() *entity.OutboxMessage {
	return &entity.OutboxMessage{
		ID:          r.ID,
		Topic:       r.Topic,
		Key:         r.Key,
		Payload:     r.Payload,
		Attempts:    r.Attempts,
		LastError:   r.LastError,
		CreatedAt:   r.CreatedAt,
		PublishedAt: r.PublishedAt,
	}
}

type intentRow struct {
	ContractID uuid.UUID  `db:"contract_id"`
	Attempts   int        `db:"attempts"`
	LastError  string     `db:"last_error"`
	OrderID    *uuid.UUID `db:"order_id"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}

func (r *intentRow) toEntity() entity.OrderSpawnIntent {
	return entity.OrderSpawnIntent{
		ContractID: r.ContractID,
		Attempts:   r.Attempts,
		LastError:  r.LastError,
		OrderID:    r.OrderID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		ResolvedAt: r.ResolvedAt,
	}
}

type serviceRow struct {
	ID           uuid.UUID       `db:"id"`
	FreelancerID uuid.UUID       `db:"freelancer_id"`
	Title        string          `db:"title"`
	Description  string          `db:"description"`
	Price        decimal.Decimal `db:"price"`
	Currency     string          `db:"currency"`
	DeliveryDays int             `db:"delivery_days"`
	Revisions    int             `db:"revisions"`
}

// eventTable возвращает таблицу журнала и колонку агрегата.
func eventTable(aggregate valueobject.AggregateType) (string, string) {
	if aggregate == valueobject.AggregateContract {
		return "contract_events", "contract_id"
	}
	return "order_events", "order_id"
}
