package entity

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

type Deliverable struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	Type           valueobject.DeliverableType
	FileRef        *uuid.UUID
	MimeType       *string
	Message        string
	IsRevision     bool
	RevisionNumber *int
	DeliveredAt    time.Time
	AcceptedAt     *time.Time
}

// DeliveryDraft - то, что прислал исполнитель, до проверки заказа.
type DeliveryDraft struct {
	Type       valueobject.DeliverableType
	FileRef    *uuid.UUID
	Message    string
	IsRevision bool
}

// Validate проверяет содержимое сдачи без обращения к хранилищу.
func (d DeliveryDraft) Validate() error {
	message := strings.TrimSpace(d.Message)
	switch d.Type {
	case valueobject.DeliverableTypeFile:
		if d.FileRef == nil || *d.FileRef == uuid.Nil {
			return apperror.New(apperror.ErrCodeValidation, "для файла нужна ссылка на загруженный файл")
		}
	case valueobject.DeliverableTypeText:
		if message == "" {
			return apperror.New(apperror.ErrCodeValidation, "текст результата не может быть пустым")
		}
	case valueobject.DeliverableTypeLink:
		u, err := url.ParseRequestURI(message)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperror.New(apperror.ErrCodeValidation, "ссылка на результат должна быть http(s) адресом")
		}
	default:
		return apperror.New(apperror.ErrCodeValidation, "некорректный тип результата работы")
	}
	return nil
}

func NewDeliverable(orderID uuid.UUID, draft DeliveryDraft, mimeType *string, revisionNumber *int, now time.Time) *Deliverable {
	return &Deliverable{
		ID:             uuid.New(),
		OrderID:        orderID,
		Type:           draft.Type,
		FileRef:        draft.FileRef,
		MimeType:       mimeType,
		Message:        strings.TrimSpace(draft.Message),
		IsRevision:     draft.IsRevision,
		RevisionNumber: revisionNumber,
		DeliveredAt:    now,
	}
}

func (d *Deliverable) Accept(now time.Time) {
	stamp := now
	d.AcceptedAt = &stamp
}
