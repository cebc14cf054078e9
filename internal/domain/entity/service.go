package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service - услуга фрилансера из каталога. Движок только читает её.
type Service struct {
	ID           uuid.UUID
	FreelancerID uuid.UUID
	Title        string
	Description  string
	Price        decimal.Decimal
	Currency     string
	DeliveryDays int
	Revisions    int
}

// Attachment - уже загруженный файл, на который ссылается результат работы.
type Attachment struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	FilePath string
	MimeType string
}
