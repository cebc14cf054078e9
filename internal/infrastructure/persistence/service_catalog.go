package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-contracts/internal/repository/common"
)

// ServiceCatalog читает услуги из таблицы services.
type ServiceCatalog struct {
	db *sqlx.DB
}

func NewServiceCatalog(db *sqlx.DB) *ServiceCatalog {
	return &ServiceCatalog{db: db}
}

func (r *ServiceCatalog) GetService(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	row, err := common.GetOne[serviceRow](ctx, r.db, apperror.ErrServiceNotFound, `
		SELECT id, freelancer_id, title, description, price, currency, delivery_days, revisions
		FROM services WHERE id = $1`, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, dbError("get service", err)
	}
	return &entity.Service{
		ID:           row.ID,
		FreelancerID: row.FreelancerID,
		Title:        row.Title,
		Description:  row.Description,
		Price:        row.Price,
		Currency:     row.Currency,
		DeliveryDays: row.DeliveryDays,
		Revisions:    row.Revisions,
	}, nil
}
