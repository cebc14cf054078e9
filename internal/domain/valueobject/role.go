package valueobject

import (
	"strings"

	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleFreelancer Role = "FREELANCER"
	RoleAdmin      Role = "ADMIN"
)

// ParseRole принимает роль в любом регистре, как она приходит из токена.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch r {
	case RoleClient, RoleFreelancer, RoleAdmin:
		return r, nil
	}
	return "", apperror.New(apperror.ErrCodeUnauthorized, "неизвестная роль пользователя")
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type DisputeOutcome string

const (
	DisputeOutcomeNone          DisputeOutcome = "NONE"
	DisputeOutcomeRefundClient  DisputeOutcome = "REFUND_CLIENT"
	DisputeOutcomePayFreelancer DisputeOutcome = "PAY_FREELANCER"
	DisputeOutcomeSplit         DisputeOutcome = "SPLIT"
)

func NewDisputeOutcome(raw string) (DisputeOutcome, error) {
	o := DisputeOutcome(strings.ToUpper(strings.TrimSpace(raw)))
	switch o {
	case DisputeOutcomeNone, DisputeOutcomeRefundClient, DisputeOutcomePayFreelancer, DisputeOutcomeSplit:
		return o, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректный исход спора")
}

// ResolvedStatus возвращает статус заказа после решения спора.
// NONE возвращает заказ в статус, в котором он был до открытия спора.
// Заказ, который исполнитель так и не принял, не может завершиться оплатой
// и отменяется при любом исходе кроме NONE.
func (o DisputeOutcome) ResolvedStatus(before OrderStatus) OrderStatus {
	switch o {
	case DisputeOutcomeRefundClient:
		return OrderStatusCancelled
	case DisputeOutcomePayFreelancer, DisputeOutcomeSplit:
		if before == OrderStatusPendingAcceptance {
			return OrderStatusCancelled
		}
		return OrderStatusCompleted
	default:
		return before
	}
}

type DeliverableType string

const (
	DeliverableTypeFile DeliverableType = "FILE"
	DeliverableTypeText DeliverableType = "TEXT"
	DeliverableTypeLink DeliverableType = "LINK"
)

func NewDeliverableType(raw string) (DeliverableType, error) {
	t := DeliverableType(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case DeliverableTypeFile, DeliverableTypeText, DeliverableTypeLink:
		return t, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректный тип результата работы")
}
