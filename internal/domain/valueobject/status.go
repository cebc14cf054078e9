package valueobject

import "github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"

type ContractStatus string

const (
	ContractStatusPendingAcceptance ContractStatus = "PENDING_ACCEPTANCE"
	ContractStatusActive            ContractStatus = "ACTIVE"
	ContractStatusRejected          ContractStatus = "REJECTED"
	ContractStatusCancelled         ContractStatus = "CANCELLED"
)

var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractStatusPendingAcceptance: {ContractStatusActive, ContractStatusRejected, ContractStatusCancelled},
	ContractStatusActive:            {ContractStatusCancelled},
	ContractStatusRejected:          {},
	ContractStatusCancelled:         {},
}

func (s ContractStatus) IsValid() bool {
	_, ok := contractTransitions[s]
	return ok
}

func (s ContractStatus) IsTerminal() bool {
	return s == ContractStatusRejected || s == ContractStatusCancelled
}

func (s ContractStatus) CanTransitionTo(newStatus ContractStatus) bool {
	for _, status := range contractTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPendingAcceptance OrderStatus = "PENDING_ACCEPTANCE"
	OrderStatusInProgress        OrderStatus = "IN_PROGRESS"
	OrderStatusDelivered         OrderStatus = "DELIVERED"
	OrderStatusRevisionRequested OrderStatus = "REVISION_REQUESTED"
	OrderStatusCompleted         OrderStatus = "COMPLETED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
	OrderStatusDisputed          OrderStatus = "DISPUTED"
)

// Переходы в DISPUTED и обратно описаны отдельно: спор открывается из любого
// нетерминального статуса и снимается только через решение по спору.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingAcceptance: {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress:        {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:         {OrderStatusCompleted, OrderStatusRevisionRequested},
	OrderStatusRevisionRequested: {OrderStatusDelivered},
	OrderStatusCompleted:         {},
	OrderStatusCancelled:         {},
	OrderStatusDisputed:          {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo проверяет обычный (не связанный со спором) переход.
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	for _, status := range orderTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// CanEnterDispute разрешает открыть спор из любого нетерминального статуса.
func (s OrderStatus) CanEnterDispute() bool {
	return s.IsValid() && !s.IsTerminal() && s != OrderStatusDisputed
}

// MirrorContractStatus возвращает статус контракта, соответствующий статусу заказа.
// Контракт не живёт собственной жизнью после появления заказа.
func MirrorContractStatus(s OrderStatus) ContractStatus {
	switch s {
	case OrderStatusPendingAcceptance:
		return ContractStatusPendingAcceptance
	case OrderStatusCancelled:
		return ContractStatusCancelled
	default:
		return ContractStatusActive
	}
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

func NewContractStatus(status string) (ContractStatus, error) {
	s := ContractStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус контракта")
	}
	return s, nil
}
