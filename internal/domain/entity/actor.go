package entity

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
)

// Actor - пользователь, от имени которого выполняется операция.
type Actor struct {
	ID   uuid.UUID
	Role valueobject.Role
	IP   string
}

func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

// System - актор фоновых задач (восстановление заказов, решения по спорам из шины).
var System = Actor{ID: uuid.Nil, Role: valueobject.RoleAdmin}

func (a Actor) IsSystem() bool {
	return a.ID == uuid.Nil
}

// ActorRef возвращает id актора для журнала событий; у системного актора его нет.
func (a Actor) ActorRef() *uuid.UUID {
	if a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}

func (a Actor) ipRef() *string {
	if a.IP == "" {
		return nil
	}
	ip := a.IP
	return &ip
}
