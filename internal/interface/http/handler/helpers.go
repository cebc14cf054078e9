package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/http/middleware"
	"github.com/ignatzorin/freelance-contracts/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-contracts/internal/interface/http/response"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-contracts/internal/usecase/lifecycle"
)

func getUserID(c *gin.Context) (uuid.UUID, error) {
	userIDValue, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, errors.New("userID не найден в контексте")
	}

	userID, ok := userIDValue.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("некорректный формат userID")
	}

	return userID, nil
}

// getActor собирает актора из контекста. IP нужен для фиксации согласия с контрактом.
func getActor(c *gin.Context) (entity.Actor, bool) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return entity.Actor{}, false
	}
	role, _ := c.Get(middleware.ContextRoleKey)
	r, _ := role.(valueobject.Role)
	return entity.Actor{ID: userID, Role: r, IP: c.ClientIP()}, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "некорректный идентификатор "+name)
		return uuid.Nil, false
	}
	return id, true
}

type validatable interface {
	Validate() error
}

// bindJSON разбирает тело запроса и проверяет длины текстовых полей.
func bindJSON(c *gin.Context, dst validatable) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return false
	}
	if err := dst.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// bindOptionalJSON разбирает тело, если оно есть. Пустое тело допустимо.
func bindOptionalJSON(c *gin.Context, dst validatable) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dst)
}

// writeContractResult отдаёт результат операции над контрактом. Частичный
// успех (контракт принят, заказ не создан) отдаётся как 202 вместе с данными.
func writeContractResult(c *gin.Context, result *lifecycle.ContractResult, err error) {
	if err != nil {
		if apperror.IsInconsistent(err) && result != nil {
			response.Accepted(c, dto.ToContractResultResponse(result.Contract, result.Order), err)
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToContractResultResponse(result.Contract, result.Order))
}
