package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-contracts/internal/interface/http/response"
	"github.com/ignatzorin/freelance-contracts/internal/usecase/lifecycle"
)

type ContractHandler struct {
	engine *lifecycle.Engine
}

func NewContractHandler(engine *lifecycle.Engine) *ContractHandler {
	return &ContractHandler{engine: engine}
}

// CreateContract - оферта исполнителя клиенту.
func (h *ContractHandler) CreateContract(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req dto.CreateContractRequest
	if !bindJSON(c, &req) {
		return
	}
	conversationID, err := dto.ParseOptionalUUID(req.ConversationID)
	if err != nil {
		response.BadRequest(c, "некорректный conversation_id")
		return
	}

	contract, err := h.engine.CreateContract(c.Request.Context(), actor, lifecycle.CreateContractInput{
		ServiceID:          uuid.MustParse(req.ServiceID),
		ClientID:           uuid.MustParse(req.ClientID),
		ConversationID:     conversationID,
		ScopeOfWork:        req.ScopeOfWork,
		CancellationPolicy: req.CancellationPolicy,
		Price:              req.Price,
		Currency:           req.Currency,
		DeliveryDays:       req.DeliveryDays,
		RevisionsIncluded:  req.RevisionsIncluded,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToContractResponse(contract))
}

func (h *ContractHandler) GetContract(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	contract, err := h.engine.GetContract(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToContractResponse(contract))
}

func (h *ContractHandler) ListEvents(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	events, err := h.engine.ListContractEvents(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEventResponses(events))
}

func (h *ContractHandler) AcceptContract(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.engine.AcceptContract(c.Request.Context(), id, actor)
	writeContractResult(c, result, err)
}

func (h *ContractHandler) RejectContract(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.ReasonRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.engine.RejectContract(c.Request.Context(), id, actor, req.Reason)
	writeContractResult(c, result, err)
}

func (h *ContractHandler) CancelContract(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.ReasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.engine.CancelContract(c.Request.Context(), id, actor, req.Reason)
	writeContractResult(c, result, err)
}

// RepairOrder повторяет создание заказа по принятому контракту. Только для администратора.
func (h *ContractHandler) RepairOrder(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.engine.RepairOrderSpawn(c.Request.Context(), id, actor)
	writeContractResult(c, result, err)
}
