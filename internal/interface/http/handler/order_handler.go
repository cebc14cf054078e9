package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-contracts/internal/interface/http/response"
	"github.com/ignatzorin/freelance-contracts/internal/usecase/lifecycle"
)

type OrderHandler struct {
	engine *lifecycle.Engine
}

func NewOrderHandler(engine *lifecycle.Engine) *OrderHandler {
	return &OrderHandler{engine: engine}
}

// PlaceOrder - клиент оформляет заказ по услуге; заказ ждёт подтверждения контракта.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req dto.PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	conversationID, err := dto.ParseOptionalUUID(req.ConversationID)
	if err != nil {
		response.BadRequest(c, "некорректный conversation_id")
		return
	}
	var clientID uuid.UUID
	if id, err := dto.ParseOptionalUUID(req.ClientID); err != nil {
		response.BadRequest(c, "некорректный client_id")
		return
	} else if id != nil {
		clientID = *id
	}

	result, err := h.engine.PlaceOrder(c.Request.Context(), actor, lifecycle.CreateContractInput{
		ServiceID:          uuid.MustParse(req.ServiceID),
		ClientID:           clientID,
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

	response.Created(c, dto.ToContractResultResponse(result.Contract, result.Order))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.engine.GetOrder(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(order))
}

func (h *OrderHandler) ListEvents(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	events, err := h.engine.ListOrderEvents(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEventResponses(events))
}

// AcceptOrder подтверждает ожидающий заказ. Это принятие контракта, к которому заказ привязан.
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.engine.GetOrder(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.engine.AcceptContract(c.Request.Context(), order.ContractID, actor)
	writeContractResult(c, result, err)
}

// RejectOrder отклоняет ожидающий заказ вместе с его контрактом.
func (h *OrderHandler) RejectOrder(c *gin.Context) {
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

	order, err := h.engine.GetOrder(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.engine.RejectContract(c.Request.Context(), order.ContractID, actor, req.Reason)
	writeContractResult(c, result, err)
}

func (h *OrderHandler) SubmitDelivery(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.DeliveryRequest
	if !bindJSON(c, &req) {
		return
	}
	deliverableType, err := valueobject.NewDeliverableType(req.Type)
	if err != nil {
		response.Error(c, err)
		return
	}
	fileRef, err := dto.ParseOptionalUUID(req.FileRef)
	if err != nil {
		response.BadRequest(c, "некорректный file_ref")
		return
	}

	result, err := h.engine.SubmitDelivery(c.Request.Context(), id, actor, lifecycle.DeliveryInput{
		Type:       deliverableType,
		FileRef:    fileRef,
		Message:    req.Message,
		IsRevision: req.IsRevision,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DeliveryResultResponse{
		Order:       dto.ToOrderResponse(result.Order),
		Deliverable: dto.ToDeliverableResponse(result.Deliverable),
	})
}

func (h *OrderHandler) AcceptDelivery(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	deliverableID, ok := pathUUID(c, "deliverableId")
	if !ok {
		return
	}

	result, err := h.engine.AcceptDelivery(c.Request.Context(), id, actor, deliverableID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.DeliveryResultResponse{
		Order:       dto.ToOrderResponse(result.Order),
		Deliverable: dto.ToDeliverableResponse(result.Deliverable),
	})
}

func (h *OrderHandler) RequestRevision(c *gin.Context) {
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

	order, err := h.engine.RequestRevision(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(order))
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
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

	result, err := h.engine.CancelOrder(c.Request.Context(), id, actor, req.Reason)
	writeContractResult(c, result, err)
}
