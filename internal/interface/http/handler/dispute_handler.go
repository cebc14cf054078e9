package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-contracts/internal/interface/http/response"
	"github.com/ignatzorin/freelance-contracts/internal/usecase/lifecycle"
)

// DisputeHandler - служебные ручки подсистемы споров. В норме те же вызовы
// приходят через шину, HTTP остаётся для ручного вмешательства администратора.
type DisputeHandler struct {
	engine *lifecycle.Engine
}

func NewDisputeHandler(engine *lifecycle.Engine) *DisputeHandler {
	return &DisputeHandler{engine: engine}
}

func (h *DisputeHandler) EnterDispute(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.OpenDisputeRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.engine.EnterDispute(c.Request.Context(), id, uuid.MustParse(req.DisputeID), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(order))
}

func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	disputeID, ok := pathUUID(c, "disputeId")
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if !bindJSON(c, &req) {
		return
	}
	outcome, err := valueobject.NewDisputeOutcome(req.Outcome)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.engine.ResolveDispute(c.Request.Context(), id, disputeID, outcome, actor)
	writeContractResult(c, result, err)
}
