package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"casaviva_backend/internal/conversation/service"
	"casaviva_backend/internal/conversation/transport"
	"casaviva_backend/platform/httpkit"
	"casaviva_backend/platform/validator"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Chat)
	rg.GET("/history", h.History)
}

func (h *Handler) Chat(c *gin.Context) {
	var req transport.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	reply, err := h.svc.HandleTurn(c.Request.Context(), req.VisitorID, req.PageID, req.Message)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ChatResponse{Reply: reply.Content, AgentName: reply.AgentName})
}

func (h *Handler) History(c *gin.Context) {
	visitorID, err := uuid.Parse(c.Query("visitorId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid visitor id", nil)
		return
	}

	turns, err := h.svc.History(c.Request.Context(), visitorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToHistoryResponse(turns))
}
