package transport

import (
	"time"

	"github.com/google/uuid"

	"casaviva_backend/internal/conversation/repository"
)

// ChatRequest is one visitor message from the widget. VisitorID is the
// widget-generated UUID kept in the visitor's browser storage.
type ChatRequest struct {
	VisitorID uuid.UUID  `json:"visitorId" binding:"required"`
	PageID    *uuid.UUID `json:"pageId"`
	Message   string     `json:"message" binding:"required" validate:"required,min=1,max=2000"`
}

// ChatResponse carries the concierge reply.
type ChatResponse struct {
	Reply     string `json:"reply"`
	AgentName string `json:"agentName"`
}

// HistoryResponse replays a stored conversation to the widget.
type HistoryResponse struct {
	Turns []TurnResponse `json:"turns"`
}

// TurnResponse is one stored message.
type TurnResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func ToHistoryResponse(turns []repository.Turn) HistoryResponse {
	out := make([]TurnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, TurnResponse{Role: t.Role, Content: t.Content, CreatedAt: t.CreatedAt})
	}
	return HistoryResponse{Turns: out}
}
