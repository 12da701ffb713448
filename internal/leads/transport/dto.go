package transport

import (
	"time"

	"github.com/google/uuid"

	"casaviva_backend/internal/leads/repository"
)

// ListLeadsRequest carries the admin listing filters, bound from query params.
type ListLeadsRequest struct {
	Stage   string `form:"stage"`
	VIPOnly bool   `form:"vip"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
}

// UpdateLeadRequest carries operator field edits. Nil means "leave alone",
// a pointer to the empty string clears the field.
type UpdateLeadRequest struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Budget      *string `json:"budget"`
	Preferences *string `json:"preferences"`
}

// OverrideStageRequest sets the funnel stage directly.
type OverrideStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

// LeadResponse is the admin-facing lead representation.
type LeadResponse struct {
	ID              uuid.UUID `json:"id"`
	VisitorID       uuid.UUID `json:"visitorId"`
	Name            *string   `json:"name"`
	Phone           *string   `json:"phone"`
	Email           *string   `json:"email"`
	Budget          *string   `json:"budget"`
	Preferences     *string   `json:"preferences"`
	Stage           string    `json:"stage"`
	IsVIP           bool      `json:"isVip"`
	Summary         *string   `json:"summary"`
	WelcomeNotified bool      `json:"welcomeNotified"`
	VIPNotified     bool      `json:"vipNotified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func ToLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:              l.ID,
		VisitorID:       l.VisitorID,
		Name:            l.Name,
		Phone:           l.Phone,
		Email:           l.Email,
		Budget:          l.Budget,
		Preferences:     l.Preferences,
		Stage:           l.Stage,
		IsVIP:           l.IsVIP,
		Summary:         l.Summary,
		WelcomeNotified: l.WelcomeNotified,
		VIPNotified:     l.VIPNotified,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

// TranscriptTurn is one conversation turn in the admin transcript view.
type TranscriptTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
