package transport

import (
	"time"

	"github.com/google/uuid"

	"casaviva_backend/internal/pages/repository"
)

// CreatePageRequest carries a new landing-page campaign.
type CreatePageRequest struct {
	Slug          string   `json:"slug" binding:"required" validate:"required,min=2,max=120"`
	Title         string   `json:"title" binding:"required" validate:"required,min=2,max=200"`
	Description   string   `json:"description"`
	PriceLabel    string   `json:"priceLabel"`
	Amenities     []string `json:"amenities"`
	Persona       string   `json:"persona"`
	PersonaPrompt *string  `json:"personaPrompt"`
	AgentName     *string  `json:"agentName"`
}

// PageResponse is the landing page representation served to the widget
// and the admin surface.
type PageResponse struct {
	ID            uuid.UUID `json:"id"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PriceLabel    string    `json:"priceLabel"`
	Amenities     []string  `json:"amenities"`
	Persona       string    `json:"persona"`
	PersonaPrompt *string   `json:"personaPrompt,omitempty"`
	AgentName     *string   `json:"agentName,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func ToPageResponse(p repository.LandingPage) PageResponse {
	return PageResponse{
		ID:            p.ID,
		Slug:          p.Slug,
		Title:         p.Title,
		Description:   p.Description,
		PriceLabel:    p.PriceLabel,
		Amenities:     p.Amenities,
		Persona:       p.Persona,
		PersonaPrompt: p.PersonaPrompt,
		AgentName:     p.AgentName,
		CreatedAt:     p.CreatedAt,
	}
}
