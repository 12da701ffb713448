package transport

import (
	"time"

	"github.com/google/uuid"

	"casaviva_backend/internal/visitors/repository"
)

// TrackRequest records a page view or widget event for a visitor.
type TrackRequest struct {
	VisitorID uuid.UUID  `json:"visitorId" binding:"required"`
	PageID    *uuid.UUID `json:"pageId"`
	EventType string     `json:"eventType" validate:"omitempty,oneof=page_view widget_open chat_message"`
	Source    *string    `json:"source" validate:"omitempty,max=120"`
	Device    *string    `json:"device" validate:"omitempty,max=60"`
}

// VisitorResponse is the admin-facing visitor representation.
type VisitorResponse struct {
	ID          uuid.UUID  `json:"id"`
	FirstPageID *uuid.UUID `json:"firstPageId"`
	Source      *string    `json:"source,omitempty"`
	Device      *string    `json:"device,omitempty"`
	FirstSeenAt time.Time  `json:"firstSeenAt"`
	LastSeenAt  time.Time  `json:"lastSeenAt"`
	Converted   bool       `json:"converted"`
}

// FunnelEventResponse is one entry in a visitor's engagement trail.
type FunnelEventResponse struct {
	EventType string     `json:"eventType"`
	PageID    *uuid.UUID `json:"pageId"`
	CreatedAt time.Time  `json:"createdAt"`
}

func ToVisitorResponse(v repository.Visitor) VisitorResponse {
	return VisitorResponse{
		ID:          v.ID,
		FirstPageID: v.FirstPageID,
		Source:      v.Source,
		Device:      v.Device,
		FirstSeenAt: v.FirstSeenAt,
		LastSeenAt:  v.LastSeenAt,
		Converted:   v.Converted,
	}
}

func ToFunnelEventResponses(events []repository.FunnelEvent) []FunnelEventResponse {
	out := make([]FunnelEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, FunnelEventResponse{
			EventType: e.EventType,
			PageID:    e.PageID,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
