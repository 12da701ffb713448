// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"casaviva_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ChatOpened is published when a visitor sends the first message of a conversation.
type ChatOpened struct {
	BaseEvent
	VisitorID uuid.UUID  `json:"visitorId"`
	PageID    *uuid.UUID `json:"pageId,omitempty"`
}

func (e ChatOpened) EventName() string { return "conversation.chat.opened" }

// ChatMessageSent is published on every subsequent exchange with a running count.
type ChatMessageSent struct {
	BaseEvent
	VisitorID     uuid.UUID  `json:"visitorId"`
	PageID        *uuid.UUID `json:"pageId,omitempty"`
	ExchangeCount int        `json:"exchangeCount"`
}

func (e ChatMessageSent) EventName() string { return "conversation.message.sent" }

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a visitor's lead record is first created,
// i.e. the first extraction that yields an identifying field.
type LeadCreated struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	VisitorID uuid.UUID `json:"visitorId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Context   string    `json:"context,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadVIPDetected is published the first time a lead is classified as VIP.
type LeadVIPDetected struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	VisitorID uuid.UUID `json:"visitorId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Context   string    `json:"context,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}

func (e LeadVIPDetected) EventName() string { return "leads.vip.detected" }

// FunnelStageChanged is published when a lead's funnel stage advances.
type FunnelStageChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	VisitorID uuid.UUID `json:"visitorId"`
	OldStage  string    `json:"oldStage"`
	NewStage  string    `json:"newStage"`
}

func (e FunnelStageChanged) EventName() string { return "leads.stage.changed" }
