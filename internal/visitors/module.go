// Package visitors provides the visitor-tracking bounded context: anonymous
// browser identities, their engagement trail, and the converted flag set
// once a visitor yields a lead.
package visitors

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"casaviva_backend/internal/events"
	apphttp "casaviva_backend/internal/http"
	"casaviva_backend/internal/visitors/handler"
	"casaviva_backend/internal/visitors/repository"
	"casaviva_backend/internal/visitors/service"
	"casaviva_backend/platform/logger"
	"casaviva_backend/platform/validator"
)

// Module is the visitors bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool))
	registerSubscriptions(bus, svc, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// subscriberService is the service slice the event subscriptions need.
type subscriberService interface {
	MarkConverted(ctx context.Context, visitorID uuid.UUID) error
	RecordEngagement(ctx context.Context, visitorID uuid.UUID, pageID *uuid.UUID, eventType string) error
}

func registerSubscriptions(bus events.Bus, svc subscriberService, log *logger.Logger) {
	// The first exchange of a conversation lands in the funnel trail as
	// its own event type; later exchanges are recorded by the
	// conversation module per message.
	bus.Subscribe(events.ChatOpened{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.ChatOpened)
		if !ok {
			return nil
		}
		if err := svc.RecordEngagement(ctx, e.VisitorID, e.PageID, "chat_opened"); err != nil {
			log.Error("record chat opened failed", "visitor_id", e.VisitorID, "error", err)
			return err
		}
		return nil
	}))

	// Conversion is driven by the leads pipeline, not by this module.
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadCreated)
		if !ok {
			return nil
		}
		if err := svc.MarkConverted(ctx, e.VisitorID); err != nil {
			log.Error("mark visitor converted failed", "visitor_id", e.VisitorID, "error", err)
			return err
		}
		return nil
	}))
}

func (m *Module) Name() string { return "visitors" }

// Service exposes engagement recording to the conversation module.
func (m *Module) Service() *service.Service { return m.service }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(rc.V1.Group("/visitors"))
	m.handler.RegisterAdminRoutes(rc.Admin.Group("/visitors"))
}
