// Package leads provides the lead qualification bounded context: extraction
// over conversation transcripts, profile reconciliation, funnel
// classification, VIP detection and the admin read surface.
package leads

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"casaviva_backend/internal/events"
	apphttp "casaviva_backend/internal/http"
	"casaviva_backend/internal/leads/extraction"
	"casaviva_backend/internal/leads/handler"
	"casaviva_backend/internal/leads/repository"
	"casaviva_backend/internal/leads/service"
	"casaviva_backend/platform/config"
	"casaviva_backend/platform/logger"
)

// Module is the leads bounded context implementing http.Module.
type Module struct {
	handler   *handler.Handler
	qualifier *service.Qualifier
}

// NewModule wires the leads context. Transcript access and workflow
// dispatch cross module boundaries, so they arrive as narrow interfaces
// chosen by the composition root.
func NewModule(
	pool *pgxpool.Pool,
	bus events.Bus,
	completer extraction.Completer,
	transcripts service.TranscriptReader,
	dispatcher service.Dispatcher,
	pages service.PageReader,
	cfg config.ConciergeConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	extractor := extraction.NewExtractor(completer, log)
	qualifier := service.NewQualifier(repo, transcripts, extractor, dispatcher, pages, bus, log)
	admin := service.NewAdmin(repo, transcripts)

	m := &Module{
		handler:   handler.New(admin),
		qualifier: qualifier,
	}

	cadence := cfg.GetExtractionCadence()

	// Qualification runs off the chat path: the conversation module
	// publishes an event per exchange and the pipeline fires here every
	// Nth one, so a slow extraction never delays a visitor's reply.
	bus.Subscribe(events.ChatMessageSent{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.ChatMessageSent)
		if !ok {
			return nil
		}
		if e.ExchangeCount%cadence != 0 {
			return nil
		}
		if err := qualifier.Run(ctx, e.VisitorID, e.PageID); err != nil {
			log.Error("lead qualification pass failed", "visitor_id", e.VisitorID, "error", err)
			return err
		}
		return nil
	}))

	return m
}

func (m *Module) Name() string { return "leads" }

// Qualifier exposes the pipeline for the worker binary.
func (m *Module) Qualifier() *service.Qualifier { return m.qualifier }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterRoutes(rc.Admin.Group("/leads"))
}
