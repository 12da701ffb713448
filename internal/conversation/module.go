// Package conversation provides the chat bounded context: the orchestrator
// that answers visitor messages, grounded in landing-page facts, and the
// persisted transcript the qualification pipeline reads.
package conversation

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"casaviva_backend/internal/conversation/handler"
	"casaviva_backend/internal/conversation/repository"
	"casaviva_backend/internal/conversation/service"
	"casaviva_backend/internal/events"
	apphttp "casaviva_backend/internal/http"
	"casaviva_backend/platform/logger"
	"casaviva_backend/platform/validator"
)

// Module is the conversation bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(
	pool *pgxpool.Pool,
	bus events.Bus,
	completer service.Completer,
	pages service.PageReader,
	engagement service.EngagementRecorder,
	personas service.PersonaConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	svc := service.New(repository.New(pool), completer, pages, engagement, bus, personas, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string { return "conversation" }

// Service exposes transcript access to the leads module.
func (m *Module) Service() *service.Service { return m.service }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	chat := rc.V1.Group("/chat")
	if rc.ChatRateLimiter != nil {
		chat.Use(rc.ChatRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(chat)
}
