// Package pages provides the landing-page bounded context: the property
// campaign pages the concierge grounds its answers on.
package pages

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "casaviva_backend/internal/http"
	"casaviva_backend/internal/pages/handler"
	"casaviva_backend/internal/pages/repository"
	"casaviva_backend/internal/pages/service"
	"casaviva_backend/platform/validator"
)

// Module is the pages bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	svc := service.New(repository.New(pool))
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string { return "pages" }

// Service exposes page lookups to the conversation module.
func (m *Module) Service() *service.Service { return m.service }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(rc.V1.Group("/pages"))
	m.handler.RegisterAdminRoutes(rc.Admin.Group("/pages"))
}
