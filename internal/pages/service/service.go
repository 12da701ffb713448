package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"casaviva_backend/internal/pages/repository"
	"casaviva_backend/internal/pages/transport"
	"casaviva_backend/platform/apperr"
)

type Service struct {
	repo *repository.Repository
}

func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (transport.PageResponse, error) {
	page, err := s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if errors.Is(err, repository.ErrNotFound) {
		return transport.PageResponse{}, apperr.NotFound("landing page")
	}
	if err != nil {
		return transport.PageResponse{}, apperr.Wrap(apperr.KindInternal, "get page", err)
	}
	return transport.ToPageResponse(page), nil
}

// GetByID serves the conversation module's page-context lookups.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.PageResponse, error) {
	page, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.PageResponse{}, apperr.NotFound("landing page")
	}
	if err != nil {
		return transport.PageResponse{}, apperr.Wrap(apperr.KindInternal, "get page", err)
	}
	return transport.ToPageResponse(page), nil
}

func (s *Service) Create(ctx context.Context, req transport.CreatePageRequest) (transport.PageResponse, error) {
	page, err := s.repo.Create(ctx, repository.CreateParams{
		Slug:          strings.ToLower(strings.TrimSpace(req.Slug)),
		Title:         req.Title,
		Description:   req.Description,
		PriceLabel:    req.PriceLabel,
		Amenities:     req.Amenities,
		Persona:       req.Persona,
		PersonaPrompt: req.PersonaPrompt,
		AgentName:     req.AgentName,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return transport.PageResponse{}, apperr.Conflict("a page with this slug already exists")
		}
		return transport.PageResponse{}, apperr.Wrap(apperr.KindInternal, "create page", err)
	}
	return transport.ToPageResponse(page), nil
}

func (s *Service) List(ctx context.Context) ([]transport.PageResponse, error) {
	pages, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list pages", err)
	}
	out := make([]transport.PageResponse, 0, len(pages))
	for _, p := range pages {
		out = append(out, transport.ToPageResponse(p))
	}
	return out, nil
}
