package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"casaviva_backend/internal/visitors/repository"
	"casaviva_backend/internal/visitors/transport"
	"casaviva_backend/platform/apperr"
)

const defaultEventType = "page_view"

type Service struct {
	repo *repository.Repository
}

func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Track records one visitor sighting and its engagement event.
func (s *Service) Track(ctx context.Context, req transport.TrackRequest) error {
	eventType := req.EventType
	if eventType == "" {
		eventType = defaultEventType
	}
	params := repository.UpsertParams{
		ID:     req.VisitorID,
		PageID: req.PageID,
		Source: req.Source,
		Device: req.Device,
	}
	if err := s.repo.RecordFunnelEvent(ctx, params, eventType); err != nil {
		return apperr.Wrap(apperr.KindInternal, "track visitor", err)
	}
	return nil
}

// RecordEngagement satisfies the conversation module's recorder port.
// Engagement signals carry no attribution; first-touch data stays intact.
func (s *Service) RecordEngagement(ctx context.Context, visitorID uuid.UUID, pageID *uuid.UUID, eventType string) error {
	return s.repo.RecordFunnelEvent(ctx, repository.UpsertParams{ID: visitorID, PageID: pageID}, eventType)
}

// MarkConverted flags the visitor after their lead is created.
func (s *Service) MarkConverted(ctx context.Context, visitorID uuid.UUID) error {
	return s.repo.MarkConverted(ctx, visitorID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.VisitorResponse, error) {
	visitor, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.VisitorResponse{}, apperr.NotFound("visitor")
	}
	if err != nil {
		return transport.VisitorResponse{}, apperr.Wrap(apperr.KindInternal, "get visitor", err)
	}
	return transport.ToVisitorResponse(visitor), nil
}

func (s *Service) FunnelEvents(ctx context.Context, id uuid.UUID) ([]transport.FunnelEventResponse, error) {
	events, err := s.repo.ListFunnelEvents(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list funnel events", err)
	}
	return transport.ToFunnelEventResponses(events), nil
}
