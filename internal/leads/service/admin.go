package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"casaviva_backend/internal/leads/domain"
	"casaviva_backend/internal/leads/extraction"
	"casaviva_backend/internal/leads/repository"
	"casaviva_backend/internal/leads/transport"
	"casaviva_backend/platform/apperr"
	"casaviva_backend/platform/phone"
)

// Admin serves the back-office read and correction surface. Unlike the
// qualifier it may move leads freely: an operator override is allowed to
// regress the funnel stage or clear a wrongly extracted field.
type Admin struct {
	repo       *repository.Repository
	transcript TranscriptReader
}

func NewAdmin(repo *repository.Repository, transcript TranscriptReader) *Admin {
	return &Admin{repo: repo, transcript: transcript}
}

func (a *Admin) List(ctx context.Context, req transport.ListLeadsRequest) ([]transport.LeadResponse, error) {
	if req.Stage != "" && !domain.IsKnownStage(req.Stage) {
		return nil, apperr.Validation(fmt.Sprintf("unknown funnel stage %q", req.Stage))
	}

	leads, err := a.repo.List(ctx, repository.ListFilter{
		Stage:   req.Stage,
		VIPOnly: req.VIPOnly,
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list leads", err)
	}

	out := make([]transport.LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, transport.ToLeadResponse(l))
	}
	return out, nil
}

func (a *Admin) Get(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := a.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound("lead")
	}
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "get lead", err)
	}
	return transport.ToLeadResponse(lead), nil
}

// Transcript returns the full conversation behind a lead.
func (a *Admin) Transcript(ctx context.Context, id uuid.UUID) ([]extraction.Turn, error) {
	lead, err := a.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("lead")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get lead", err)
	}
	turns, err := a.transcript.Transcript(ctx, lead.VisitorID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load transcript", err)
	}
	return turns, nil
}

// OverrideStage sets the funnel stage unconditionally.
func (a *Admin) OverrideStage(ctx context.Context, id uuid.UUID, stage string) (transport.LeadResponse, error) {
	if !domain.IsKnownStage(stage) {
		return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("unknown funnel stage %q", stage))
	}
	if err := a.repo.UpdateStage(ctx, id, stage); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead")
		}
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "override stage", err)
	}
	return a.Get(ctx, id)
}

// UpdateFields applies operator edits. A present-but-empty value clears
// the field, which is how a wrongly extracted phone gets removed so a
// later extraction can capture the right one.
func (a *Admin) UpdateFields(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	lead, err := a.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound("lead")
	}
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "get lead", err)
	}

	fields := lead.Fields()
	if req.Name != nil {
		fields.Name = *req.Name
	}
	if req.Phone != nil {
		fields.Phone = phone.NormalizeE164(*req.Phone)
	}
	if req.Email != nil {
		fields.Email = *req.Email
	}
	if req.Budget != nil {
		fields.Budget = *req.Budget
	}
	if req.Preferences != nil {
		fields.Preferences = *req.Preferences
	}

	updated, err := a.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "update lead", err)
	}
	return transport.ToLeadResponse(updated), nil
}
