package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"casaviva_backend/internal/events"
	"casaviva_backend/internal/leads/domain"
	"casaviva_backend/internal/leads/extraction"
	"casaviva_backend/internal/leads/repository"
	pagestransport "casaviva_backend/internal/pages/transport"
	"casaviva_backend/platform/logger"
	"casaviva_backend/platform/phone"
)

// LeadStore is the persistence slice the qualifier needs.
type LeadStore interface {
	GetByVisitor(ctx context.Context, visitorID uuid.UUID) (repository.Lead, error)
	Create(ctx context.Context, visitorID uuid.UUID, fields domain.LeadFields, stage string) (repository.Lead, error)
	ReconcileFields(ctx context.Context, id uuid.UUID, fields domain.LeadFields) (repository.Lead, error)
	UpdateStage(ctx context.Context, id uuid.UUID, stage string) error
	MarkWelcomeNotified(ctx context.Context, id uuid.UUID) (bool, error)
	ClaimVIP(ctx context.Context, id uuid.UUID) (bool, error)
	MarkVIPNotified(ctx context.Context, id uuid.UUID) error
	SetSummary(ctx context.Context, id uuid.UUID, summary string) error
}

// TranscriptReader loads the persisted conversation for a visitor,
// oldest turn first.
type TranscriptReader interface {
	Transcript(ctx context.Context, visitorID uuid.UUID) ([]extraction.Turn, error)
}

// ProfileExtractor runs the model-backed extraction passes.
type ProfileExtractor interface {
	Extract(ctx context.Context, transcript []extraction.Turn) domain.Extraction
	Summarize(ctx context.Context, transcript []extraction.Turn) (string, error)
}

// Dispatcher hands qualified-lead events to the downstream workflow
// engine, directly or via the task queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, event string, payload map[string]any) error
}

// PageReader resolves the landing page a conversation ran on, so the
// workflow payloads can carry the property the visitor was looking at.
type PageReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (pagestransport.PageResponse, error)
}

// Workflow event names, part of the webhook contract.
const (
	EventLeadCreated = "lead/created"
	EventVIPDetected = "lead/vip-detected"
)

// Qualifier runs the extraction-reconciliation-notification pipeline for
// one visitor. Runs are deduplicated per visitor with singleflight so
// overlapping cadence triggers collapse into one pass; correctness does
// not depend on it since the merge is idempotent and the notification
// claims are conditional updates.
type Qualifier struct {
	store      LeadStore
	transcript TranscriptReader
	extractor  ProfileExtractor
	dispatcher Dispatcher
	pages      PageReader
	bus        events.Bus
	logger     *logger.Logger
	group      singleflight.Group
}

func NewQualifier(
	store LeadStore,
	transcript TranscriptReader,
	extractor ProfileExtractor,
	dispatcher Dispatcher,
	pages PageReader,
	bus events.Bus,
	log *logger.Logger,
) *Qualifier {
	return &Qualifier{
		store:      store,
		transcript: transcript,
		extractor:  extractor,
		dispatcher: dispatcher,
		pages:      pages,
		bus:        bus,
		logger:     log,
	}
}

// Run executes one qualification pass for the visitor.
func (q *Qualifier) Run(ctx context.Context, visitorID uuid.UUID, pageID *uuid.UUID) error {
	_, err, _ := q.group.Do(visitorID.String(), func() (any, error) {
		return nil, q.run(ctx, visitorID, pageID)
	})
	return err
}

func (q *Qualifier) run(ctx context.Context, visitorID uuid.UUID, pageID *uuid.UUID) error {
	log := q.logger.WithVisitorID(visitorID.String())

	transcript, err := q.transcript.Transcript(ctx, visitorID)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	if len(transcript) == 0 {
		return nil
	}

	extracted := q.extractor.Extract(ctx, transcript)
	if extracted.Empty() {
		return nil
	}
	normalizePhone(&extracted)

	lead, created, err := q.loadOrCreateLead(ctx, visitorID, extracted)
	if err != nil {
		return err
	}
	if lead == nil {
		// Nothing identifying yet and no VIP signal on a fresh visitor.
		return nil
	}

	pre := lead.Fields()
	result := domain.Merge(pre, extracted)
	fields := result.Fields
	if result.Changed && !created {
		// The row-level merge in ReconcileFields repeats the policy, so a
		// snapshot gone stale under a concurrent pass cannot clobber
		// contact data captured between this read and this write.
		updated, err := q.store.ReconcileFields(ctx, lead.ID, result.Fields)
		if err != nil {
			return fmt.Errorf("persist merged fields: %w", err)
		}
		*lead = updated
		fields = updated.Fields()
	}

	if created {
		q.bus.Publish(ctx, events.LeadCreated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			VisitorID: visitorID,
			Name:      fields.Name,
			Phone:     fields.Phone,
		})
	}

	if err := q.reclassify(ctx, log, lead, fields, extracted.VIP); err != nil {
		return err
	}

	pageTitle := q.pageTitle(ctx, pageID)

	if extracted.VIP {
		q.handleVIP(ctx, log, lead, transcript, pageTitle)
	}

	if result.PhoneJustCaptured || (created && fields.Phone != "") {
		q.handleWelcome(ctx, log, lead, fields, pageTitle)
	}

	return nil
}

// loadOrCreateLead fetches the visitor's lead, creating it on first
// contact data. Returns a nil lead when no record exists and the
// extraction carries nothing identifying.
func (q *Qualifier) loadOrCreateLead(ctx context.Context, visitorID uuid.UUID, extracted domain.Extraction) (*repository.Lead, bool, error) {
	lead, err := q.store.GetByVisitor(ctx, visitorID)
	if err == nil {
		return &lead, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("load lead: %w", err)
	}

	if !extracted.HasContactField() && !extracted.VIP {
		return nil, false, nil
	}

	// New leads always start at the base stage; the reclassify step right
	// after creation advances them and publishes the stage-change event.
	result := domain.Merge(domain.LeadFields{}, extracted)
	created, err := q.store.Create(ctx, visitorID, result.Fields, string(domain.StageVisitor))
	if err != nil {
		return nil, false, fmt.Errorf("create lead: %w", err)
	}
	return &created, true, nil
}

// reclassify recomputes the funnel stage from the merged fields and
// persists it when it advanced.
func (q *Qualifier) reclassify(ctx context.Context, log *logger.Logger, lead *repository.Lead, fields domain.LeadFields, vip bool) error {
	current := domain.Stage(lead.Stage)
	next := domain.Classify(current, domain.ContactFields{
		Name:  fields.Name,
		Phone: fields.Phone,
		Email: fields.Email,
	}, vip || lead.IsVIP, domain.SignalNone)

	if next == current {
		return nil
	}
	if err := q.store.UpdateStage(ctx, lead.ID, string(next)); err != nil {
		return fmt.Errorf("advance funnel stage: %w", err)
	}
	log.Info("funnel stage advanced", "lead_id", lead.ID, "from", current, "to", next)

	q.bus.Publish(ctx, events.FunnelStageChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		VisitorID: lead.VisitorID,
		OldStage:  string(current),
		NewStage:  string(next),
	})
	lead.Stage = string(next)
	return nil
}

// handleVIP claims the VIP flag, builds the profile summary and fires the
// alert. All steps after the claim are best effort: the claim itself is
// what guarantees the alert fires at most once.
func (q *Qualifier) handleVIP(ctx context.Context, log *logger.Logger, lead *repository.Lead, transcript []extraction.Turn, pageTitle string) {
	won, err := q.store.ClaimVIP(ctx, lead.ID)
	if err != nil {
		log.Error("vip claim failed", "lead_id", lead.ID, "error", err)
		return
	}
	if !won {
		return
	}
	lead.IsVIP = true

	summary, err := q.extractor.Summarize(ctx, transcript)
	if err != nil {
		log.Warn("vip summary unavailable", "lead_id", lead.ID, "error", err)
	} else if err := q.store.SetSummary(ctx, lead.ID, summary); err != nil {
		log.Error("store vip summary failed", "lead_id", lead.ID, "error", err)
	}

	payload := map[string]any{
		"lead_id":    lead.ID.String(),
		"visitor_id": lead.VisitorID.String(),
		"name":       deref(lead.Name),
		"phone":      deref(lead.Phone),
		"page_title": pageTitle,
		"summary":    summary,
	}
	if err := q.dispatcher.Dispatch(ctx, EventVIPDetected, payload); err != nil {
		log.DispatchFailure(EventVIPDetected, err)
	} else if err := q.store.MarkVIPNotified(ctx, lead.ID); err != nil {
		log.Error("mark vip notified failed", "lead_id", lead.ID, "error", err)
	}

	q.bus.Publish(ctx, events.LeadVIPDetected{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		VisitorID: lead.VisitorID,
		Name:      deref(lead.Name),
		Phone:     deref(lead.Phone),
		Context:   pageTitle,
		Summary:   summary,
	})
}

// handleWelcome fires the welcome workflow once the phone is first
// captured, claiming the flag before dispatching.
func (q *Qualifier) handleWelcome(ctx context.Context, log *logger.Logger, lead *repository.Lead, fields domain.LeadFields, pageTitle string) {
	won, err := q.store.MarkWelcomeNotified(ctx, lead.ID)
	if err != nil {
		log.Error("welcome claim failed", "lead_id", lead.ID, "error", err)
		return
	}
	if !won {
		return
	}

	payload := map[string]any{
		"lead_id":    lead.ID.String(),
		"visitor_id": lead.VisitorID.String(),
		"name":       fields.Name,
		"phone":      fields.Phone,
		"page_title": pageTitle,
	}
	if err := q.dispatcher.Dispatch(ctx, EventLeadCreated, payload); err != nil {
		log.DispatchFailure(EventLeadCreated, err)
	}
}

// pageTitle resolves the context label best effort; payloads carry an
// empty label when the conversation had no page or the lookup fails.
func (q *Qualifier) pageTitle(ctx context.Context, pageID *uuid.UUID) string {
	if pageID == nil || q.pages == nil {
		return ""
	}
	page, err := q.pages.GetByID(ctx, *pageID)
	if err != nil {
		return ""
	}
	return page.Title
}

// normalizePhone canonicalizes the extracted phone to E.164 before any
// merge so the immutability rule compares like with like.
func normalizePhone(e *domain.Extraction) {
	if e.Phone == nil {
		return
	}
	normalized := phone.NormalizeE164(*e.Phone)
	if normalized == "" {
		e.Phone = nil
		return
	}
	e.Phone = &normalized
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
