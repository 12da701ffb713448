package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"casaviva_backend/internal/events"
	"casaviva_backend/internal/leads/domain"
	"casaviva_backend/internal/leads/extraction"
	"casaviva_backend/internal/leads/repository"
	pagestransport "casaviva_backend/internal/pages/transport"
	"casaviva_backend/platform/apperr"
	"casaviva_backend/platform/logger"
)

type fakeStore struct {
	mu    sync.Mutex
	leads map[uuid.UUID]*repository.Lead // keyed by visitor ID

	// afterRead runs once after the next GetByVisitor, outside the lock.
	// Tests use it to interleave a competing pass between a read and the
	// write that follows it.
	afterRead func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: make(map[uuid.UUID]*repository.Lead)}
}

func (s *fakeStore) GetByVisitor(_ context.Context, visitorID uuid.UUID) (repository.Lead, error) {
	s.mu.Lock()
	var lead repository.Lead
	err := repository.ErrNotFound
	if l, ok := s.leads[visitorID]; ok {
		lead, err = *l, nil
	}
	hook := s.afterRead
	s.afterRead = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return lead, err
}

func (s *fakeStore) Create(_ context.Context, visitorID uuid.UUID, fields domain.LeadFields, stage string) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.leads[visitorID]; ok {
		return *l, nil
	}
	l := &repository.Lead{
		ID:        uuid.New(),
		VisitorID: visitorID,
		Stage:     stage,
	}
	applyFields(l, fields)
	s.leads[visitorID] = l
	return *l, nil
}

// ReconcileFields mirrors the repository's row-level merge: phone and
// email keep their first value, the refinable fields take any non-empty
// incoming value, empty never clears.
func (s *fakeStore) ReconcileFields(_ context.Context, id uuid.UUID, fields domain.LeadFields) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.byID(id)
	if l == nil {
		return repository.Lead{}, repository.ErrNotFound
	}
	refine := func(dst **string, v string) {
		if v != "" {
			*dst = &v
		}
	}
	firstWins := func(dst **string, v string) {
		if *dst == nil && v != "" {
			*dst = &v
		}
	}
	refine(&l.Name, fields.Name)
	refine(&l.Budget, fields.Budget)
	refine(&l.Preferences, fields.Preferences)
	firstWins(&l.Phone, fields.Phone)
	firstWins(&l.Email, fields.Email)
	return *l, nil
}

func (s *fakeStore) UpdateStage(_ context.Context, id uuid.UUID, stage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.byID(id)
	if l == nil {
		return repository.ErrNotFound
	}
	l.Stage = stage
	return nil
}

func (s *fakeStore) MarkWelcomeNotified(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.byID(id)
	if l == nil || l.WelcomeNotified {
		return false, nil
	}
	l.WelcomeNotified = true
	return true, nil
}

func (s *fakeStore) ClaimVIP(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.byID(id)
	if l == nil || l.IsVIP {
		return false, nil
	}
	l.IsVIP = true
	return true, nil
}

func (s *fakeStore) MarkVIPNotified(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l := s.byID(id); l != nil {
		l.VIPNotified = true
	}
	return nil
}

func (s *fakeStore) SetSummary(_ context.Context, id uuid.UUID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l := s.byID(id); l != nil {
		l.Summary = &summary
	}
	return nil
}

func (s *fakeStore) byID(id uuid.UUID) *repository.Lead {
	for _, l := range s.leads {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func applyFields(l *repository.Lead, f domain.LeadFields) {
	set := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}
	l.Name = set(f.Name)
	l.Phone = set(f.Phone)
	l.Email = set(f.Email)
	l.Budget = set(f.Budget)
	l.Preferences = set(f.Preferences)
}

type fakeTranscript struct {
	turns []extraction.Turn
}

func (f *fakeTranscript) Transcript(context.Context, uuid.UUID) ([]extraction.Turn, error) {
	return f.turns, nil
}

type fakeExtractor struct {
	next    domain.Extraction
	summary string
}

func (f *fakeExtractor) Extract(context.Context, []extraction.Turn) domain.Extraction {
	return f.next
}

func (f *fakeExtractor) Summarize(context.Context, []extraction.Turn) (string, error) {
	return f.summary, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	calls    []string
	payloads map[string]map[string]any
}

func (f *fakeDispatcher) Dispatch(_ context.Context, event string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, event)
	if f.payloads == nil {
		f.payloads = make(map[string]map[string]any)
	}
	f.payloads[event] = payload
	return nil
}

func (f *fakeDispatcher) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == event {
			n++
		}
	}
	return n
}

type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *fakeBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *fakeBus) PublishSync(_ context.Context, e events.Event) error {
	b.Publish(nil, e)
	return nil
}

func (b *fakeBus) Subscribe(string, events.Handler) {}

type fakePages struct {
	pages map[uuid.UUID]pagestransport.PageResponse
}

func (f *fakePages) GetByID(_ context.Context, id uuid.UUID) (pagestransport.PageResponse, error) {
	if p, ok := f.pages[id]; ok {
		return p, nil
	}
	return pagestransport.PageResponse{}, apperr.NotFound("landing page")
}

func strPtr(s string) *string { return &s }

type qualifierFixture struct {
	qualifier  *Qualifier
	store      *fakeStore
	extractor  *fakeExtractor
	dispatcher *fakeDispatcher
	pages      *fakePages
	bus        *fakeBus
	visitorID  uuid.UUID
}

func newFixture() *qualifierFixture {
	store := newFakeStore()
	extractor := &fakeExtractor{summary: "perfil do visitante"}
	dispatcher := &fakeDispatcher{}
	pages := &fakePages{pages: make(map[uuid.UUID]pagestransport.PageResponse)}
	bus := &fakeBus{}
	transcript := &fakeTranscript{turns: []extraction.Turn{
		{Role: "user", Content: "Olá"},
		{Role: "assistant", Content: "Bem-vindo!"},
	}}
	q := NewQualifier(store, transcript, extractor, dispatcher, pages, bus, logger.New("test"))
	return &qualifierFixture{
		qualifier:  q,
		store:      store,
		extractor:  extractor,
		dispatcher: dispatcher,
		pages:      pages,
		bus:        bus,
		visitorID:  uuid.New(),
	}
}

func (f *qualifierFixture) run(t *testing.T) {
	t.Helper()
	if err := f.qualifier.Run(context.Background(), f.visitorID, nil); err != nil {
		t.Fatalf("qualifier run: %v", err)
	}
}

func (f *qualifierFixture) lead(t *testing.T) repository.Lead {
	t.Helper()
	lead, err := f.store.GetByVisitor(context.Background(), f.visitorID)
	if err != nil {
		t.Fatalf("lead not found after run")
	}
	return lead
}

func TestQualifierNameOnlyCreatesEngagedLeadWithoutNotification(t *testing.T) {
	f := newFixture()
	f.extractor.next = domain.Extraction{Name: strPtr("Marina Costa")}

	f.run(t)

	lead := f.lead(t)
	if lead.Name == nil || *lead.Name != "Marina Costa" {
		t.Fatalf("name not persisted: %+v", lead)
	}
	if lead.Stage != string(domain.StageEngaged) {
		t.Errorf("stage = %s, want %s", lead.Stage, domain.StageEngaged)
	}
	if got := f.dispatcher.count(EventLeadCreated); got != 0 {
		t.Errorf("welcome dispatched %d times without a phone", got)
	}
}

func TestQualifierPhoneCaptureAdvancesStageAndDispatchesOnce(t *testing.T) {
	f := newFixture()
	f.extractor.next = domain.Extraction{Name: strPtr("Marina Costa")}
	f.run(t)

	f.extractor.next = domain.Extraction{Phone: strPtr("21 99876-5432")}
	f.run(t)

	lead := f.lead(t)
	if lead.Phone == nil || *lead.Phone != "+5521998765432" {
		t.Fatalf("phone not normalized to E.164: %v", lead.Phone)
	}
	if lead.Stage != string(domain.StageLead) {
		t.Errorf("stage = %s, want %s", lead.Stage, domain.StageLead)
	}
	if got := f.dispatcher.count(EventLeadCreated); got != 1 {
		t.Fatalf("welcome dispatched %d times, want 1", got)
	}

	// A repeat extraction of the same phone must not re-fire.
	f.run(t)
	if got := f.dispatcher.count(EventLeadCreated); got != 1 {
		t.Errorf("welcome re-dispatched on repeat extraction, count = %d", got)
	}
}

func TestQualifierPhoneImmutableAfterCapture(t *testing.T) {
	f := newFixture()
	f.extractor.next = domain.Extraction{Phone: strPtr("+5521998765432")}
	f.run(t)

	f.extractor.next = domain.Extraction{Phone: strPtr("+5511911112222")}
	f.run(t)

	lead := f.lead(t)
	if lead.Phone == nil || *lead.Phone != "+5521998765432" {
		t.Fatalf("phone changed after capture: %v", lead.Phone)
	}
	if got := f.dispatcher.count(EventLeadCreated); got != 1 {
		t.Errorf("welcome dispatched %d times, want 1", got)
	}
}

func TestQualifierStalePassKeepsConcurrentlyCapturedPhone(t *testing.T) {
	f := newFixture()
	f.extractor.next = domain.Extraction{Name: strPtr("Marina")}
	f.run(t)

	// A second pipeline instance shares the storage but not the
	// singleflight group, like two stateless API replicas.
	otherExtractor := &fakeExtractor{
		next:    domain.Extraction{Phone: strPtr("+5521998765432")},
		summary: "perfil do visitante",
	}
	transcript := &fakeTranscript{turns: []extraction.Turn{
		{Role: "user", Content: "Olá"},
		{Role: "assistant", Content: "Bem-vindo!"},
	}}
	other := NewQualifier(f.store, transcript, otherExtractor, f.dispatcher, f.pages, f.bus, logger.New("test"))

	// The competing instance captures the phone between this instance's
	// read of the lead and its write back.
	f.store.afterRead = func() {
		if err := other.Run(context.Background(), f.visitorID, nil); err != nil {
			t.Errorf("concurrent run: %v", err)
		}
	}
	f.extractor.next = domain.Extraction{Name: strPtr("Marina Costa")}
	f.run(t)

	lead := f.lead(t)
	if lead.Phone == nil || *lead.Phone != "+5521998765432" {
		t.Fatalf("captured phone lost after stale reconciliation: %v", lead.Phone)
	}
	if lead.Name == nil || *lead.Name != "Marina Costa" {
		t.Errorf("name refinement lost: %v", lead.Name)
	}
	if lead.Stage != string(domain.StageLead) {
		t.Errorf("stage = %s, want %s", lead.Stage, domain.StageLead)
	}
	if got := f.dispatcher.count(EventLeadCreated); got != 1 {
		t.Errorf("welcome dispatched %d times, want 1", got)
	}
}

func TestQualifierVIPDetectedOnce(t *testing.T) {
	f := newFixture()
	f.extractor.next = domain.Extraction{
		Name:   strPtr("Ricardo Alves"),
		Budget: strPtr("R$ 5 milhões"),
		VIP:    true,
	}
	f.run(t)

	lead := f.lead(t)
	if !lead.IsVIP {
		t.Fatal("lead not flagged VIP")
	}
	if lead.Stage != string(domain.StageQualified) {
		t.Errorf("stage = %s, want %s", lead.Stage, domain.StageQualified)
	}
	if lead.Summary == nil || *lead.Summary != "perfil do visitante" {
		t.Errorf("summary not stored: %v", lead.Summary)
	}
	if !lead.VIPNotified {
		t.Error("vip notification flag not set")
	}
	if got := f.dispatcher.count(EventVIPDetected); got != 1 {
		t.Fatalf("vip alert dispatched %d times, want 1", got)
	}

	// VIP signal on a later pass must not re-fire the alert.
	f.run(t)
	if got := f.dispatcher.count(EventVIPDetected); got != 1 {
		t.Errorf("vip alert re-dispatched, count = %d", got)
	}
}

func TestQualifierEmptyExtractionIsANoop(t *testing.T) {
	f := newFixture()
	f.extractor.next = domain.Extraction{}

	f.run(t)

	if _, err := f.store.GetByVisitor(context.Background(), f.visitorID); err == nil {
		t.Fatal("lead created from an empty extraction")
	}
	if len(f.dispatcher.calls) != 0 {
		t.Errorf("dispatches fired on empty extraction: %v", f.dispatcher.calls)
	}
}

func TestQualifierStageNeverRegresses(t *testing.T) {
	f := newFixture()
	f.extractor.next = domain.Extraction{Phone: strPtr("+5521998765432"), VIP: true}
	f.run(t)

	if got := f.lead(t).Stage; got != string(domain.StageQualified) {
		t.Fatalf("stage = %s, want %s", got, domain.StageQualified)
	}

	// A later pass with weaker evidence keeps the higher stage.
	f.extractor.next = domain.Extraction{Name: strPtr("Marina")}
	f.run(t)

	if got := f.lead(t).Stage; got != string(domain.StageQualified) {
		t.Errorf("stage regressed to %s", got)
	}
}

func TestQualifierWelcomePayloadCarriesPageTitle(t *testing.T) {
	f := newFixture()
	pageID := uuid.New()
	f.pages.pages[pageID] = pagestransport.PageResponse{ID: pageID, Title: "Residencial Mar Azul"}
	f.extractor.next = domain.Extraction{Name: strPtr("Marina"), Phone: strPtr("+5521998765432")}

	if err := f.qualifier.Run(context.Background(), f.visitorID, &pageID); err != nil {
		t.Fatalf("qualifier run: %v", err)
	}

	payload := f.dispatcher.payloads[EventLeadCreated]
	if payload == nil {
		t.Fatal("welcome event not dispatched")
	}
	if payload["page_title"] != "Residencial Mar Azul" {
		t.Errorf("page_title = %v", payload["page_title"])
	}
	if payload["phone"] != "+5521998765432" {
		t.Errorf("phone = %v", payload["phone"])
	}
}

func TestQualifierPublishesDomainEvents(t *testing.T) {
	f := newFixture()
	f.extractor.next = domain.Extraction{Name: strPtr("Marina"), Phone: strPtr("+5521998765432")}
	f.run(t)

	var sawCreated, sawStage bool
	for _, e := range f.bus.published {
		switch e.(type) {
		case events.LeadCreated:
			sawCreated = true
		case events.FunnelStageChanged:
			sawStage = true
		}
	}
	if !sawCreated {
		t.Error("LeadCreated event not published")
	}
	if !sawStage {
		t.Error("FunnelStageChanged event not published")
	}
}
