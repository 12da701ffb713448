package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"casaviva_backend/internal/conversation/repository"
	"casaviva_backend/internal/events"
	pagestransport "casaviva_backend/internal/pages/transport"
	"casaviva_backend/platform/ai/completion"
	"casaviva_backend/platform/logger"
)

type fakeTurnStore struct {
	mu    sync.Mutex
	turns []repository.Turn
}

func (s *fakeTurnStore) Append(_ context.Context, visitorID uuid.UUID, pageID *uuid.UUID, role, content string) (repository.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := repository.Turn{
		ID:        uuid.New(),
		VisitorID: visitorID,
		PageID:    pageID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.turns = append(s.turns, t)
	return t, nil
}

func (s *fakeTurnStore) ListByVisitor(_ context.Context, visitorID uuid.UUID) ([]repository.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Turn, 0)
	for _, t := range s.turns {
		if t.VisitorID == visitorID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeTurnStore) CountExchanges(_ context.Context, visitorID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.turns {
		if t.VisitorID == visitorID && t.Role == repository.RoleAssistant {
			n++
		}
	}
	return n, nil
}

type fakeCompleter struct {
	reply      string
	err        error
	lastSystem string
}

func (f *fakeCompleter) Complete(_ context.Context, req completion.Request) (string, error) {
	f.lastSystem = req.System
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakePageReader struct {
	page pagestransport.PageResponse
	err  error
}

func (f *fakePageReader) GetByID(context.Context, uuid.UUID) (pagestransport.PageResponse, error) {
	return f.page, f.err
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newService(store *fakeTurnStore, completer *fakeCompleter, pages PageReader, bus events.Bus) *Service {
	cfg := PersonaConfig{Default: builtinPersona()}
	return New(store, completer, pages, nil, bus, cfg, logger.New("test"))
}

func TestHandleTurnPersistsBothSides(t *testing.T) {
	store := &fakeTurnStore{}
	completer := &fakeCompleter{reply: "Olá! Como posso ajudar?"}
	bus := &recordingBus{}
	svc := newService(store, completer, nil, bus)
	visitorID := uuid.New()

	reply, err := svc.HandleTurn(context.Background(), visitorID, nil, "Oi, tudo bem?")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if reply.Content != "Olá! Como posso ajudar?" {
		t.Errorf("reply = %q", reply.Content)
	}

	turns, _ := store.ListByVisitor(context.Background(), visitorID)
	if len(turns) != 2 {
		t.Fatalf("persisted %d turns, want 2", len(turns))
	}
	if turns[0].Role != repository.RoleUser || turns[1].Role != repository.RoleAssistant {
		t.Errorf("unexpected roles: %s, %s", turns[0].Role, turns[1].Role)
	}
}

func TestHandleTurnModelFailureReturnsFallback(t *testing.T) {
	store := &fakeTurnStore{}
	completer := &fakeCompleter{err: errors.New("deadline exceeded")}
	bus := &recordingBus{}
	svc := newService(store, completer, nil, bus)
	visitorID := uuid.New()

	reply, err := svc.HandleTurn(context.Background(), visitorID, nil, "Qual o preço?")
	if err != nil {
		t.Fatalf("model failure must not surface as a handler error, got %v", err)
	}
	if reply.Content != defaultFallbackReply {
		t.Errorf("reply = %q, want fallback", reply.Content)
	}

	// The visitor's message survives the failure; no assistant turn is
	// fabricated and no exchange event fires.
	turns, _ := store.ListByVisitor(context.Background(), visitorID)
	if len(turns) != 1 || turns[0].Role != repository.RoleUser {
		t.Fatalf("persisted turns = %+v, want only the visitor turn", turns)
	}
	if len(bus.published) != 0 {
		t.Errorf("events published on failed exchange: %d", len(bus.published))
	}
}

func TestHandleTurnFirstExchangePublishesChatOpened(t *testing.T) {
	store := &fakeTurnStore{}
	completer := &fakeCompleter{reply: "Bem-vindo!"}
	bus := &recordingBus{}
	svc := newService(store, completer, nil, bus)
	visitorID := uuid.New()

	if _, err := svc.HandleTurn(context.Background(), visitorID, nil, "Oi"); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	var opened bool
	var sent *events.ChatMessageSent
	for _, e := range bus.published {
		switch ev := e.(type) {
		case events.ChatOpened:
			opened = true
		case events.ChatMessageSent:
			sent = &ev
		}
	}
	if !opened {
		t.Error("ChatOpened not published on first exchange")
	}
	if sent == nil || sent.ExchangeCount != 1 {
		t.Errorf("ChatMessageSent = %+v, want ExchangeCount 1", sent)
	}

	// Second exchange: no ChatOpened, count advances.
	bus.published = nil
	if _, err := svc.HandleTurn(context.Background(), visitorID, nil, "Tem piscina?"); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	for _, e := range bus.published {
		if _, ok := e.(events.ChatOpened); ok {
			t.Error("ChatOpened re-published on second exchange")
		}
		if ev, ok := e.(events.ChatMessageSent); ok && ev.ExchangeCount != 2 {
			t.Errorf("ExchangeCount = %d, want 2", ev.ExchangeCount)
		}
	}
}

func TestHandleTurnGroundsPromptInPageFacts(t *testing.T) {
	store := &fakeTurnStore{}
	completer := &fakeCompleter{reply: "Sim, temos unidades disponíveis."}
	agent := "Helena"
	pages := &fakePageReader{page: pagestransport.PageResponse{
		ID:         uuid.New(),
		Title:      "Residencial Mar Azul",
		PriceLabel: "a partir de R$ 890 mil",
		Amenities:  []string{"piscina", "academia"},
		AgentName:  &agent,
	}}
	svc := newService(store, completer, pages, &recordingBus{})

	pageID := pages.page.ID
	reply, err := svc.HandleTurn(context.Background(), uuid.New(), &pageID, "Tem piscina?")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if reply.AgentName != "Helena" {
		t.Errorf("agent name = %q, want page override", reply.AgentName)
	}
	for _, want := range []string{"Residencial Mar Azul", "R$ 890 mil", "piscina"} {
		if !strings.Contains(completer.lastSystem, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestHandleTurnUnknownPageDegradesGracefully(t *testing.T) {
	store := &fakeTurnStore{}
	completer := &fakeCompleter{reply: "Claro!"}
	pages := &fakePageReader{err: errors.New("boom")}
	svc := newService(store, completer, pages, &recordingBus{})

	pageID := uuid.New()
	if _, err := svc.HandleTurn(context.Background(), uuid.New(), &pageID, "Oi"); err != nil {
		t.Fatalf("page lookup failure must not fail the turn: %v", err)
	}
	if strings.Contains(completer.lastSystem, "Fatos sobre o empreendimento") {
		t.Error("prompt includes page facts despite failed lookup")
	}
}
