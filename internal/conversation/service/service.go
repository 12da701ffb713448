package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"casaviva_backend/internal/conversation/repository"
	"casaviva_backend/internal/events"
	"casaviva_backend/internal/leads/extraction"
	pagestransport "casaviva_backend/internal/pages/transport"
	"casaviva_backend/platform/ai/completion"
	"casaviva_backend/platform/apperr"
	"casaviva_backend/platform/logger"
)

// historyWindow caps how many stored turns are replayed to the model.
const historyWindow = 30

// Completer is the completion-client slice the orchestrator needs.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (string, error)
}

// TurnStore is the persistence slice the orchestrator needs.
type TurnStore interface {
	Append(ctx context.Context, visitorID uuid.UUID, pageID *uuid.UUID, role, content string) (repository.Turn, error)
	ListByVisitor(ctx context.Context, visitorID uuid.UUID) ([]repository.Turn, error)
	CountExchanges(ctx context.Context, visitorID uuid.UUID) (int, error)
}

// PageReader resolves the landing page a chat widget is embedded on.
// Satisfied by the pages service.
type PageReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (pagestransport.PageResponse, error)
}

// EngagementRecorder tracks visitor activity off the chat path. Satisfied
// by the visitors service directly or by the task queue client.
type EngagementRecorder interface {
	RecordEngagement(ctx context.Context, visitorID uuid.UUID, pageID *uuid.UUID, eventType string) error
}

// Service orchestrates the chat loop: it grounds the model in the page's
// property facts, persists both sides of every exchange and emits the
// events the qualification pipeline listens for.
type Service struct {
	repo       TurnStore
	completer  Completer
	pages      PageReader
	engagement EngagementRecorder
	bus        events.Bus
	personas   PersonaConfig
	logger     *logger.Logger
}

func New(
	repo TurnStore,
	completer Completer,
	pages PageReader,
	engagement EngagementRecorder,
	bus events.Bus,
	personas PersonaConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		completer:  completer,
		pages:      pages,
		engagement: engagement,
		bus:        bus,
		personas:   personas,
		logger:     log,
	}
}

// Reply is the orchestrator's answer to one visitor message.
type Reply struct {
	Content   string
	AgentName string
}

// HandleTurn processes one visitor message and returns the concierge
// reply. The visitor turn is persisted before the model is called, so a
// model failure never loses what the visitor said; in that case the
// persona's fallback reply is returned and no exchange is counted.
func (s *Service) HandleTurn(ctx context.Context, visitorID uuid.UUID, pageID *uuid.UUID, message string) (Reply, error) {
	log := s.logger.WithVisitorID(visitorID.String())

	page := s.resolvePage(ctx, log, pageID)
	persona := s.resolvePersona(page)

	if _, err := s.repo.Append(ctx, visitorID, pageID, repository.RoleUser, message); err != nil {
		return Reply{}, apperr.Wrap(apperr.KindInternal, "persist visitor message", err)
	}

	history, err := s.repo.ListByVisitor(ctx, visitorID)
	if err != nil {
		return Reply{}, apperr.Wrap(apperr.KindInternal, "load conversation", err)
	}

	start := time.Now()
	answer, err := s.completer.Complete(ctx, completion.Request{
		System:   buildSystemPrompt(persona, page),
		Messages: toMessages(history),
	})
	s.logger.ModelCall("chat_reply", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		// The visitor turn is already stored; the next successful
		// exchange will include it in the transcript.
		return Reply{Content: persona.FallbackReply, AgentName: persona.Name}, nil
	}

	if _, err := s.repo.Append(ctx, visitorID, pageID, repository.RoleAssistant, answer); err != nil {
		return Reply{}, apperr.Wrap(apperr.KindInternal, "persist reply", err)
	}

	s.afterExchange(ctx, log, visitorID, pageID)

	return Reply{Content: answer, AgentName: persona.Name}, nil
}

// afterExchange emits the post-exchange signals. None of them may fail
// the request: the visitor already has their reply.
func (s *Service) afterExchange(ctx context.Context, log *logger.Logger, visitorID uuid.UUID, pageID *uuid.UUID) {
	count, err := s.repo.CountExchanges(ctx, visitorID)
	if err != nil {
		log.DatabaseError("count exchanges", err)
		return
	}

	if count == 1 {
		s.bus.Publish(ctx, events.ChatOpened{
			BaseEvent: events.NewBaseEvent(),
			VisitorID: visitorID,
			PageID:    pageID,
		})
	}
	s.bus.Publish(ctx, events.ChatMessageSent{
		BaseEvent:     events.NewBaseEvent(),
		VisitorID:     visitorID,
		PageID:        pageID,
		ExchangeCount: count,
	})

	if s.engagement != nil {
		if err := s.engagement.RecordEngagement(ctx, visitorID, pageID, "chat_message"); err != nil {
			log.Warn("engagement record failed", "error", err)
		}
	}
}

// Transcript returns the visitor's conversation in the form the
// qualification pipeline consumes.
func (s *Service) Transcript(ctx context.Context, visitorID uuid.UUID) ([]extraction.Turn, error) {
	history, err := s.repo.ListByVisitor(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	turns := make([]extraction.Turn, 0, len(history))
	for _, t := range history {
		turns = append(turns, extraction.Turn{Role: t.Role, Content: t.Content})
	}
	return turns, nil
}

// History returns the stored turns for the widget to replay on reload.
func (s *Service) History(ctx context.Context, visitorID uuid.UUID) ([]repository.Turn, error) {
	history, err := s.repo.ListByVisitor(ctx, visitorID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load conversation", err)
	}
	return history, nil
}

// resolvePage loads the page context. A stale or unknown page id degrades
// to an uncontextualized chat rather than failing the turn.
func (s *Service) resolvePage(ctx context.Context, log *logger.Logger, pageID *uuid.UUID) *pagestransport.PageResponse {
	if pageID == nil || s.pages == nil {
		return nil
	}
	page, err := s.pages.GetByID(ctx, *pageID)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindNotFound {
			log.Warn("chat references unknown page", "page_id", *pageID)
		} else {
			log.Error("page lookup failed", "page_id", *pageID, "error", err)
		}
		return nil
	}
	return &page
}

func (s *Service) resolvePersona(page *pagestransport.PageResponse) Persona {
	var persona Persona
	if page != nil {
		persona = s.personas.Resolve(page.Persona)
		if page.AgentName != nil && *page.AgentName != "" {
			persona.Name = *page.AgentName
		}
		if page.PersonaPrompt != nil && *page.PersonaPrompt != "" {
			persona.SystemPrompt = *page.PersonaPrompt
		}
	} else {
		persona = s.personas.Resolve("")
	}
	return persona
}

// buildSystemPrompt grounds the persona in the page's property facts.
func buildSystemPrompt(persona Persona, page *pagestransport.PageResponse) string {
	if page == nil {
		return persona.SystemPrompt
	}

	var b strings.Builder
	b.WriteString(persona.SystemPrompt)
	b.WriteString("\n\nFatos sobre o empreendimento desta página:\n")
	fmt.Fprintf(&b, "- Empreendimento: %s\n", page.Title)
	if page.Description != "" {
		fmt.Fprintf(&b, "- Descrição: %s\n", page.Description)
	}
	if page.PriceLabel != "" {
		fmt.Fprintf(&b, "- Faixa de preço: %s\n", page.PriceLabel)
	}
	if len(page.Amenities) > 0 {
		fmt.Fprintf(&b, "- Diferenciais: %s\n", strings.Join(page.Amenities, ", "))
	}
	return b.String()
}

// toMessages converts the tail of the stored history into model messages.
func toMessages(history []repository.Turn) []completion.Message {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages := make([]completion.Message, 0, len(history))
	for _, t := range history {
		messages = append(messages, completion.Message{Role: t.Role, Content: t.Content})
	}
	return messages
}
