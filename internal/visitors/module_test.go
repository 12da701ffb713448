package visitors

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"casaviva_backend/internal/events"
	"casaviva_backend/platform/logger"
)

type fakeBus struct {
	handlers map[string][]events.Handler
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string][]events.Handler)}
}

func (b *fakeBus) Subscribe(eventName string, handler events.Handler) {
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

func (b *fakeBus) Publish(ctx context.Context, e events.Event) {
	for _, h := range b.handlers[e.EventName()] {
		_ = h.Handle(ctx, e)
	}
}

func (b *fakeBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

type recordedEngagement struct {
	visitorID uuid.UUID
	pageID    *uuid.UUID
	eventType string
}

type fakeSubscriberService struct {
	converted   []uuid.UUID
	engagements []recordedEngagement
}

func (f *fakeSubscriberService) MarkConverted(_ context.Context, visitorID uuid.UUID) error {
	f.converted = append(f.converted, visitorID)
	return nil
}

func (f *fakeSubscriberService) RecordEngagement(_ context.Context, visitorID uuid.UUID, pageID *uuid.UUID, eventType string) error {
	f.engagements = append(f.engagements, recordedEngagement{visitorID, pageID, eventType})
	return nil
}

func TestChatOpenedLandsInFunnelTrail(t *testing.T) {
	bus := newFakeBus()
	svc := &fakeSubscriberService{}
	registerSubscriptions(bus, svc, logger.New("test"))

	visitorID := uuid.New()
	pageID := uuid.New()
	bus.Publish(context.Background(), events.ChatOpened{
		BaseEvent: events.NewBaseEvent(),
		VisitorID: visitorID,
		PageID:    &pageID,
	})

	if len(svc.engagements) != 1 {
		t.Fatalf("engagements recorded = %d, want 1", len(svc.engagements))
	}
	got := svc.engagements[0]
	if got.eventType != "chat_opened" {
		t.Errorf("event type = %q, want chat_opened", got.eventType)
	}
	if got.visitorID != visitorID {
		t.Errorf("visitor id = %s, want %s", got.visitorID, visitorID)
	}
	if got.pageID == nil || *got.pageID != pageID {
		t.Errorf("page id = %v, want %s", got.pageID, pageID)
	}
}

func TestLeadCreatedMarksVisitorConverted(t *testing.T) {
	bus := newFakeBus()
	svc := &fakeSubscriberService{}
	registerSubscriptions(bus, svc, logger.New("test"))

	visitorID := uuid.New()
	bus.Publish(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		VisitorID: visitorID,
	})

	if len(svc.converted) != 1 || svc.converted[0] != visitorID {
		t.Fatalf("converted visitors = %v, want [%s]", svc.converted, visitorID)
	}
	if len(svc.engagements) != 0 {
		t.Errorf("unexpected engagement records: %v", svc.engagements)
	}
}
