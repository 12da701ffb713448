package extraction

import (
	"context"
	"fmt"
	"strings"

	"casaviva_backend/internal/leads/domain"
	"casaviva_backend/platform/ai/completion"
	"casaviva_backend/platform/logger"
)

// Completer is the slice of the completion client the extractor needs.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (string, error)
}

// Turn is one persisted conversation turn, role "user" or "assistant".
type Turn struct {
	Role    string
	Content string
}

// Extractor runs structured extraction and VIP summarization over
// conversation transcripts.
type Extractor struct {
	client Completer
	logger *logger.Logger
}

func NewExtractor(client Completer, log *logger.Logger) *Extractor {
	return &Extractor{client: client, logger: log}
}

var zeroTemp = 0.0

// Extract asks the model for the structured fields present in the
// transcript. Any model or parse failure degrades to an empty extraction:
// the caller skips the pass and a later exchange retries naturally.
func (e *Extractor) Extract(ctx context.Context, transcript []Turn) domain.Extraction {
	if len(transcript) == 0 {
		return domain.Extraction{}
	}

	raw, err := e.client.Complete(ctx, completion.Request{
		System: extractionSystemPrompt,
		Messages: []completion.Message{
			{Role: "user", Content: renderTranscript(transcript)},
		},
		Temperature: &zeroTemp,
		MaxTokens:   512,
	})
	if err != nil {
		e.logger.Warn("lead extraction pass failed", "error", err)
		return domain.Extraction{}
	}

	return parseExtraction(raw)
}

// Summarize produces the three-point profile attached to VIP leads.
func (e *Extractor) Summarize(ctx context.Context, transcript []Turn) (string, error) {
	raw, err := e.client.Complete(ctx, completion.Request{
		System: summarySystemPrompt,
		Messages: []completion.Message{
			{Role: "user", Content: renderTranscript(transcript)},
		},
		MaxTokens: 512,
	})
	if err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// renderTranscript flattens the turns into the labeled plain-text form
// the prompts reference.
func renderTranscript(transcript []Turn) string {
	var b strings.Builder
	for _, t := range transcript {
		label := "Visitante"
		if t.Role == "assistant" {
			label = "Agente"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}
