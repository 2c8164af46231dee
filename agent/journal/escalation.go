package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

// Publisher delivers a payload to a destination URL.
type Publisher interface {
	Publish(ctx context.Context, destination string, body []byte) (string, error)
}

// EscalationForwarder publishes routed escalation entries so a human lead
// can follow up. Other categories are ignored.
type EscalationForwarder struct {
	publisher   Publisher
	destination string
}

var _ contractx.Journal = (*EscalationForwarder)(nil)

type escalationPayload struct {
	RequestID  string  `json:"request_id"`
	Request    string  `json:"request"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Reply      string  `json:"reply"`
	CreatedAt  string  `json:"created_at"`
}

func NewEscalationForwarder(publisher Publisher, destination string) (*EscalationForwarder, error) {
	if publisher == nil {
		return nil, fmt.Errorf("%w: publisher is required", contractx.ErrValidation)
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, fmt.Errorf("%w: escalation destination is required", contractx.ErrValidation)
	}
	return &EscalationForwarder{publisher: publisher, destination: destination}, nil
}

func (f *EscalationForwarder) Record(ctx context.Context, entry contractx.JournalEntry) error {
	if entry.Outcome.Decision.Category != contractx.CategoryEscalation {
		return nil
	}

	body, err := json.Marshal(escalationPayload{
		RequestID:  entry.RequestID,
		Request:    entry.Request,
		Confidence: entry.Outcome.Decision.Confidence,
		Reasoning:  entry.Outcome.Decision.Reasoning,
		Reply:      entry.Outcome.Reply,
		CreatedAt:  entry.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal escalation payload: %w", err)
	}

	messageID, err := f.publisher.Publish(ctx, f.destination, body)
	if err != nil {
		return fmt.Errorf("%w: publish escalation: %v", contractx.ErrJournal, err)
	}
	log.Info().Str("request_id", entry.RequestID).Str("message_id", messageID).Msg("escalation forwarded")
	return nil
}
