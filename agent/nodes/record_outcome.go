package routingnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

// RecordOutcome writes the outcome to the journal. Journal failures are
// logged and never fail the request.
func RecordOutcome(ctx context.Context, in *GraphState, journal contractx.Journal) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if err := journal.Record(ctx, contractx.JournalEntry{
		RequestID: in.RequestID,
		Request:   in.Text,
		Outcome:   outcomeOf(in),
		CreatedAt: in.Now,
	}); err != nil {
		log.Error().Err(err).Str("request_id", in.RequestID).Msg("journal write failed")
	}
	return in, nil
}

func outcomeOf(in *GraphState) contractx.Outcome {
	return contractx.Outcome{
		Decision: in.Decision,
		Source:   string(in.Source),
		Reply:    in.Reply,
		Routed:   in.Routed,
	}
}
