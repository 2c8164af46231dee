package routingnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	extractx "github.com/tanpawarit/chative-intent-router/agent/extract"
)

type Classifier interface {
	ClassifyWithSource(ctx context.Context, request string) (contractx.Decision, extractx.Source, error)
}

func ClassifyRequest(ctx context.Context, in *GraphState, classifier Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	decision, source, err := classifier.ClassifyWithSource(ctx, in.Text)
	if err != nil {
		return nil, err
	}

	event := log.Info()
	if source == extractx.SourceNatural || source == extractx.SourceFallback {
		event = log.Warn()
	}
	event.
		Str("request_id", in.RequestID).
		Str("category", decision.Category.String()).
		Float64("confidence", decision.Confidence).
		Str("source", string(source)).
		Msg("request classified")

	in.Decision = decision
	in.Source = source
	return in, nil
}
