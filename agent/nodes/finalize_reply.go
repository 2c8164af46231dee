package routingnode

import (
	"fmt"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	return GraphOutput{
		RequestID: in.RequestID,
		Outcome:   outcomeOf(in),
	}, nil
}
