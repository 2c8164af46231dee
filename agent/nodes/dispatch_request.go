package routingnode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

type Dispatcher interface {
	DispatchDetailed(ctx context.Context, request string, decision contractx.Decision) (string, bool, error)
}

func DispatchRequest(ctx context.Context, in *GraphState, dispatcher Dispatcher) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply, routed, err := dispatcher.DispatchDetailed(ctx, in.Text, in.Decision)
	if err != nil {
		return nil, err
	}

	in.Reply = reply
	in.Routed = routed
	return in, nil
}
