package routingnode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	extractx "github.com/tanpawarit/chative-intent-router/agent/extract"
)

var ErrInvalidRequest = errors.New("request text is empty")

type GraphInput struct {
	RequestID string
	Text      string
}

type GraphOutput struct {
	RequestID string
	Outcome   contractx.Outcome
}

type GraphState struct {
	RequestID string
	Text      string
	Now       time.Time

	Decision contractx.Decision
	Source   extractx.Source

	Reply  string
	Routed bool
}

// ValidateRequest trims the request and assigns an id when the caller gave none.
func ValidateRequest(in GraphInput, nowFn func() time.Time, newID func() string) (*GraphState, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidRequest
	}

	requestID := strings.TrimSpace(in.RequestID)
	if requestID == "" {
		requestID = newID()
	}

	return &GraphState{
		RequestID: requestID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
