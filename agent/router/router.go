// Package router classifies a request and hands it to the handler registered
// for the resulting category.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	extractx "github.com/tanpawarit/chative-intent-router/agent/extract"
	promptx "github.com/tanpawarit/chative-intent-router/agent/prompt"
)

const (
	// UnroutableMessage is returned when no handler is registered for a category.
	UnroutableMessage = "I'm sorry, but I cannot process this request type."
	// UnavailableMessage replaces an empty handler reply.
	UnavailableMessage = "I'm sorry, I'm unable to process your request at this time."
)

var ErrClassifierRequired = errors.New("classifier is required")

// Router is immutable after New and safe for concurrent use.
type Router struct {
	classifier contractx.Responder
	handlers   contractx.HandlerRegistry
	prompts    promptx.Set
}

type Option func(*Router)

// WithPrompts replaces the embedded prompt set.
func WithPrompts(set promptx.Set) Option {
	return func(r *Router) {
		r.prompts = set
	}
}

func New(classifier contractx.Responder, handlers contractx.HandlerRegistry, opts ...Option) (*Router, error) {
	if classifier == nil {
		return nil, ErrClassifierRequired
	}

	r := &Router{
		classifier: classifier,
		handlers:   copyRegistry(handlers),
		prompts:    promptx.Load(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Classify asks the classifier about request and extracts a decision from
// whatever it answers. The only error is the classifier call failing.
func (r *Router) Classify(ctx context.Context, request string) (contractx.Decision, error) {
	decision, _, err := r.classify(ctx, request)
	return decision, err
}

func (r *Router) classify(ctx context.Context, request string) (contractx.Decision, extractx.Source, error) {
	instruction, err := r.prompts.RenderClassifier(ctx, request)
	if err != nil {
		return contractx.Decision{}, "", err
	}

	raw, err := r.classifier.Respond(ctx, instruction)
	if err != nil {
		return contractx.Decision{}, "", fmt.Errorf("%w: classifier: %v", contractx.ErrModelInvoke, err)
	}

	decision, source := extractx.ExtractWithSource(raw)
	return decision, source, nil
}

// Dispatch sends request to the handler registered for decision.Category.
// A missing handler is not an error; it yields UnroutableMessage.
func (r *Router) Dispatch(ctx context.Context, request string, decision contractx.Decision) (string, error) {
	reply, _, err := r.dispatch(ctx, request, decision)
	return reply, err
}

func (r *Router) dispatch(ctx context.Context, request string, decision contractx.Decision) (string, bool, error) {
	handler, ok := r.handlers.Lookup(decision.Category)
	if !ok {
		log.Warn().Str("category", decision.Category.String()).Msg("no handler registered for category")
		return UnroutableMessage, false, nil
	}

	instruction, err := r.prompts.RenderHandler(ctx, decision.Category, request)
	if err != nil {
		return "", false, err
	}

	reply, err := handler.Respond(ctx, instruction)
	if err != nil {
		return "", false, fmt.Errorf("%w: handler=%s: %v", contractx.ErrModelInvoke, decision.Category, err)
	}
	if strings.TrimSpace(reply) == "" {
		return UnavailableMessage, true, nil
	}
	return reply, true, nil
}

// Route is Dispatch(request, Classify(request)).
func (r *Router) Route(ctx context.Context, request string) (contractx.Outcome, error) {
	decision, source, err := r.classify(ctx, request)
	if err != nil {
		return contractx.Outcome{}, err
	}

	reply, routed, err := r.dispatch(ctx, request, decision)
	if err != nil {
		return contractx.Outcome{Decision: decision, Source: string(source)}, err
	}

	return contractx.Outcome{
		Decision: decision,
		Source:   string(source),
		Reply:    reply,
		Routed:   routed,
	}, nil
}

// ClassifyWithSource is Classify plus the extraction strategy that succeeded.
func (r *Router) ClassifyWithSource(ctx context.Context, request string) (contractx.Decision, extractx.Source, error) {
	return r.classify(ctx, request)
}

// DispatchDetailed is Dispatch plus whether a handler was actually called.
func (r *Router) DispatchDetailed(ctx context.Context, request string, decision contractx.Decision) (string, bool, error) {
	return r.dispatch(ctx, request, decision)
}

func copyRegistry(in contractx.HandlerRegistry) contractx.HandlerRegistry {
	out := make(contractx.HandlerRegistry, len(in))
	for c, h := range in {
		out[c] = h
	}
	return out
}
