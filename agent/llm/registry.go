package llm

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	openrouterx "github.com/tanpawarit/chative-intent-router/pkg/openrouter"
)

// NewResponder builds the model collaborator for role on the configured backend.
func NewResponder(ctx context.Context, cfg Config, role Role) (contractx.Responder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	modelCfg := cfg.OpenRouterFor(role)

	switch cfg.backend() {
	case BackendOpenAI:
		client := openrouterx.NewClient(modelCfg)
		if client == nil {
			return nil, fmt.Errorf("%w: create openai client for role=%s", contractx.ErrModelInvoke, role)
		}
		return NewCompletionResponder(client, modelCfg.Model, modelCfg.Temperature, cfg.MaxCompletionToken)
	default:
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create model for role=%s: %v", contractx.ErrModelInvoke, role, err)
		}
		return NewChatResponder(ctx, chatModel, "llm."+string(role))
	}
}

// NewClassifier builds the classifier collaborator.
func NewClassifier(ctx context.Context, cfg Config) (contractx.Responder, error) {
	return NewResponder(ctx, cfg, RoleClassifier)
}

// NewHandlerRegistry builds one handler per category. Categories listed in
// skip get no entry, so requests classified into them are unroutable.
func NewHandlerRegistry(ctx context.Context, cfg Config, skip ...contractx.Category) (contractx.HandlerRegistry, error) {
	skipped := make(map[contractx.Category]struct{}, len(skip))
	for _, c := range skip {
		skipped[c] = struct{}{}
	}

	registry := make(contractx.HandlerRegistry, len(contractx.Categories()))
	for _, c := range contractx.Categories() {
		if _, ok := skipped[c]; ok {
			continue
		}
		handler, err := NewResponder(ctx, cfg, RoleFor(c))
		if err != nil {
			return nil, fmt.Errorf("build handler for %s: %w", c, err)
		}
		registry[c] = handler
	}
	return registry, nil
}
