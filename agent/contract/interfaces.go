package contract

import "context"

// Responder is a text-in, text-out model call. Both the classifier and the
// per-category handlers are Responders.
type Responder interface {
	Respond(ctx context.Context, prompt string) (string, error)
}

// ResponderFunc adapts a plain function to Responder.
type ResponderFunc func(ctx context.Context, prompt string) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// HandlerRegistry maps a category to the responder that serves it. It is
// built once at startup and only read afterwards.
type HandlerRegistry map[Category]Responder

// Lookup returns the handler for c. Nil registries and nil entries count as missing.
func (r HandlerRegistry) Lookup(c Category) (Responder, bool) {
	if r == nil {
		return nil, false
	}
	h, ok := r[c]
	if !ok || h == nil {
		return nil, false
	}
	return h, true
}

// Journal records routing outcomes for later review.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
}
