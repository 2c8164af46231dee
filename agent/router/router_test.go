package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	extractx "github.com/tanpawarit/chative-intent-router/agent/extract"
)

type fakeResponder struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeResponder) Respond(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeResponder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func newTestRouter(t *testing.T, classifier contractx.Responder, handlers contractx.HandlerRegistry) *Router {
	t.Helper()

	r, err := New(classifier, handlers)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestNewRequiresClassifier(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil); !errors.Is(err, ErrClassifierRequired) {
		t.Fatalf("expected ErrClassifierRequired, got %v", err)
	}
}

func TestClassifySendsInstructionAndExtracts(t *testing.T) {
	t.Parallel()

	classifier := &fakeResponder{reply: `Here you go: {"category":"TechnicalSupport","confidence":0.9,"reasoning":"crash report"}`}
	r := newTestRouter(t, classifier, nil)

	got, err := r.Classify(context.Background(), "The app crashes when I upload a photo")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	want := contractx.Decision{Category: contractx.CategoryTechnicalSupport, Confidence: 0.9, Reasoning: "crash report"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decision mismatch (-want +got):\n%s", diff)
	}

	if classifier.calls() != 1 {
		t.Fatalf("classifier calls = %d, want 1", classifier.calls())
	}
	instruction := classifier.prompts[0]
	for _, c := range contractx.Categories() {
		if !strings.Contains(instruction, c.String()) {
			t.Fatalf("instruction does not name %s:\n%s", c, instruction)
		}
	}
	if !strings.Contains(instruction, "The app crashes when I upload a photo") {
		t.Fatalf("instruction does not embed request:\n%s", instruction)
	}
}

func TestClassifyDegradesInsteadOfFailing(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeResponder{reply: "I really can't tell."}, nil)

	got, source, err := r.ClassifyWithSource(context.Background(), "hmm")
	if err != nil {
		t.Fatalf("ClassifyWithSource() error = %v", err)
	}
	if source != extractx.SourceFallback {
		t.Fatalf("source = %s, want %s", source, extractx.SourceFallback)
	}
	if diff := cmp.Diff(extractx.Fallback(), got); diff != "" {
		t.Fatalf("decision mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifySurfacesTransportError(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeResponder{err: errors.New("connection reset")}, nil)

	_, err := r.Classify(context.Background(), "hello")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestDispatchUsesCategoryHandler(t *testing.T) {
	t.Parallel()

	support := &fakeResponder{reply: "Try reinstalling the app."}
	other := &fakeResponder{reply: "wrong handler"}
	r := newTestRouter(t, &fakeResponder{}, contractx.HandlerRegistry{
		contractx.CategoryTechnicalSupport: support,
		contractx.CategoryCustomerService:  other,
	})

	reply, err := r.Dispatch(context.Background(), "my app crashes", contractx.Decision{
		Category:   contractx.CategoryTechnicalSupport,
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if reply != "Try reinstalling the app." {
		t.Fatalf("Dispatch() = %q", reply)
	}
	if support.calls() != 1 || other.calls() != 0 {
		t.Fatalf("handler calls support=%d other=%d", support.calls(), other.calls())
	}
	if !strings.Contains(support.prompts[0], "technical support engineer") || !strings.Contains(support.prompts[0], "my app crashes") {
		t.Fatalf("unexpected handler instruction:\n%s", support.prompts[0])
	}
}

func TestDispatchMissingHandlerIsUnroutable(t *testing.T) {
	t.Parallel()

	other := &fakeResponder{reply: "should not be called"}
	r := newTestRouter(t, &fakeResponder{}, contractx.HandlerRegistry{
		contractx.CategoryCustomerService: other,
		contractx.CategoryGeneralInquiry:  nil,
	})

	for _, c := range []contractx.Category{contractx.CategoryEscalation, contractx.CategoryGeneralInquiry} {
		reply, routed, err := r.DispatchDetailed(context.Background(), "help", contractx.Decision{Category: c})
		if err != nil {
			t.Fatalf("DispatchDetailed(%s) error = %v", c, err)
		}
		if reply != UnroutableMessage || routed {
			t.Fatalf("DispatchDetailed(%s) = %q routed=%v", c, reply, routed)
		}
	}
	if other.calls() != 0 {
		t.Fatalf("unexpected handler calls: %d", other.calls())
	}
}

func TestDispatchEmptyReplyIsReplaced(t *testing.T) {
	t.Parallel()

	for _, empty := range []string{"", "   \n\t"} {
		r := newTestRouter(t, &fakeResponder{}, contractx.HandlerRegistry{
			contractx.CategoryGeneralInquiry: &fakeResponder{reply: empty},
		})

		reply, err := r.Dispatch(context.Background(), "hours?", contractx.Decision{Category: contractx.CategoryGeneralInquiry})
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if reply != UnavailableMessage {
			t.Fatalf("Dispatch() = %q, want %q", reply, UnavailableMessage)
		}
	}
}

func TestDispatchHandlerError(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeResponder{}, contractx.HandlerRegistry{
		contractx.CategoryEscalation: &fakeResponder{err: errors.New("rate limited")},
	})

	_, err := r.Dispatch(context.Background(), "!!!", contractx.Decision{Category: contractx.CategoryEscalation})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestRouteEscalationFallsThroughToKeywords(t *testing.T) {
	t.Parallel()

	escalation := &fakeResponder{reply: "A lead will call you today."}
	r := newTestRouter(t,
		&fakeResponder{reply: `{"category":"Escalation","confidence":1.2,"reasoning":"angry customer"}`},
		contractx.HandlerRegistry{contractx.CategoryEscalation: escalation},
	)

	out, err := r.Route(context.Background(), "This is the third time I'm writing!")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	want := contractx.Outcome{
		Decision: contractx.Decision{
			Category:   contractx.CategoryEscalation,
			Confidence: extractx.DefaultConfidence,
			Reasoning:  extractx.InferredReasoning,
		},
		Source: string(extractx.SourceNatural),
		Reply:  "A lead will call you today.",
		Routed: true,
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("outcome mismatch (-want +got):\n%s", diff)
	}
}

func TestRouteFallbackToUnregisteredGeneralInquiry(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeResponder{reply: "no idea"}, contractx.HandlerRegistry{
		contractx.CategoryCustomerService: &fakeResponder{reply: "x"},
	})

	out, err := r.Route(context.Background(), "what is the meaning of life")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if out.Decision.Category != contractx.CategoryGeneralInquiry || out.Decision.Confidence != extractx.FallbackConfidence {
		t.Fatalf("unexpected decision: %+v", out.Decision)
	}
	if out.Reply != UnroutableMessage || out.Routed {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestRegistryIsCopiedAtConstruction(t *testing.T) {
	t.Parallel()

	handlers := contractx.HandlerRegistry{}
	r := newTestRouter(t, &fakeResponder{}, handlers)
	handlers[contractx.CategoryEscalation] = &fakeResponder{reply: "late"}

	reply, err := r.Dispatch(context.Background(), "x", contractx.Decision{Category: contractx.CategoryEscalation})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if reply != UnroutableMessage {
		t.Fatalf("Dispatch() = %q, want %q", reply, UnroutableMessage)
	}
}

func TestRouteConcurrentRequests(t *testing.T) {
	t.Parallel()

	handler := &fakeResponder{reply: "ok"}
	r := newTestRouter(t,
		contractx.ResponderFunc(func(ctx context.Context, prompt string) (string, error) {
			if strings.Contains(prompt, "I want a refund") {
				return `{"category":"CustomerService","confidence":0.8,"reasoning":"refund"}`, nil
			}
			return "totally unacceptable", nil
		}),
		contractx.HandlerRegistry{
			contractx.CategoryCustomerService: handler,
			contractx.CategoryEscalation:      handler,
		},
	)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		request, want := "I want a refund", contractx.CategoryCustomerService
		if i%2 == 1 {
			request, want = "where is my manager", contractx.CategoryEscalation
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Route(context.Background(), request)
			if err != nil {
				t.Errorf("Route() error = %v", err)
				return
			}
			if out.Decision.Category != want {
				t.Errorf("Route(%q) category = %s, want %s", request, out.Decision.Category, want)
			}
		}()
	}
	wg.Wait()

	if handler.calls() != 16 {
		t.Fatalf("handler calls = %d, want 16", handler.calls())
	}
}
