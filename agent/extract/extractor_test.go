package extract

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

func TestExtractDirectStructured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want contractx.Decision
	}{
		{
			name: "canonical",
			raw:  `{"category":"TechnicalSupport","confidence":0.92,"reasoning":"app crashes on login"}`,
			want: contractx.Decision{Category: contractx.CategoryTechnicalSupport, Confidence: 0.92, Reasoning: "app crashes on login"},
		},
		{
			name: "mixed case field names",
			raw:  `{"Category":"CustomerService","CONFIDENCE":1,"Reasoning":"refund request"}`,
			want: contractx.Decision{Category: contractx.CategoryCustomerService, Confidence: 1, Reasoning: "refund request"},
		},
		{
			name: "comments and trailing comma",
			raw: `{
				// picked from the request wording
				"category": "Escalation",
				"confidence": 0.0, /* lower bound */
				"reasoning": "",
			}`,
			want: contractx.Decision{Category: contractx.CategoryEscalation, Confidence: 0, Reasoning: ""},
		},
		{
			name: "surrounding whitespace",
			raw:  "\n\t  {\"category\":\"GeneralInquiry\",\"confidence\":0.5,\"reasoning\":\"store hours\"}  \n",
			want: contractx.Decision{Category: contractx.CategoryGeneralInquiry, Confidence: 0.5, Reasoning: "store hours"},
		},
		{
			name: "numeric string confidence",
			raw:  `{"category":"GeneralInquiry","confidence":"0.4","reasoning":"hours"}`,
			want: contractx.Decision{Category: contractx.CategoryGeneralInquiry, Confidence: 0.4, Reasoning: "hours"},
		},
		{
			name: "code fence",
			raw:  "```json\n{\"category\":\"Escalation\",\"confidence\":0.8,\"reasoning\":\"threatens to leave\"}\n```",
			want: contractx.Decision{Category: contractx.CategoryEscalation, Confidence: 0.8, Reasoning: "threatens to leave"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, source := ExtractWithSource(tt.raw)
			if source != SourceDirect {
				t.Fatalf("source = %s, want %s", source, SourceDirect)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("decision mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractRoundTripsEveryCategory(t *testing.T) {
	t.Parallel()

	for _, category := range contractx.Categories() {
		for _, confidence := range []float64{0, 0.25, 0.5, 0.99, 1} {
			raw := fmt.Sprintf(`{"category":%q,"confidence":%v,"reasoning":"r-%s"}`, category, confidence, category)
			want := contractx.Decision{Category: category, Confidence: confidence, Reasoning: "r-" + string(category)}
			if diff := cmp.Diff(want, Extract(raw)); diff != "" {
				t.Fatalf("Extract(%s) mismatch (-want +got):\n%s", raw, diff)
			}
		}
	}
}

func TestExtractEmbeddedMatchesBareFragment(t *testing.T) {
	t.Parallel()

	fragment := `{"category":"CustomerService","confidence":0.81,"reasoning":"asks about an invoice"}`
	bare := Extract(fragment)

	wrappers := []struct{ before, after string }{
		{"Sure! Here is my classification:\n", ""},
		{"", "\nLet me know if you need anything else."},
		{"Result -> ", " <- done"},
		{"I think the answer is ", ". Thanks!"},
	}

	for _, w := range wrappers {
		raw := w.before + fragment + w.after
		got, source := ExtractWithSource(raw)
		if source != SourceEmbedded {
			t.Fatalf("source for %q = %s, want %s", raw, source, SourceEmbedded)
		}
		if diff := cmp.Diff(bare, got); diff != "" {
			t.Fatalf("embedded decision differs from bare (-bare +got):\n%s", diff)
		}
	}
}

func TestExtractRejectsOutOfRangeConfidence(t *testing.T) {
	t.Parallel()

	for _, confidence := range []string{"1.2", "-0.1", "42", "1.0000001"} {
		raw := `{"category":"GeneralInquiry","confidence":` + confidence + `,"reasoning":"hours"}`
		got, source := ExtractWithSource(raw)
		if source == SourceDirect || source == SourceEmbedded {
			t.Fatalf("confidence=%s accepted by %s", confidence, source)
		}
		if err := got.Validate(); err != nil {
			t.Fatalf("Extract returned invalid decision: %v", err)
		}
	}
}

func TestExtractRejectsIncompleteRecords(t *testing.T) {
	t.Parallel()

	tests := []string{
		`{"category":"Shipping","confidence":0.9,"reasoning":"unknown"}`,
		`{"category":"GeneralInquiry","confidence":0.9}`,
		`{"category":"GeneralInquiry","confidence":0.9,"reasoning":null}`,
		`{"category":"GeneralInquiry","confidence":"high","reasoning":"x"}`,
		`{"confidence":0.9,"reasoning":"x"}`,
	}

	for _, raw := range tests {
		if _, source := ExtractWithSource(raw); source == SourceDirect || source == SourceEmbedded {
			t.Fatalf("ExtractWithSource(%s) accepted an invalid record via %s", raw, source)
		}
	}
}

func TestExtractEscalationEndToEnd(t *testing.T) {
	t.Parallel()

	got, source := ExtractWithSource(`{"category":"Escalation","confidence":1.2,"reasoning":"angry customer"}`)
	if source != SourceNatural {
		t.Fatalf("source = %s, want %s", source, SourceNatural)
	}
	want := contractx.Decision{
		Category:   contractx.CategoryEscalation,
		Confidence: DefaultConfidence,
		Reasoning:  InferredReasoning,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decision mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTerminalFallback(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "hello there", "{not json at all}", "I cannot decide."} {
		got, source := ExtractWithSource(raw)
		if source != SourceFallback {
			t.Fatalf("source for %q = %s, want %s", raw, source, SourceFallback)
		}
		if got.Category != contractx.CategoryGeneralInquiry || got.Confidence != 0.3 {
			t.Fatalf("fallback for %q = %+v", raw, got)
		}
		if got.Reasoning != FallbackReasoning {
			t.Fatalf("fallback reasoning = %q", got.Reasoning)
		}
	}
}

func TestExtractAlwaysValid(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`{`,
		`}{`,
		`{"category":`,
		`"\`,
		`{"a":"\`,
		`[1,2,3]`,
		`null`,
		`{"category":"Escalation","confidence":NaN,"reasoning":"x"}`,
		"the customer is 250% angry",
		"confidence 7.5 technical",
	}
	for _, raw := range inputs {
		if err := Extract(raw).Validate(); err != nil {
			t.Fatalf("Extract(%q) returned invalid decision: %v", raw, err)
		}
	}
}

func TestExtractConcurrentCallsAreIndependent(t *testing.T) {
	t.Parallel()

	inputs := map[string]contractx.Category{
		`{"category":"CustomerService","confidence":0.9,"reasoning":"a"}`: contractx.CategoryCustomerService,
		"this is a technical support question":                            contractx.CategoryTechnicalSupport,
		"nothing to see":                                                  contractx.CategoryGeneralInquiry,
		"totally unacceptable service":                                    contractx.CategoryEscalation,
	}

	var wg sync.WaitGroup
	for raw, want := range inputs {
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(raw string, want contractx.Category) {
				defer wg.Done()
				if got := Extract(raw).Category; got != want {
					t.Errorf("Extract(%q).Category = %s, want %s", raw, got, want)
				}
			}(raw, want)
		}
	}
	wg.Wait()
}
