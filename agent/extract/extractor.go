// Package extract recovers a classification decision from free-form model
// output. Extraction never fails: it degrades through structured parsing,
// prose heuristics and finally a fixed low-confidence decision.
package extract

import (
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

// Source names the strategy that produced a decision.
type Source string

const (
	SourceDirect   Source = "direct"
	SourceEmbedded Source = "embedded"
	SourceNatural  Source = "natural_language"
	SourceFallback Source = "fallback"
)

const (
	// DefaultConfidence is used when prose recovery finds a category but no
	// stated confidence.
	DefaultConfidence = 0.75

	FallbackCategory   = contractx.CategoryGeneralInquiry
	FallbackConfidence = 0.3

	InferredReasoning = "Reasoning inferred from an unstructured classifier response; no explicit rationale was stated."
	FallbackReasoning = "Failed to extract a classification from the classifier response; defaulting to general inquiry."
)

// Extract returns a valid decision for any input. Safe for concurrent use.
func Extract(raw string) contractx.Decision {
	decision, _ := ExtractWithSource(raw)
	return decision
}

// ExtractWithSource is Extract plus the strategy that succeeded.
func ExtractWithSource(raw string) (contractx.Decision, Source) {
	text := strings.TrimSpace(raw)

	decision, err := parseStructured(text)
	if err == nil {
		return decision, SourceDirect
	}
	log.Debug().Err(err).Str("strategy", string(SourceDirect)).Msg("structured parse rejected")

	if fragment, ok := embeddedFragment(text); ok {
		decision, err = parseStructured(fragment)
		if err == nil {
			return decision, SourceEmbedded
		}
		log.Debug().Err(err).Str("strategy", string(SourceEmbedded)).Msg("embedded parse rejected")
	}

	if decision, rule, ok := recoverNatural(text); ok {
		log.Debug().
			Str("strategy", string(SourceNatural)).
			Str("rule", rule).
			Str("category", decision.Category.String()).
			Float64("confidence", decision.Confidence).
			Msg("decision recovered from prose")
		return decision, SourceNatural
	}

	log.Debug().Str("strategy", string(SourceFallback)).Msg("no category recovered, using fallback")
	return Fallback(), SourceFallback
}

// Fallback is the decision returned when nothing else can be recovered.
func Fallback() contractx.Decision {
	return contractx.Decision{
		Category:   FallbackCategory,
		Confidence: FallbackConfidence,
		Reasoning:  FallbackReasoning,
	}
}
