package extract

import (
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

type categoryRule struct {
	name     string
	pattern  *regexp.Regexp
	category contractx.Category
}

// categoryRules is evaluated top to bottom against lower-cased text and the
// first match wins. Literal category names come before topical keywords.
var categoryRules = []categoryRule{
	{name: "literal.customer_service", pattern: regexp.MustCompile(`customer\s*service`), category: contractx.CategoryCustomerService},
	{name: "literal.technical_support", pattern: regexp.MustCompile(`technical\s*support`), category: contractx.CategoryTechnicalSupport},
	{name: "literal.general_inquiry", pattern: regexp.MustCompile(`general\s*inquiry`), category: contractx.CategoryGeneralInquiry},
	{name: "literal.escalation", pattern: regexp.MustCompile(`escalation`), category: contractx.CategoryEscalation},
	{name: "keyword.billing", pattern: regexp.MustCompile(`billing|refund|subscription`), category: contractx.CategoryCustomerService},
	{name: "keyword.technical", pattern: regexp.MustCompile(`bug|crash|technical`), category: contractx.CategoryTechnicalSupport},
	{name: "keyword.escalation", pattern: regexp.MustCompile(`angry|complaint|unacceptable`), category: contractx.CategoryEscalation},
}

var (
	percentPattern    = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*(?:%|percent\b)`)
	confidencePattern = regexp.MustCompile(`confiden(?:ce|t)\s*(?::|of|is|at)?\s*(\d*\.?\d+)`)
)

// Sentence boundary is '.', '!', '?' or a newline.
var reasoningPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbecause\b\s*([^.!?\n]+)`),
	regexp.MustCompile(`(?i)\breason:\s*([^.!?\n]+)`),
	regexp.MustCompile(`(?i)\breasoning:\s*([^.!?\n]+)`),
	regexp.MustCompile(`(?i)\bsince\b\s*([^.!?\n]+)`),
}

// recoverNatural rebuilds a decision from prose. It fails only when no
// category rule matches.
func recoverNatural(text string) (contractx.Decision, string, bool) {
	lower := strings.ToLower(text)

	category, rule, ok := matchCategory(lower)
	if !ok {
		return contractx.Decision{}, "", false
	}

	return contractx.Decision{
		Category:   category,
		Confidence: matchConfidence(lower),
		Reasoning:  matchReasoning(text),
	}, rule, true
}

func matchCategory(lower string) (contractx.Category, string, bool) {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(lower) {
			return rule.category, rule.name, true
		}
	}
	return "", "", false
}

func matchConfidence(lower string) float64 {
	for _, m := range percentPattern.FindAllStringSubmatch(lower, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v <= 100 {
			return v / 100
		}
	}
	for _, m := range confidencePattern.FindAllStringSubmatch(lower, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v >= 0 && v <= 1 {
			return v
		}
	}
	return DefaultConfidence
}

func matchReasoning(text string) string {
	for _, pattern := range reasoningPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if reason := strings.Trim(m[1], " \t\"',;"); reason != "" {
			return reason
		}
	}
	return InferredReasoning
}
