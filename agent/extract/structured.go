package extract

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	"github.com/tidwall/jsonc"
)

const (
	fieldCategory   = "category"
	fieldConfidence = "confidence"
	fieldReasoning  = "reasoning"
)

var recordParser = schema.NewMessageJSONParser[map[string]any](&schema.MessageJSONParseConfig{
	ParseFrom: schema.MessageParseFromContent,
})

// parseStructured decodes text as a single decision object and validates it.
func parseStructured(text string) (decision contractx.Decision, err error) {
	// The input is arbitrary model output; a parser panic is just another rejection.
	defer func() {
		if r := recover(); r != nil {
			decision = contractx.Decision{}
			err = fmt.Errorf("%w: parser panic: %v", contractx.ErrSchemaViolation, r)
		}
	}()

	text = stripCodeFence(strings.TrimSpace(text))
	if text == "" {
		return contractx.Decision{}, fmt.Errorf("%w: empty payload", contractx.ErrSchemaViolation)
	}

	fields, err := recordParser.Parse(context.Background(), &schema.Message{
		Role:    schema.Assistant,
		Content: string(jsonc.ToJSON([]byte(text))),
	})
	if err != nil {
		return contractx.Decision{}, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}
	if fields == nil {
		return contractx.Decision{}, fmt.Errorf("%w: payload is not an object", contractx.ErrSchemaViolation)
	}

	decision, err = decodeRecord(fields)
	if err != nil {
		return contractx.Decision{}, err
	}
	if err := decision.Validate(); err != nil {
		return contractx.Decision{}, err
	}
	return decision, nil
}

func decodeRecord(fields map[string]any) (contractx.Decision, error) {
	rawCategory, ok := lookupField(fields, fieldCategory)
	if !ok {
		return contractx.Decision{}, fmt.Errorf("%w: category is missing", contractx.ErrSchemaViolation)
	}
	name, ok := rawCategory.(string)
	if !ok {
		return contractx.Decision{}, fmt.Errorf("%w: category must be a string", contractx.ErrSchemaViolation)
	}
	category, ok := contractx.ParseCategory(name)
	if !ok {
		return contractx.Decision{}, fmt.Errorf("%w: unsupported category=%q", contractx.ErrSchemaViolation, name)
	}

	rawConfidence, ok := lookupField(fields, fieldConfidence)
	if !ok {
		return contractx.Decision{}, fmt.Errorf("%w: confidence is missing", contractx.ErrSchemaViolation)
	}
	confidence, err := toFloat(rawConfidence)
	if err != nil {
		return contractx.Decision{}, err
	}

	rawReasoning, ok := lookupField(fields, fieldReasoning)
	if !ok {
		return contractx.Decision{}, fmt.Errorf("%w: reasoning is missing", contractx.ErrSchemaViolation)
	}
	reasoning, ok := rawReasoning.(string)
	if !ok {
		return contractx.Decision{}, fmt.Errorf("%w: reasoning must be a string", contractx.ErrSchemaViolation)
	}

	return contractx.Decision{
		Category:   category,
		Confidence: confidence,
		Reasoning:  reasoning,
	}, nil
}

// lookupField prefers the exact key, then the first case-insensitive match in
// sorted key order so duplicate spellings resolve the same way every time.
// A null value counts as absent.
func lookupField(fields map[string]any, name string) (any, bool) {
	if v, ok := fields[name]; ok {
		return v, v != nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			v := fields[k]
			return v, v != nil
		}
	}
	return nil, false
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: confidence=%q is not a number", contractx.ErrSchemaViolation, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: confidence has type %T", contractx.ErrSchemaViolation, v)
	}
}

// embeddedFragment returns the text between the first '{' and the last '}'.
func embeddedFragment(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// stripCodeFence removes a surrounding ```json ... ``` block.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	firstNewline := strings.Index(text, "\n")
	lastFence := strings.LastIndex(text, "```")
	if firstNewline < 0 || lastFence <= firstNewline {
		return text
	}
	return strings.TrimSpace(text[firstNewline+1 : lastFence])
}
