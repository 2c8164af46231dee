package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

const (
	VarRequest    = "request"
	VarCategories = "categories"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/customer_service.txt
	customerServiceRaw string

	//go:embed template/technical_support.txt
	technicalSupportRaw string

	//go:embed template/general_inquiry.txt
	generalInquiryRaw string

	//go:embed template/escalation.txt
	escalationRaw string

	//go:embed template/generic.txt
	genericRaw string
)

// Set holds loaded prompt content. Templates use FString placeholders
// ({request}, {categories}); literal braces are doubled.
type Set struct {
	Classifier string
	Generic    string
	Handlers   map[contractx.Category]string
}

// Load returns a Set with trimmed prompt strings.
func Load() Set {
	return Set{
		Classifier: strings.TrimSpace(classifierRaw),
		Generic:    strings.TrimSpace(genericRaw),
		Handlers: map[contractx.Category]string{
			contractx.CategoryCustomerService:  strings.TrimSpace(customerServiceRaw),
			contractx.CategoryTechnicalSupport: strings.TrimSpace(technicalSupportRaw),
			contractx.CategoryGeneralInquiry:   strings.TrimSpace(generalInquiryRaw),
			contractx.CategoryEscalation:       strings.TrimSpace(escalationRaw),
		},
	}
}

// ForCategory returns the handler template for c, or the generic one.
func (s Set) ForCategory(c contractx.Category) string {
	if tpl := strings.TrimSpace(s.Handlers[c]); tpl != "" {
		return tpl
	}
	return s.Generic
}

// RenderClassifier fills the classifier template for request.
func (s Set) RenderClassifier(ctx context.Context, request string) (string, error) {
	names := make([]string, 0, len(contractx.Categories()))
	for _, c := range contractx.Categories() {
		names = append(names, "- "+c.String())
	}
	return Render(ctx, s.Classifier, map[string]any{
		VarCategories: strings.Join(names, "\n"),
		VarRequest:    request,
	})
}

// RenderHandler fills the template for category c.
func (s Set) RenderHandler(ctx context.Context, c contractx.Category, request string) (string, error) {
	return Render(ctx, s.ForCategory(c), map[string]any{
		VarRequest: request,
	})
}

// Render formats tpl as a single user message and returns its text.
func Render(ctx context.Context, tpl string, vars map[string]any) (string, error) {
	if strings.TrimSpace(tpl) == "" {
		return "", contractx.ErrPromptMissing
	}

	template := einoprompt.FromMessages(schema.FString, schema.UserMessage(tpl))
	msgs, err := template.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%w: format prompt: %v", contractx.ErrValidation, err)
	}

	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n"), nil
}
