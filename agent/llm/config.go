package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	openrouterx "github.com/tanpawarit/chative-intent-router/pkg/openrouter"
)

// Backend selects how responders reach the model.
type Backend string

const (
	// BackendEino runs every call through an eino prompt->model graph.
	BackendEino Backend = "eino"
	// BackendOpenAI calls the chat completions endpoint with the OpenAI SDK.
	BackendOpenAI Backend = "openai"
)

// Role identifies which collaborator a model serves.
type Role string

const (
	RoleClassifier Role = "classifier"
)

// RoleFor returns the handler role of category c.
func RoleFor(c contractx.Category) Role {
	return Role("handler." + string(c))
}

type Config struct {
	Backend            Backend       `envconfig:"BACKEND" split_words:"true" default:"eino"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ClassifierModel       string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	CustomerServiceModel  string  `envconfig:"CUSTOMER_SERVICE_MODEL" split_words:"true"`
	TechnicalSupportModel string  `envconfig:"TECHNICAL_SUPPORT_MODEL" split_words:"true"`
	GeneralInquiryModel   string  `envconfig:"GENERAL_INQUIRY_MODEL" split_words:"true"`
	EscalationModel       string  `envconfig:"ESCALATION_MODEL" split_words:"true"`
	ClassifierTemperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"0"`
	HandlerTemperature    float32 `envconfig:"HANDLER_TEMPERATURE" split_words:"true" default:"-1"`
	EscalationTemperature float32 `envconfig:"ESCALATION_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	switch c.backend() {
	case BackendEino, BackendOpenAI:
	default:
		return fmt.Errorf("%w: unsupported backend=%q", contractx.ErrValidation, c.Backend)
	}
	return nil
}

func (c Config) backend() Backend {
	b := Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if b == "" {
		return BackendEino
	}
	return b
}

// OpenRouterFor resolves model and temperature overrides for role.
// Negative override temperatures mean "use the default".
func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(name string, t float32) {
		if v := strings.TrimSpace(name); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch role {
	case RoleClassifier:
		override(c.ClassifierModel, c.ClassifierTemperature)
	case RoleFor(contractx.CategoryCustomerService):
		override(c.CustomerServiceModel, c.HandlerTemperature)
	case RoleFor(contractx.CategoryTechnicalSupport):
		override(c.TechnicalSupportModel, c.HandlerTemperature)
	case RoleFor(contractx.CategoryGeneralInquiry):
		override(c.GeneralInquiryModel, c.HandlerTemperature)
	case RoleFor(contractx.CategoryEscalation):
		override(c.EscalationModel, c.HandlerTemperature)
		if c.EscalationTemperature >= 0 {
			temp = c.EscalationTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
