package contract

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Category is the closed set of classification outcomes. Adding a member
// requires registering a handler for it or accepting the unroutable reply.
type Category string

const (
	CategoryCustomerService  Category = "CustomerService"
	CategoryTechnicalSupport Category = "TechnicalSupport"
	CategoryGeneralInquiry   Category = "GeneralInquiry"
	CategoryEscalation       Category = "Escalation"
)

var categories = []Category{
	CategoryCustomerService,
	CategoryTechnicalSupport,
	CategoryGeneralInquiry,
	CategoryEscalation,
}

// Categories returns every category in declaration order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches name against the category set ignoring case and
// surrounding whitespace.
func ParseCategory(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, known := range categories {
		if strings.EqualFold(name, string(known)) {
			return known, true
		}
	}
	return "", false
}

// Decision is the structured result of one classification.
type Decision struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

func (d Decision) Validate() error {
	if !d.Category.Valid() {
		return fmt.Errorf("%w: unsupported category=%q", ErrSchemaViolation, d.Category)
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence=%v outside [0, 1]", ErrSchemaViolation, d.Confidence)
	}
	return nil
}

// Outcome is what one classify-then-dispatch pass produced.
type Outcome struct {
	Decision Decision `json:"decision"`
	Source   string   `json:"source"`
	Reply    string   `json:"reply"`
	Routed   bool     `json:"routed"`
}

type JournalEntry struct {
	RequestID string    `json:"request_id"`
	Request   string    `json:"request"`
	Outcome   Outcome   `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}
