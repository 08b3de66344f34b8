// Package assistant implements the conversational shopping pipeline: intent
// classification, candidate retrieval, grounded response generation, and the
// coordinator that ties one turn together.
package assistant

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Intent is the closed-set classification of a single user turn.
type Intent string

const (
	IntentProductRecommendation Intent = "product_recommendation"
	IntentProductDetails        Intent = "product_details"
	IntentPriceInquiry          Intent = "price_inquiry"
	IntentCategoryExploration   Intent = "category_exploration"
	IntentComparison            Intent = "comparison"
	IntentOther                 Intent = "other"
)

// ParseIntent maps a raw intent string onto the closed enumeration. Unknown
// values map to IntentOther so an off-script classifier cannot trigger
// retrieval.
func ParseIntent(s string) Intent {
	switch Intent(strings.TrimSpace(strings.ToLower(s))) {
	case IntentProductRecommendation:
		return IntentProductRecommendation
	case IntentProductDetails:
		return IntentProductDetails
	case IntentPriceInquiry:
		return IntentPriceInquiry
	case IntentCategoryExploration:
		return IntentCategoryExploration
	case IntentComparison:
		return IntentComparison
	default:
		return IntentOther
	}
}

// Recommendable reports whether the intent triggers retrieval and product
// verification.
func (i Intent) Recommendable() bool {
	switch i {
	case IntentProductRecommendation, IntentCategoryExploration, IntentComparison, IntentPriceInquiry:
		return true
	default:
		return false
	}
}

// PriceRange is an optional price constraint extracted from the utterance.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Parameters holds the named slots extracted by the classifier. All fields
// are optional; models return slots as strings, numbers, or arrays, so
// decoding is deliberately lenient.
type Parameters struct {
	Categories   []string    `json:"categories,omitempty"`
	Features     []string    `json:"features,omitempty"`
	PriceRange   *PriceRange `json:"price_range,omitempty"`
	ProductNames []string    `json:"product_names,omitempty"`
	Brands       []string    `json:"brands,omitempty"`
	Quantity     int         `json:"quantity,omitempty"`
	ProductIDs   []int64     `json:"product_ids,omitempty"`
}

// HasProductReference reports whether the parameters name explicit products,
// by name or by id.
func (p Parameters) HasProductReference() bool {
	return len(p.ProductNames) > 0 || len(p.ProductIDs) > 0
}

// UnmarshalJSON decodes parameters leniently: scalar slots may arrive as
// bare strings, numbers may arrive quoted, and unknown keys are ignored.
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Categories = flexStrings(raw["categories"])
	p.Features = flexStrings(raw["features"])
	p.ProductNames = flexStrings(raw["product_names"])
	p.Brands = flexStrings(raw["brands"])
	p.Quantity = flexInt(raw["quantity"])
	p.ProductIDs = flexIDs(raw["product_ids"])

	if msg, ok := raw["price_range"]; ok {
		var pr struct {
			Min json.RawMessage `json:"min"`
			Max json.RawMessage `json:"max"`
		}
		if err := json.Unmarshal(msg, &pr); err == nil {
			min := flexFloat(pr.Min)
			max := flexFloat(pr.Max)
			if min != nil || max != nil {
				p.PriceRange = &PriceRange{Min: min, Max: max}
			}
		}
	}

	return nil
}

// Context carries cross-turn references extracted by the classifier.
type Context struct {
	Reference   string   `json:"reference,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
}

// UnmarshalJSON tolerates a numeric reference and scalar preferences.
func (c *Context) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if msg, ok := raw["reference"]; ok {
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			c.Reference = s
		} else {
			var n json.Number
			if err := json.Unmarshal(msg, &n); err == nil {
				c.Reference = n.String()
			}
		}
	}

	c.Preferences = flexStrings(raw["preferences"])
	return nil
}

// IntentDescriptor is the structured result of one classification call.
type IntentDescriptor struct {
	Intent     Intent     `json:"intent"`
	Parameters Parameters `json:"parameters"`
	Context    Context    `json:"context"`
}

// FallbackDescriptor is returned whenever classification fails, so the
// pipeline always has a usable descriptor.
func FallbackDescriptor() IntentDescriptor {
	return IntentDescriptor{
		Intent:     IntentProductRecommendation,
		Parameters: Parameters{},
		Context:    Context{},
	}
}

// Turn is a single conversation message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TrimHistory bounds history to the most recent max turns, dropping the
// oldest first.
func TrimHistory(history []Turn, max int) []Turn {
	if max <= 0 || len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}

func flexStrings(msg json.RawMessage) []string {
	if len(msg) == 0 {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(msg, &list); err == nil {
		var out []string
		for _, item := range list {
			if s := flexString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	if s := flexString(msg); s != "" {
		return []string{s}
	}
	return nil
}

func flexString(msg json.RawMessage) string {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(msg, &n); err == nil {
		return n.String()
	}
	return ""
}

func flexInt(msg json.RawMessage) int {
	if len(msg) == 0 {
		return 0
	}

	var n int
	if err := json.Unmarshal(msg, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}

func flexFloat(msg json.RawMessage) *float64 {
	if len(msg) == 0 {
		return nil
	}

	var f float64
	if err := json.Unmarshal(msg, &f); err == nil {
		return &f
	}

	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &v
		}
	}
	return nil
}

func flexIDs(msg json.RawMessage) []int64 {
	if len(msg) == 0 {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(msg, &list); err != nil {
		list = []json.RawMessage{msg}
	}

	var out []int64
	for _, item := range list {
		var id int64
		if err := json.Unmarshal(item, &id); err == nil {
			out = append(out, id)
			continue
		}

		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				out = append(out, v)
			}
		}
	}
	return out
}
