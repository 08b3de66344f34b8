package assistant

import (
	"context"
	"encoding/json"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/llm"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

const intentSystemPrompt = `You are an intent analysis expert for an e-commerce platform.
Your task is to analyze user queries (in any language) and determine their intent, extract relevant parameters,
and understand the context from conversation history.

Possible intents include:
- product_recommendation: User wants product suggestions
- product_details: User asks about specific product details
- price_inquiry: User wants to know about pricing
- category_exploration: User wants to explore a product category
- comparison: User wants to compare products
- other: Other types of queries

Extract parameters like:
- categories: Product categories mentioned (e.g., shoes, laptops, phones)
- features: Specific features requested (e.g., lightweight, waterproof, long battery life)
- price_range: Price range if mentioned (e.g., {"min": 500, "max": 1000})
- product_names: Specific product names mentioned (e.g., Nintendo Switch, PlayStation 5)
- brands: Brand names mentioned (e.g., Nike, Apple, Samsung, Nintendo, Sony)
- quantity: Number of products needed

CRITICAL RULES:
1. ALWAYS extract product categories from user queries and put them in the 'categories' parameter
2. ALWAYS extract specific features from user queries and put them in the 'features' parameter
3. For non-English queries, translate categories and features to English for consistency with product data
4. Distinguish between brands and product names: Brand names refer to manufacturers (e.g., Nintendo, Sony), while product names refer to specific models (e.g., Nintendo Switch, PlayStation 5)
5. If a query mentions "a [brand] product" (e.g., "a Nintendo product"), extract [brand] as a brand parameter, not as a product name

Examples:
- Query: 'recommend some sports shoes' -> categories: ['sports shoes']
- Query: 'I want a thin and light laptop' -> categories: ['laptop'], features: ['lightweight']
- Query: 'I want waterproof running shoes' -> categories: ['running shoes'], features: ['waterproof']
- Query: 'I need a Pad' -> categories: ['tablet']
- Query: 'I want a tablet' -> categories: ['tablet']

Also analyze context from conversation history to understand references and preferences.

Return JSON format with:
{
    "intent": "intent_name",
    "parameters": {"key1": "value1", "key2": "value2"},
    "context": {"reference": "product_id or name if referenced", "preferences": ["preference1", "preference2"]}
}`

// Classifier turns an utterance plus history into an IntentDescriptor using
// one remote generation call.
type Classifier struct {
	completer llm.Completer
	logger    *observability.Logger
}

// NewClassifier creates an intent classifier.
func NewClassifier(completer llm.Completer, logger *observability.Logger) *Classifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Classifier{
		completer: completer,
		logger:    logger.WithComponent("intent_classifier"),
	}
}

// Analyze classifies the utterance. Transport and parse failures never
// propagate; the fixed fallback descriptor is returned instead so the
// pipeline always has a usable result.
func (c *Classifier) Analyze(ctx context.Context, utterance string, history []Turn) IntentDescriptor {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: intentSystemPrompt})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: utterance})

	raw, err := c.completer.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("intent call failed, using fallback descriptor")
		return FallbackDescriptor()
	}

	desc, err := parseDescriptor(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("raw", raw).Msg("intent parse failed, using fallback descriptor")
		return FallbackDescriptor()
	}

	c.logger.Debug().
		Str("intent", string(desc.Intent)).
		Strs("categories", desc.Parameters.Categories).
		Strs("brands", desc.Parameters.Brands).
		Msg("intent classified")

	return desc
}

// parseDescriptor extracts the descriptor from the raw model reply. The
// reply is expected to contain a JSON object, optionally inside a code
// fence. The intent string is normalized onto the closed enumeration.
func parseDescriptor(raw string) (IntentDescriptor, error) {
	content := llm.StripCodeFence(raw)

	var aux struct {
		Intent     string     `json:"intent"`
		Parameters Parameters `json:"parameters"`
		Context    Context    `json:"context"`
	}
	if err := json.Unmarshal([]byte(content), &aux); err != nil {
		return IntentDescriptor{}, err
	}

	return IntentDescriptor{
		Intent:     ParseIntent(aux.Intent),
		Parameters: aux.Parameters,
		Context:    aux.Context,
	}, nil
}
