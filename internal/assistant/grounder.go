package assistant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/catalog"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/llm"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

// GenerationFallbackReply is returned when the generation call fails.
const GenerationFallbackReply = "Sorry, I couldn't generate a proper response. Please try again"

// candidateLimit caps the number of candidates shown to the generator.
const candidateLimit = 10

const groundingSystemPrompt = `You are a professional assistant for an e-commerce platform.
The products provided in the recommendations list are sourced exclusively from our product catalog.
Your task is to provide helpful and friendly responses based on user intent, these provided recommendations, and conversation history.

==== ABSOLUTE, NON-NEGOTIABLE RULES (MUST NOT BE VIOLATED) ====
1. YOU MUST ONLY RECOMMEND OR MENTION PRODUCTS THAT ARE EXPLICITLY INCLUDED IN THE PROVIDED RECOMMENDED PRODUCTS LIST. THESE ARE THE ONLY PRODUCTS AVAILABLE IN OUR CATALOG.
2. YOU MUST NEVER INVENT, HALLUCINATE, OR MENTION ANY PRODUCTS THAT ARE NOT IN THE PROVIDED RECOMMENDATIONS LIST.
3. YOU MUST NEVER REFER TO PRODUCTS NOT EXPLICITLY PROVIDED IN THE RECOMMENDATIONS, EVEN IF THEY SEEM RELEVANT.
4. IF NO RECOMMENDED PRODUCTS ARE PROVIDED OR THE LIST IS EMPTY, YOU MUST NOT MENTION ANY PRODUCTS AT ALL.
5. YOU MUST ONLY USE THE EXACT PRODUCT NAMES, PRICES, CATEGORIES, AND DESCRIPTIONS PROVIDED IN THE RECOMMENDED PRODUCTS LIST.
6. YOU MUST NOT CREATE, ADD, OR IMPLY ANY PRODUCTS THAT ARE NOT EXPLICITLY PROVIDED IN THE RECOMMENDED PRODUCTS LIST.
7. IF THE USER ASKS FOR PRODUCTS NOT AVAILABLE IN OUR CATALOG (e.g., groceries, food items), POLITELY EXPLAIN THAT WE DON'T CARRY THOSE PRODUCTS.
==== END ABSOLUTE RULES ====

Guidelines:
1. For product_recommendation intent: Present ALL recommendations clearly with key details (name, price, category, description) EXACTLY as provided. YOU MUST INCLUDE EVERY PRODUCT FROM THE RECOMMENDED PRODUCTS LIST IN YOUR REPLY.
2. For product_details intent: Focus exclusively on specific product information ONLY from the provided recommendations list.
3. For price_inquiry: Emphasize pricing information ONLY from the provided recommendations list.
4. For category_exploration: Provide an overview of the category using examples EXCLUSIVELY from the provided recommendations list.
5. For comparison: Highlight key differences between products EXCLUSIVELY from the provided recommendations list.
6. For other intents: ONLY provide the requested information. DO NOT mention anything about products, shopping, or recommendations at all.
7. If the user asks for products not in our catalog, politely explain that we don't carry those products.`

// Grounder generates the user-facing reply, constrained to the provided
// candidates, and verifies which candidates the generated text actually
// names.
type Grounder struct {
	completer llm.Completer
	logger    *observability.Logger
}

// NewGrounder creates a response grounder.
func NewGrounder(completer llm.Completer, logger *observability.Logger) *Grounder {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Grounder{
		completer: completer,
		logger:    logger.WithComponent("response_grounder"),
	}
}

// Generate produces the reply text and the verified product list. The
// generation policy is a soft constraint; the case-insensitive name
// substring check on the reply is the hard one. Transport failures yield
// the fixed fallback reply and an empty verified list.
func (g *Grounder) Generate(ctx context.Context, utterance string, desc IntentDescriptor, candidates []catalog.Product, history []Turn) (string, []catalog.Product) {
	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages, llm.Message{Role: "system", Content: groundingSystemPrompt})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "system", Content: buildIntentBlock(desc, candidates)})
	messages = append(messages, llm.Message{Role: "user", Content: utterance})

	reply, err := g.completer.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("generation call failed, using fallback reply")
		return GenerationFallbackReply, nil
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		g.logger.Warn().Msg("generation returned empty content, using fallback reply")
		return GenerationFallbackReply, nil
	}

	verified := VerifyProducts(reply, candidates)

	g.logger.Debug().
		Int("candidates", len(candidates)).
		Int("verified", len(verified)).
		Msg("reply generated")

	return reply, verified
}

// VerifyProducts returns the candidates whose names appear, case
// insensitively, as substrings of the reply. Paraphrased names are dropped
// as false negatives; that is the accepted cost of the structural guarantee
// that no unnamed product reaches the user.
func VerifyProducts(reply string, candidates []catalog.Product) []catalog.Product {
	replyLower := strings.ToLower(reply)

	var verified []catalog.Product
	for _, p := range candidates {
		name := strings.ToLower(p.Name)
		if name != "" && strings.Contains(replyLower, name) {
			verified = append(verified, p)
		}
	}
	return verified
}

// buildIntentBlock renders the machine-readable section appended to the
// policy prompt: the intent, its parameters, and the candidate listing or
// the applicable directive.
func buildIntentBlock(desc IntentDescriptor, candidates []catalog.Product) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User intent: %s\n", desc.Intent)
	fmt.Fprintf(&sb, "Intent parameters: %s\n", formatParameters(desc.Parameters))

	switch {
	case len(candidates) > 0 && desc.Intent.Recommendable():
		sb.WriteString("Recommended products:\n")
		sb.WriteString(formatCandidates(candidates))
	case desc.Intent.Recommendable():
		sb.WriteString("NO RECOMMENDED PRODUCTS FOUND. YOU MUST NOT MENTION ANY PRODUCTS AT ALL.")
	case desc.Intent == IntentOther:
		sb.WriteString("THIS IS A NON-PRODUCT QUERY. ONLY PROVIDE THE REQUESTED INFORMATION. DO NOT MENTION ANY PRODUCTS, SHOPPING, OR RECOMMENDATIONS.")
	}

	return sb.String()
}

func formatCandidates(candidates []catalog.Product) string {
	if len(candidates) > candidateLimit {
		candidates = candidates[:candidateLimit]
	}

	lines := make([]string, 0, len(candidates))
	for i, p := range candidates {
		lines = append(lines, fmt.Sprintf("%d. ID: %d, Name: %s, Price: %s, Category: %s, Description: %s",
			i+1, p.ID, p.Name, formatPrice(p.Price), p.Category, p.Description))
	}
	return strings.Join(lines, "\n")
}

func formatPrice(price *float64) string {
	if price == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*price, 'f', -1, 64)
}

func formatParameters(params Parameters) string {
	var parts []string

	if len(params.Categories) > 0 {
		parts = append(parts, "categories: "+strings.Join(params.Categories, ", "))
	}
	if len(params.Features) > 0 {
		parts = append(parts, "features: "+strings.Join(params.Features, ", "))
	}
	if params.PriceRange != nil {
		var rangeParts []string
		if params.PriceRange.Min != nil {
			rangeParts = append(rangeParts, "min "+strconv.FormatFloat(*params.PriceRange.Min, 'f', -1, 64))
		}
		if params.PriceRange.Max != nil {
			rangeParts = append(rangeParts, "max "+strconv.FormatFloat(*params.PriceRange.Max, 'f', -1, 64))
		}
		parts = append(parts, "price_range: "+strings.Join(rangeParts, ", "))
	}
	if len(params.ProductNames) > 0 {
		parts = append(parts, "product_names: "+strings.Join(params.ProductNames, ", "))
	}
	if len(params.Brands) > 0 {
		parts = append(parts, "brands: "+strings.Join(params.Brands, ", "))
	}
	if params.Quantity > 0 {
		parts = append(parts, "quantity: "+strconv.Itoa(params.Quantity))
	}
	if len(params.ProductIDs) > 0 {
		ids := make([]string, 0, len(params.ProductIDs))
		for _, id := range params.ProductIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		parts = append(parts, "product_ids: "+strings.Join(ids, ", "))
	}

	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "; ")
}
