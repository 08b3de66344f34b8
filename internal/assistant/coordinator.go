package assistant

import (
	"context"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/catalog"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

// PipelineFallbackReply is returned when the turn fails unexpectedly.
const PipelineFallbackReply = "Sorry, an error occurred while processing your request. Please try again later."

// Result is the outcome of one conversational turn.
type Result struct {
	Reply      string
	Products   []catalog.Product
	Intent     Intent
	Parameters Parameters
}

// Coordinator composes classification, retrieval, and grounding into one
// request/response cycle. It is the single external entry point of the
// pipeline.
type Coordinator struct {
	classifier *Classifier
	retriever  *Retriever
	grounder   *Grounder
	logger     *observability.Logger
}

// NewCoordinator creates a dialog coordinator.
func NewCoordinator(classifier *Classifier, retriever *Retriever, grounder *Grounder, logger *observability.Logger) *Coordinator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Coordinator{
		classifier: classifier,
		retriever:  retriever,
		grounder:   grounder,
		logger:     logger.WithComponent("dialog_coordinator"),
	}
}

// HandleTurn processes one user turn. It never fails: any unexpected
// internal error is converted into a fixed apology with an empty product
// list at this boundary.
func (c *Coordinator) HandleTurn(ctx context.Context, utterance string, history []Turn, previousProductIDs []int64) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("turn processing panicked")
			result = Result{
				Reply:    PipelineFallbackReply,
				Products: nil,
				Intent:   IntentOther,
			}
		}
	}()

	desc := c.classifier.Analyze(ctx, utterance, history)

	// Price follow-ups without an explicit product reference inherit the
	// products shown in the previous turn.
	if desc.Intent == IntentPriceInquiry && !desc.Parameters.HasProductReference() && len(previousProductIDs) > 0 {
		desc.Parameters.ProductIDs = previousProductIDs
	}

	var candidates []catalog.Product
	if desc.Intent.Recommendable() {
		candidates = c.retriever.Retrieve(ctx, utterance, desc, history, previousProductIDs)
	}

	reply, verified := c.grounder.Generate(ctx, utterance, desc, candidates, history)

	// Non-recommendation intents never surface products, whatever the
	// generator said.
	if !desc.Intent.Recommendable() {
		verified = nil
	}

	c.logger.Info().
		Str("intent", string(desc.Intent)).
		Int("candidates", len(candidates)).
		Int("verified", len(verified)).
		Msg("turn handled")

	return Result{
		Reply:      reply,
		Products:   verified,
		Intent:     desc.Intent,
		Parameters: desc.Parameters,
	}
}
