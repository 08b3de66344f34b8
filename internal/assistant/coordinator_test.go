package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/catalog"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/embedding"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/llm"
)

func newTestCoordinator(t *testing.T, completer llm.Completer) *Coordinator {
	t.Helper()

	idx, err := catalog.BuildIndex(context.Background(), testCatalog, embedding.NewMockClient(64), catalog.IndexConfig{})
	require.NoError(t, err)

	return NewCoordinator(
		NewClassifier(completer, nil),
		NewRetriever(idx, nil),
		NewGrounder(completer, nil),
		nil,
	)
}

func TestHandleTurnRecommendationScenario(t *testing.T) {
	// First scripted response classifies the intent, second generates the
	// reply naming one candidate.
	mock := &llm.MockCompleter{Responses: []string{
		`{"intent": "product_recommendation", "parameters": {"categories": ["running shoes"], "features": ["waterproof"]}, "context": {}}`,
		"For wet runs I suggest the Trail Runner X at $80.",
	}}
	coordinator := newTestCoordinator(t, mock)

	result := coordinator.HandleTurn(context.Background(), "I want waterproof running shoes", nil, nil)

	assert.Equal(t, IntentProductRecommendation, result.Intent)
	assert.Equal(t, []string{"running shoes"}, result.Parameters.Categories)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Trail Runner X", result.Products[0].Name)
	assert.Contains(t, result.Reply, "Trail Runner X")
}

func TestHandleTurnInjectsPreviousProductsForPriceInquiry(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{
		`{"intent": "price_inquiry", "parameters": {}, "context": {}}`,
		"The Trail Runner X costs 80 and the Road Glide costs 95.",
	}}
	coordinator := newTestCoordinator(t, mock)

	history := []Turn{
		{Role: "user", Content: "show me running shoes"},
		{Role: "assistant", Content: "Trail Runner X and Road Glide."},
	}
	result := coordinator.HandleTurn(context.Background(), "how much are they?", history, []int64{1, 2})

	assert.Equal(t, IntentPriceInquiry, result.Intent)
	assert.Equal(t, []int64{1, 2}, result.Parameters.ProductIDs)
	require.Len(t, result.Products, 2)
	assert.Equal(t, int64(1), result.Products[0].ID)
	assert.Equal(t, int64(2), result.Products[1].ID)
}

func TestHandleTurnExplicitProductNamesSuppressInjection(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{
		`{"intent": "price_inquiry", "parameters": {"product_names": ["Peak Jacket"]}, "context": {}}`,
		"The Peak Jacket costs 150.",
	}}
	coordinator := newTestCoordinator(t, mock)

	result := coordinator.HandleTurn(context.Background(), "price of the Peak Jacket?", nil, []int64{1, 2})

	assert.Empty(t, result.Parameters.ProductIDs, "explicit product names must not be overridden by previous products")
}

func TestHandleTurnOtherIntentReturnsNoProducts(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{
		`{"intent": "other", "parameters": {}, "context": {}}`,
		"Sure! I'd go with the Trail Runner X, a classic.",
	}}
	coordinator := newTestCoordinator(t, mock)

	result := coordinator.HandleTurn(context.Background(), "tell me a joke", nil, []int64{1})

	assert.Equal(t, IntentOther, result.Intent)
	assert.Empty(t, result.Products, "non-recommendation intents never surface products")
}

func TestHandleTurnGenerationFailureYieldsApology(t *testing.T) {
	// Classification succeeds, generation fails.
	mock := &sequencedCompleter{
		responses: []string{`{"intent": "product_recommendation", "parameters": {}, "context": {}}`},
		failAfter: 1,
	}
	coordinator := newTestCoordinator(t, mock)

	result := coordinator.HandleTurn(context.Background(), "recommend shoes", nil, nil)

	assert.Equal(t, GenerationFallbackReply, result.Reply)
	assert.Empty(t, result.Products)
}

func TestHandleTurnPanicYieldsPipelineApology(t *testing.T) {
	coordinator := newTestCoordinator(t, panicCompleter{})

	result := coordinator.HandleTurn(context.Background(), "recommend shoes", nil, nil)

	assert.Equal(t, PipelineFallbackReply, result.Reply)
	assert.Empty(t, result.Products)
}

// sequencedCompleter succeeds for the first failAfter calls, then errors.
type sequencedCompleter struct {
	responses []string
	failAfter int
	calls     int
}

func (s *sequencedCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.calls++
	if s.calls > s.failAfter {
		return "", errors.New("deadline exceeded")
	}
	return s.responses[s.calls-1], nil
}

type panicCompleter struct{}

func (panicCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	panic("completer exploded")
}
