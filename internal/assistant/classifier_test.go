package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/llm"
)

func TestAnalyzeParsesFencedJSON(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{
		"```json\n{\"intent\": \"product_recommendation\", \"parameters\": {\"categories\": [\"running shoes\"], \"features\": [\"waterproof\"]}, \"context\": {}}\n```",
	}}
	classifier := NewClassifier(mock, nil)

	desc := classifier.Analyze(context.Background(), "I want waterproof running shoes", nil)

	assert.Equal(t, IntentProductRecommendation, desc.Intent)
	assert.Equal(t, []string{"running shoes"}, desc.Parameters.Categories)
	assert.Equal(t, []string{"waterproof"}, desc.Parameters.Features)
}

func TestAnalyzeMalformedJSONFallsBack(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{"I think the user wants shoes."}}
	classifier := NewClassifier(mock, nil)

	desc := classifier.Analyze(context.Background(), "shoes please", nil)

	assert.Equal(t, FallbackDescriptor(), desc)
}

func TestAnalyzeTransportErrorFallsBack(t *testing.T) {
	mock := &llm.MockCompleter{Err: errors.New("connection refused")}
	classifier := NewClassifier(mock, nil)

	desc := classifier.Analyze(context.Background(), "shoes please", nil)

	assert.Equal(t, IntentProductRecommendation, desc.Intent)
	assert.Empty(t, desc.Parameters.Categories)
}

func TestAnalyzeUnknownIntentMapsToOther(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{
		`{"intent": "weather_report", "parameters": {}, "context": {}}`,
	}}
	classifier := NewClassifier(mock, nil)

	desc := classifier.Analyze(context.Background(), "what is the weather", nil)

	assert.Equal(t, IntentOther, desc.Intent)
}

func TestAnalyzeIncludesHistoryInRequest(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{
		`{"intent": "price_inquiry", "parameters": {}, "context": {}}`,
	}}
	classifier := NewClassifier(mock, nil)

	history := []Turn{
		{Role: "user", Content: "show me running shoes"},
		{Role: "assistant", Content: "Here is the Trail Runner X."},
	}
	classifier.Analyze(context.Background(), "how much is it?", history)

	require.Len(t, mock.Requests, 1)
	messages := mock.Requests[0].Messages
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "show me running shoes", messages[1].Content)
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, "how much is it?", messages[3].Content)
}

func TestParseDescriptorLenientSlots(t *testing.T) {
	raw := `{
		"intent": "product_recommendation",
		"parameters": {
			"categories": "laptop",
			"brands": ["Apple", 3],
			"quantity": "2",
			"product_ids": ["7", 9],
			"price_range": {"min": "500", "max": 1000}
		},
		"context": {"reference": 12}
	}`

	desc, err := parseDescriptor(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"laptop"}, desc.Parameters.Categories)
	assert.Equal(t, []string{"Apple", "3"}, desc.Parameters.Brands)
	assert.Equal(t, 2, desc.Parameters.Quantity)
	assert.Equal(t, []int64{7, 9}, desc.Parameters.ProductIDs)
	require.NotNil(t, desc.Parameters.PriceRange)
	require.NotNil(t, desc.Parameters.PriceRange.Min)
	require.NotNil(t, desc.Parameters.PriceRange.Max)
	assert.Equal(t, 500.0, *desc.Parameters.PriceRange.Min)
	assert.Equal(t, 1000.0, *desc.Parameters.PriceRange.Max)
	assert.Equal(t, "12", desc.Context.Reference)
}

func TestParseDescriptorMissingIntentIsOther(t *testing.T) {
	desc, err := parseDescriptor(`{"parameters": {}, "context": {}}`)
	require.NoError(t, err)
	assert.Equal(t, IntentOther, desc.Intent)
}

func TestTrimHistory(t *testing.T) {
	history := []Turn{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
		{Role: "assistant", Content: "four"},
	}

	trimmed := TrimHistory(history, 2)
	require.Len(t, trimmed, 2)
	assert.Equal(t, "three", trimmed[0].Content)
	assert.Equal(t, "four", trimmed[1].Content)

	assert.Len(t, TrimHistory(history, 10), 4)
	assert.Len(t, TrimHistory(nil, 2), 0)
}
