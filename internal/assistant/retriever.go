package assistant

import (
	"context"
	"strings"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/catalog"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

const (
	searchK        = 10
	detailsSearchK = 20
	comparisonCap  = 4
	defaultCap     = 5
)

// ProductSearcher is the slice of the catalog index the retriever depends on.
type ProductSearcher interface {
	SearchByText(ctx context.Context, text string, k int) ([]catalog.Match, error)
	FilterByIDs(ids []int64) []catalog.Product
}

// Retriever turns an utterance and intent descriptor into an ordered
// candidate product list.
type Retriever struct {
	index  ProductSearcher
	logger *observability.Logger
}

// NewRetriever creates a candidate retriever over the given index.
func NewRetriever(index ProductSearcher, logger *observability.Logger) *Retriever {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Retriever{
		index:  index,
		logger: logger.WithComponent("candidate_retriever"),
	}
}

// Retrieve returns candidate products for the turn. Search failures are
// logged and treated as empty results, never propagated.
func (r *Retriever) Retrieve(ctx context.Context, utterance string, desc IntentDescriptor, history []Turn, previousProductIDs []int64) []catalog.Product {
	// Price follow-ups about already-shown products filter the catalog
	// directly instead of running a fresh similarity search.
	if desc.Intent == IntentPriceInquiry {
		ids := desc.Parameters.ProductIDs
		if len(ids) == 0 {
			ids = previousProductIDs
		}
		if len(ids) > 0 {
			if matched := r.index.FilterByIDs(ids); len(matched) > 0 {
				r.logger.Debug().
					Ints64("product_ids", ids).
					Int("matched", len(matched)).
					Msg("price inquiry resolved by id filter")
				return matched
			}
		}
	}

	candidates := r.searchProducts(ctx, utterance, searchK)

	refined := r.refine(ctx, candidates, desc, utterance)

	r.logger.Debug().
		Str("intent", string(desc.Intent)).
		Int("raw", len(candidates)).
		Int("refined", len(refined)).
		Msg("candidates retrieved")

	return refined
}

// refine applies intent-specific retry and truncation passes. Non-empty
// results are already ranked by the index and pass through untouched.
func (r *Retriever) refine(ctx context.Context, candidates []catalog.Product, desc IntentDescriptor, utterance string) []catalog.Product {
	if len(candidates) > 0 {
		return candidates
	}

	if len(desc.Parameters.Categories) > 0 && len(desc.Parameters.Brands) == 0 {
		query := utterance + " " + strings.Join(desc.Parameters.Categories, ", ")
		if refined := r.searchProducts(ctx, query, searchK); len(refined) > 0 {
			return refined
		}
	}

	switch desc.Intent {
	case IntentProductDetails:
		if len(desc.Parameters.ProductNames) > 0 {
			query := utterance + " for products: " + strings.Join(desc.Parameters.ProductNames, ", ")
			if refined := r.searchProducts(ctx, query, detailsSearchK); len(refined) > 0 {
				return refined
			}
		}
	case IntentPriceInquiry:
		return withPrice(candidates)
	case IntentComparison:
		return truncate(candidates, comparisonCap)
	}

	return truncate(candidates, defaultCap)
}

func (r *Retriever) searchProducts(ctx context.Context, query string, k int) []catalog.Product {
	matches, err := r.index.SearchByText(ctx, query, k)
	if err != nil {
		r.logger.Warn().Err(err).Str("query", query).Msg("similarity search failed")
		return nil
	}

	products := make([]catalog.Product, 0, len(matches))
	for _, m := range matches {
		products = append(products, m.Product)
	}
	return products
}

func withPrice(products []catalog.Product) []catalog.Product {
	var priced []catalog.Product
	for _, p := range products {
		if p.HasPrice() {
			priced = append(priced, p)
		}
	}
	return priced
}

func truncate(products []catalog.Product, max int) []catalog.Product {
	if len(products) > max {
		return products[:max]
	}
	return products
}
