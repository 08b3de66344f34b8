package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/embedding"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

// ErrNotFound indicates a product id absent from the catalog. Distinct from
// an empty search result.
var ErrNotFound = errors.New("product not found")

// Match pairs a product with its search distance and derived score.
type Match struct {
	Product  Product
	Distance float64
	Score    float64 // 1 / (1 + distance), higher is closer
}

// Index holds the catalog and an exact nearest-neighbor index over
// per-product embeddings. Built once, read-only afterwards; safe for
// concurrent queries.
type Index struct {
	products []Product
	vectors  [][]float32
	byID     map[int64]int
	embedder embedding.Embedder
	logger   *observability.Logger
}

// IndexConfig holds index build settings.
type IndexConfig struct {
	BatchSize int
	Logger    *observability.Logger
}

// BuildIndex embeds every product and constructs the similarity index.
// Vector position i corresponds to catalog position i for the process
// lifetime.
func BuildIndex(ctx context.Context, products []Product, embedder embedding.Embedder, cfg IndexConfig) (*Index, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("cannot build index over empty catalog")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	logger = logger.WithComponent("catalog_index")

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	texts := make([]string, len(products))
	byID := make(map[int64]int, len(products))
	for i, p := range products {
		texts[i] = p.EmbeddingText()
		byID[p.ID] = i
	}

	vectors := make([][]float32, 0, len(products))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed products %d-%d: %w", start, end, err)
		}

		vectors = append(vectors, batch...)
	}

	if len(vectors) != len(products) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d products", len(vectors), len(products))
	}

	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("empty embedding for product %d", products[i].ID)
		}
	}

	logger.Info().
		Int("products", len(products)).
		Int("dimension", len(vectors[0])).
		Str("model", embedder.Model()).
		Msg("catalog index built")

	return &Index{
		products: products,
		vectors:  vectors,
		byID:     byID,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Size returns the number of indexed products.
func (idx *Index) Size() int {
	return len(idx.products)
}

// Products returns the full catalog in load order. Callers must not mutate
// the returned slice.
func (idx *Index) Products() []Product {
	return idx.products
}

// GetByID returns the product with the given id.
func (idx *Index) GetByID(id int64) (Product, bool) {
	pos, ok := idx.byID[id]
	if !ok {
		return Product{}, false
	}
	return idx.products[pos], true
}

// FilterByIDs returns the products matching the given ids, preserving
// catalog order. Unknown ids are skipped.
func (idx *Index) FilterByIDs(ids []int64) []Product {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	var matched []Product
	for _, p := range idx.products {
		if _, ok := want[p.ID]; ok {
			matched = append(matched, p)
		}
	}
	return matched
}

// SearchByVector returns up to k nearest products by ascending squared
// Euclidean distance. Returns the whole catalog ranked when k exceeds its
// size.
func (idx *Index) SearchByVector(query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	matches := make([]Match, len(idx.products))
	for i, vec := range idx.vectors {
		dist, err := squaredEuclidean(query, vec)
		if err != nil {
			return nil, err
		}
		matches[i] = Match{
			Product:  idx.products[i],
			Distance: dist,
			Score:    1.0 / (1.0 + dist),
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Distance < matches[b].Distance
	})

	if k < len(matches) {
		matches = matches[:k]
	}

	return matches, nil
}

// SearchByProductID returns up to k products most similar to the given
// product, excluding the product itself. Returns ErrNotFound when the id is
// absent from the catalog.
func (idx *Index) SearchByProductID(id int64, k int) ([]Match, error) {
	pos, ok := idx.byID[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}

	// Search k+1 so the query product can be dropped from its own results.
	matches, err := idx.SearchByVector(idx.vectors[pos], k+1)
	if err != nil {
		return nil, err
	}

	filtered := make([]Match, 0, k)
	for _, m := range matches {
		if m.Product.ID == id {
			continue
		}
		filtered = append(filtered, m)
		if len(filtered) == k {
			break
		}
	}

	return filtered, nil
}

// SearchByText embeds the query text and delegates to SearchByVector.
func (idx *Index) SearchByText(ctx context.Context, text string, k int) ([]Match, error) {
	vec, err := idx.embedder.EmbedSingle(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := idx.SearchByVector(vec, k)
	if err != nil {
		return nil, err
	}

	idx.logger.Debug().
		Str("query", text).
		Int("k", k).
		Int("results", len(matches)).
		Msg("text search")

	return matches, nil
}

func squaredEuclidean(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum, nil
}
