// Package catalog holds the product catalog and its vector-similarity index.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Product is an immutable catalog record. Loaded once at startup and never
// mutated afterwards.
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price,omitempty"`
}

// HasPrice reports whether the product carries a price.
func (p Product) HasPrice() bool {
	return p.Price != nil
}

// EmbeddingText returns the text embedded for similarity search.
func (p Product) EmbeddingText() string {
	return fmt.Sprintf("%s %s %s %s", p.Name, p.Description, p.Brand, p.Category)
}

// LoadProducts reads the product catalog from a JSON file.
func LoadProducts(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	if err := validateProducts(products); err != nil {
		return nil, err
	}

	return products, nil
}

func validateProducts(products []Product) error {
	if len(products) == 0 {
		return fmt.Errorf("catalog is empty")
	}

	seen := make(map[int64]struct{}, len(products))
	for _, p := range products {
		if p.Name == "" {
			return fmt.Errorf("product %d has no name", p.ID)
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("duplicate product id: %d", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	return nil
}
