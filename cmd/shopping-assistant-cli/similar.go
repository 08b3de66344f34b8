package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSimilarCmd() *cobra.Command {
	var (
		productID int64
		topK      int
	)

	cmd := &cobra.Command{
		Use:   "similar",
		Short: "List catalog products most similar to a given product",
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := buildIndex(cmd.Context())
			if err != nil {
				return err
			}

			product, ok := index.GetByID(productID)
			if !ok {
				return fmt.Errorf("product %d not in catalog", productID)
			}

			matches, err := index.SearchByProductID(productID, topK)
			if err != nil {
				return err
			}

			ui.Info("Products similar to %s:", product.Name)
			for i, m := range matches {
				ui.Product(i+1, m.Product.Name, m.Product.Category, fmt.Sprintf("score %.3f", m.Score))
			}

			return nil
		},
	}

	cmd.Flags().Int64Var(&productID, "id", 0, "catalog product id")
	cmd.Flags().IntVar(&topK, "top", 5, "number of similar products to show")
	cmd.MarkFlagRequired("id")

	return cmd
}
