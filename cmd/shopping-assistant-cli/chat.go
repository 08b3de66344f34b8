package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/assistant"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the shopping assistant interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := buildCoordinator(cmd.Context())
			if err != nil {
				return err
			}

			ui.Info("Catalog loaded. Type your question, or 'exit' to quit.")

			var history []assistant.Turn
			var previousProductIDs []int64

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("you> ")
				if !scanner.Scan() {
					break
				}

				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					break
				}

				history = append(history, assistant.Turn{Role: "user", Content: question})

				sp := NewSpinner("Thinking...")
				result := coordinator.HandleTurn(cmd.Context(), question, history, previousProductIDs)
				sp.Stop()

				history = append(history, assistant.Turn{Role: "assistant", Content: result.Reply})
				history = assistant.TrimHistory(history, cfg.Conversation.MaxHistoryTurns)

				ui.Assistant(result.Reply)

				previousProductIDs = previousProductIDs[:0]
				for i, p := range result.Products {
					ui.Product(i+1, p.Name, p.Category, priceText(p.Price))
					previousProductIDs = append(previousProductIDs, p.ID)
				}
			}

			return scanner.Err()
		},
	}
}

func priceText(price *float64) string {
	if price == nil {
		return ""
	}
	return fmt.Sprintf("$%.2f", *price)
}
