package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var askNoSources bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question from the indexed documents",
	Long: `Retrieves the passages most relevant to the question, asks the chat
model to answer from them and prints the answer with its sources.

The retrieval strategy and number of passages come from the settings
(retrieval.strategy, retrieval.k).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askNoSources, "no-sources", false, "do not print the cited sources")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errChatUnavailable
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	stop := startSpinner(cmd.ErrOrStderr(), stderrIsTerminal(), "thinking")
	answer, err := chatService.Answer(commandContext(cmd), question)
	stop()
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	printAnswer(cmd, answer, !askNoSources)
	return nil
}

// printAnswer writes the answer text followed by its citations.
func printAnswer(cmd *cobra.Command, answer *domain.Answer, withSources bool) {
	cmd.Println(answer.Text)
	if !withSources || len(answer.Sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, c := range answer.Sources {
		cmd.Printf("  [%d] %s\n", i+1, c.Label())
	}
}
