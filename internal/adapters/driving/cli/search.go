package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	searchK        int
	searchStrategy string
	searchFilters  []string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Retrieves the passages most relevant to the query without asking the
chat model, printing each source with a preview of the passage.

Strategies:
  similarity  - Nearest passages by embedding (default)
  compression - Over-fetch, then keep only what the chat model judges relevant
  hybrid      - Vector similarity combined with keyword (BM25) matching

--filter key=value restricts results to passages whose metadata matches,
for example --filter format=pdf. Filters use similarity search.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 0, "number of passages (default retrieval.k)")
	searchCmd.Flags().StringVarP(&searchStrategy, "strategy", "s", "", "similarity, compression or hybrid (default retrieval.strategy)")
	searchCmd.Flags().StringArrayVar(&searchFilters, "filter", nil, "metadata filter key=value on scalar fields (repeatable)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retrieverService == nil {
		return errors.New("retriever service not configured")
	}

	cfg := config()
	k := searchK
	if k <= 0 {
		k = cfg.Retrieval.K
	}

	ctx := commandContext(cmd)
	var (
		result *domain.RetrievalResult
		err    error
	)
	if len(searchFilters) > 0 {
		filter, ferr := parseFilters(searchFilters)
		if ferr != nil {
			return ferr
		}
		result, err = retrieverService.RetrieveFiltered(ctx, query, k, filter)
	} else {
		strategy := cfg.Retrieval.Strategy
		if searchStrategy != "" {
			strategy, err = domain.ParseStrategy(searchStrategy)
			if err != nil {
				return err
			}
		}
		result, err = retrieverService.Retrieve(ctx, query, strategy, k)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	return outputSearchTable(cmd, result)
}

// parseFilters turns key=value pairs into a metadata filter.
func parseFilters(pairs []string) (domain.MetadataFilter, error) {
	filter := make(domain.MetadataFilter, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: filter %q must be key=value", domain.ErrInvalidInput, pair)
		}
		filter[key] = strings.TrimSpace(value)
	}
	return filter, nil
}

// searchHit is the JSON form of one passage.
type searchHit struct {
	Source   string         `json:"source"`
	Page     int            `json:"page,omitempty"`
	Ordinal  int            `json:"ordinal"`
	Score    float64        `json:"score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func outputSearchJSON(cmd *cobra.Command, result *domain.RetrievalResult) error {
	hits := make([]searchHit, 0, result.Len())
	if result != nil {
		for _, p := range result.Passages {
			hits = append(hits, searchHit{
				Source:   p.Chunk.SourceID,
				Page:     domain.Page(p.Chunk.Metadata),
				Ordinal:  p.Chunk.Ordinal,
				Score:    p.Score,
				Content:  p.Chunk.Content,
				Metadata: p.Chunk.Metadata,
			})
		}
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, result *domain.RetrievalResult) error {
	if result.IsEmpty() {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%s):\n", result.Strategy)
	cmd.Println()
	for i, p := range result.Passages {
		label := domain.Citation{Source: p.Chunk.SourceID, Page: domain.Page(p.Chunk.Metadata)}.Label()
		cmd.Printf("[%d] %s (%.3f)\n", i+1, label, p.Score)
		cmd.Printf("    %s\n", domain.Preview(p.Chunk.Content))
		cmd.Println()
	}
	return nil
}
