package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

var (
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query and returns the nearest indexed chunks.
Scores are 1/(1+d) for squared Euclidean distance d; higher is closer.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "maximum number of results (0 = configured default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errNotConfigured("search")
	}

	hits, err := searchService.Search(cmd.Context(), args[0], domain.SearchOptions{TopK: searchTopK})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		if hits == nil {
			hits = []domain.SearchHit{}
		}
		return printJSON(cmd, hits)
	}
	outputSearchTable(cmd, hits)
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []domain.SearchHit) {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println(titleStyle.Render("Results:"))
	cmd.Println()
	for i := range hits {
		rec := hits[i].Record
		title := rec.Metadata.Title
		if title == "" {
			title = rec.Chunk.SourceDocID
		}

		cmd.Printf("  [%d] %s %s\n", i+1, subtitleStyle.Render(title),
			mutedStyle.Render(fmt.Sprintf("(%.3f, chunk %d)", hits[i].Score, rec.Chunk.ChunkIndex)))
		if rec.Metadata.SourcePath != "" {
			cmd.Printf("      %s\n", mutedStyle.Render(rec.Metadata.SourcePath))
		}
		cmd.Printf("      %s\n", truncate(strings.Join(strings.Fields(rec.Chunk.Text), " "), 160))
		cmd.Println()
	}
}
