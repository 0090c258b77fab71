package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the library by meaning",
	Long: `Embeds the query and ranks books by the similarity of their best
matching passages. Results are approximate: this is semantic search, not
exact keyword matching. Use "find" for metadata lookups.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of books (default from settings)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchResultJSON is the --json shape of a ranked book.
type searchResultJSON struct {
	Rank           int      `json:"rank"`
	BookID         string   `json:"book_id"`
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Classification string   `json:"classification"`
	Path           string   `json:"path"`
	Score          float64  `json:"score"`
	ChunkIDs       []string `json:"chunk_ids"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	resp, err := queryService.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp.Results)
	}

	printSearchResults(cmd.OutOrStdout(), resp)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i := range results {
		r := &results[i]
		out[i] = searchResultJSON{
			Rank:           i + 1,
			BookID:         r.BookID,
			Title:          r.Book.Title,
			Authors:        r.Book.Authors,
			Classification: r.Book.ClassificationCode,
			Path:           r.Book.FilePath(),
			Score:          r.Score,
			ChunkIDs:       r.ChunkIDs,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printSearchResults(w io.Writer, resp *domain.SearchResponse) {
	for _, warning := range resp.Warnings {
		fmt.Fprintf(w, "%s %s\n", style.Warning.Render("Warning:"), warning)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintln(w, "Results:")
	fmt.Fprintln(w)
	for i := range resp.Results {
		r := &resp.Results[i]
		fmt.Fprintf(w, "  [%d] %s (%.2f)\n", i+1, r.Book.Title, r.Score)
		if len(r.Book.Authors) > 0 {
			fmt.Fprintf(w, "      %s\n", strings.Join(r.Book.Authors, ", "))
		}
		fmt.Fprintf(w, "      %s %s\n", style.Code.Render(r.Book.ClassificationCode), style.Muted.Render(r.Book.FilePath()))
		fmt.Fprintln(w)
	}
}
