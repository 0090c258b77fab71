package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the semantic index",
	Long: `The semantic index is rebuilt from the catalogue's stored embeddings
at startup. These commands check or force that rebuild.`,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index from the catalogue",
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

var indexVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare the index with the catalogue",
	Args:  cobra.NoArgs,
	RunE:  runIndexVerify,
}

func init() {
	indexCmd.AddCommand(indexRebuildCmd, indexVerifyCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	if err := indexService.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	cmd.Println("Index rebuilt.")
	return nil
}

func runIndexVerify(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	report, err := indexService.Verify(cmd.Context())
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	cmd.Printf("Indexed chunks:   %d\n", report.IndexedChunks)
	cmd.Printf("Catalogue chunks: %d\n", report.CatalogChunks)
	for _, id := range report.UnindexedBooks {
		cmd.Printf("  unindexed book: %s\n", id)
	}
	for _, id := range report.StaleChunks {
		cmd.Printf("  stale chunk:    %s\n", id)
	}
	if report.Consistent() {
		cmd.Println(style.Success.Render("Index is consistent."))
		return nil
	}
	cmd.Println(style.Warning.Render("Index is inconsistent. Run 'librarian index rebuild'."))
	return nil
}
