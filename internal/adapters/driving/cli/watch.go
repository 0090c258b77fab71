package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/librarian/internal/adapters/driven/inbox"
	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/extractors"
	"github.com/custodia-labs/librarian/internal/logger"
)

var (
	watchCode     string
	watchAuthors  []string
	watchMove     bool
	watchExisting bool
	watchSettle   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Add every book dropped into a directory",
	Long: `Watches an inbox directory and adds each new file once it has stopped
changing. Titles come from the file names and every book is filed under
--code; use "librarian edit" afterwards to refine the metadata.

Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchCode, "code", "", "classification code for ingested books")
	f.StringSliceVar(&watchAuthors, "author", []string{"Unknown"}, "author recorded for ingested books")
	f.BoolVar(&watchMove, "move", true, "remove files from the inbox once stored")
	f.BoolVar(&watchExisting, "existing", true, "also add files already in the directory")
	f.DurationVar(&watchSettle, "settle", inbox.DefaultSettle, "how long a file must stay unchanged before it is added")
	_ = watchCmd.MarkFlagRequired("code")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if _, err := domain.NormaliseClassification(watchCode); err != nil {
		return err
	}

	ctx := cmd.Context()
	w := inbox.New(args[0], watchSettle, acceptFile)
	defer w.Close()

	if watchExisting {
		pending, err := w.Pending()
		if err != nil {
			return err
		}
		for _, p := range pending {
			ingestInboxFile(cmd, p)
		}
	}

	files, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl-C to stop)\n", w.Dir())
	for p := range files {
		ingestInboxFile(cmd, p)
	}
	return nil
}

func acceptFile(path string) bool {
	if supportsFormat == nil {
		return true
	}
	return supportsFormat(filepath.Ext(path))
}

// ingestInboxFile adds one file, reporting failures without stopping the watch.
func ingestInboxFile(cmd *cobra.Command, path string) {
	meta := domain.BookMetadata{
		Title:              extractors.TitleFromFilename(path),
		Authors:            watchAuthors,
		ClassificationCode: watchCode,
	}
	report, err := ingestService.Ingest(cmd.Context(), path, meta, domain.IngestOptions{Move: watchMove})
	if err != nil {
		logger.Warn("inbox: %s: %v", path, err)
		cmd.PrintErrf("%s %s: %v\n", style.Error.Render("Skipped"), filepath.Base(path), err)
		return
	}
	printIngestReport(cmd.OutOrStdout(), report)
	fmt.Fprintln(cmd.OutOrStdout())
}
