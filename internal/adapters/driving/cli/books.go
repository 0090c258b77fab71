package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/extractors"
)

var (
	addMeta domain.BookMetadata
	addMove bool

	listCode string

	findLimit int
)

var addCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Add a book to the library",
	Long: `Extracts the text of a file, embeds it for semantic search, records it
in the catalogue and stores a copy under its classification directory.

The title defaults to the file name. A book whose chunks only partly
embedded is added as degraded and stays searchable.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var removeCmd = &cobra.Command{
	Use:     "remove [id|#]",
	Aliases: []string{"delete", "rm"},
	Short:   "Remove a book and its stored file",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var editCmd = &cobra.Command{
	Use:   "edit [id|#]",
	Short: "Edit a book's metadata",
	Long: `Updates catalogue fields. Changing the title or classification code
moves the stored file to its new canonical path.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List catalogued books",
	Long: `Lists the catalogue, numbered. The numbers can be used in place of
book IDs, e.g. "librarian info 3".`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var goCmd = &cobra.Command{
	Use:   "go [id|#]",
	Short: "Print the absolute path of a stored book",
	Args:  cobra.ExactArgs(1),
	RunE:  runGo,
}

var infoCmd = &cobra.Command{
	Use:   "info [id|#]",
	Short: "Show a book's catalogue entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var findCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Look up books by title, author or other metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runFind,
}

func init() {
	addFlags := addCmd.Flags()
	addFlags.StringVar(&addMeta.Title, "title", "", "book title (default: from the file name)")
	addFlags.StringSliceVar(&addMeta.Authors, "author", nil, "author (repeatable)")
	addFlags.StringVar(&addMeta.ClassificationCode, "code", "", "classification code, e.g. 530.12")
	addFlags.StringVar(&addMeta.ISBN, "isbn", "", "ISBN-10 or ISBN-13")
	addFlags.StringVar(&addMeta.Publisher, "publisher", "", "publisher")
	addFlags.StringVar(&addMeta.Series, "series", "", "series name")
	addFlags.StringVar(&addMeta.Edition, "edition", "", "edition")
	addFlags.StringVar(&addMeta.Volume, "volume", "", "volume")
	addFlags.IntVar(&addMeta.Year, "year", 0, "publication year")
	addFlags.StringVar(&addMeta.URL, "url", "", "external page for the book")
	addFlags.StringVar(&addMeta.Description, "description", "", "short summary")
	addFlags.StringVar(&addMeta.Notes, "notes", "", "free-form notes")
	addFlags.BoolVar(&addMove, "move", false, "remove the source file once stored")
	_ = addCmd.MarkFlagRequired("code")

	registerEditFlags(editCmd)

	listCmd.Flags().StringVar(&listCode, "code", "", "only books whose classification starts with this prefix")
	findCmd.Flags().IntVarP(&findLimit, "limit", "n", 10, "maximum number of results")

	rootCmd.AddCommand(addCmd, removeCmd, editCmd, listCmd, goCmd, infoCmd, findCmd)
}

func registerEditFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("title", "", "new title")
	f.StringSlice("author", nil, "replace the authors (repeatable)")
	f.String("code", "", "new classification code")
	f.String("isbn", "", "ISBN-10 or ISBN-13")
	f.String("publisher", "", "publisher")
	f.String("series", "", "series name")
	f.String("edition", "", "edition")
	f.String("volume", "", "volume")
	f.Int("year", 0, "publication year")
	f.String("url", "", "external page for the book")
	f.String("description", "", "short summary")
	f.String("notes", "", "free-form notes")
}

func runAdd(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	meta := addMeta
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = extractors.TitleFromFilename(path)
	}

	report, err := ingestService.Ingest(cmd.Context(), path, meta, domain.IngestOptions{Move: addMove})
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}

	printIngestReport(cmd.OutOrStdout(), report)
	return nil
}

func printIngestReport(w io.Writer, report *domain.IngestReport) {
	b := &report.Book
	fmt.Fprintf(w, "%s %s %s\n", style.Success.Render("Added"), b.Title, style.Code.Render("["+b.ClassificationCode+"]"))
	fmt.Fprintf(w, "  ID:     %s\n", b.ID)
	fmt.Fprintf(w, "  Path:   %s\n", b.FilePath())
	fmt.Fprintf(w, "  Chunks: %d\n", report.Chunks)
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "  %s %s\n", style.Warning.Render("Warning:"), warning)
	}
}

func runRemove(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	ctx := cmd.Context()
	book, err := resolveBook(ctx, args[0])
	if err != nil {
		return err
	}
	if err := catalogService.Remove(ctx, book.ID); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}

	cmd.Printf("Removed %s (%s)\n", book.Title, book.ID)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	patch, err := patchFromFlags(cmd)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return errors.New("nothing to change: pass at least one field flag")
	}

	ctx := cmd.Context()
	book, err := resolveBook(ctx, args[0])
	if err != nil {
		return err
	}
	updated, err := catalogService.Edit(ctx, book.ID, patch)
	if err != nil {
		return fmt.Errorf("edit failed: %w", err)
	}

	cmd.Printf("Updated %s\n", updated.Title)
	if updated.CanonicalPath != book.CanonicalPath {
		cmd.Printf("  Moved to %s\n", updated.FilePath())
	}
	return nil
}

// patchFromFlags builds a patch from the flags the user actually set.
func patchFromFlags(cmd *cobra.Command) (domain.BookPatch, error) {
	var patch domain.BookPatch
	f := cmd.Flags()

	strField := func(name string, dst **string) error {
		if !f.Changed(name) {
			return nil
		}
		v, err := f.GetString(name)
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	}

	for name, dst := range map[string]**string{
		"title":       &patch.Title,
		"code":        &patch.ClassificationCode,
		"isbn":        &patch.ISBN,
		"publisher":   &patch.Publisher,
		"series":      &patch.Series,
		"edition":     &patch.Edition,
		"volume":      &patch.Volume,
		"url":         &patch.URL,
		"description": &patch.Description,
		"notes":       &patch.Notes,
	} {
		if err := strField(name, dst); err != nil {
			return patch, err
		}
	}

	if f.Changed("author") {
		authors, err := f.GetStringSlice("author")
		if err != nil {
			return patch, err
		}
		patch.Authors = authors
		if patch.Authors == nil {
			patch.Authors = []string{}
		}
	}
	if f.Changed("year") {
		year, err := f.GetInt("year")
		if err != nil {
			return patch, err
		}
		patch.Year = &year
	}
	return patch, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	books, err := catalogService.List(cmd.Context(), domain.BookFilter{ClassificationPrefix: listCode})
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	printBookList(cmd.OutOrStdout(), books)
	return nil
}

func printBookList(w io.Writer, books []domain.BookEntry) {
	if len(books) == 0 {
		fmt.Fprintln(w, "The catalogue is empty.")
		return
	}
	for i := range books {
		b := &books[i]
		fmt.Fprintf(w, "%3d. %s %s", i+1, style.Code.Render(fmt.Sprintf("%-8s", b.ClassificationCode)), b.Title)
		if len(b.Authors) > 0 {
			fmt.Fprintf(w, " %s", style.Muted.Render("by "+strings.Join(b.Authors, ", ")))
		}
		if b.Status != domain.BookStatusActive {
			fmt.Fprintf(w, " %s", style.Warning.Render("("+b.Status.String()+")"))
		}
		fmt.Fprintln(w)
	}
}

func runGo(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	ctx := cmd.Context()
	book, err := resolveBook(ctx, args[0])
	if err != nil {
		return err
	}
	path, err := catalogService.Path(ctx, book.ID)
	if err != nil {
		return err
	}
	cmd.Println(path)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	book, err := resolveBook(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printBookInfo(cmd.OutOrStdout(), book)
	return nil
}

func printBookInfo(w io.Writer, b *domain.BookEntry) {
	fmt.Fprintln(w, style.Title.Render(b.Title))
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-15s %s\n", label+":", value)
		}
	}
	row("ID", b.ID)
	row("Authors", strings.Join(b.Authors, ", "))
	row("Classification", b.ClassificationCode)
	row("Path", b.FilePath())
	row("Status", b.Status.String())
	row("ISBN", b.ISBN)
	row("Publisher", b.Publisher)
	row("Series", b.Series)
	row("Edition", b.Edition)
	row("Volume", b.Volume)
	if b.Year > 0 {
		row("Year", strconv.Itoa(b.Year))
	}
	row("URL", b.URL)
	row("Description", b.Description)
	row("Notes", b.Notes)
	row("Original file", b.Filename)
	row("Embedding", b.EmbeddingVersion)
	if !b.IngestedAt.IsZero() {
		row("Added", b.IngestedAt.Local().Format("2006-01-02 15:04"))
	}
}

func runFind(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	books, err := catalogService.Find(cmd.Context(), args[0], findLimit)
	if err != nil {
		return fmt.Errorf("find failed: %w", err)
	}
	if len(books) == 0 {
		cmd.Println("No books found.")
		return nil
	}
	printBookList(cmd.OutOrStdout(), books)
	return nil
}

// resolveBook accepts a book ID or a 1-based position in the listing,
// optionally prefixed with "#".
func resolveBook(ctx context.Context, ref string) (*domain.BookEntry, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		books, err := catalogService.List(ctx, domain.BookFilter{})
		if err != nil {
			return nil, err
		}
		if n < 1 || n > len(books) {
			return nil, fmt.Errorf("no book #%d in the listing: %w", n, domain.ErrNotFound)
		}
		return &books[n-1], nil
	}
	return catalogService.Get(ctx, ref)
}
