package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/services"
	"github.com/custodia-labs/librarian/internal/extractors"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive session",
	Long: `Starts a prompt where plain text searches the library and
colon commands manage it. Type ":help" for the command list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return newShell(cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

var errQuit = errors.New("quit")

// shellCommands is the help listing, in display order.
var shellCommands = [][2]string{
	{":add [path]", "Adds a book to the library given by the path."},
	{":clear", "Clears the screen and forgets the conversation."},
	{":edit [id|#]", "Edits the book's metadata."},
	{":exam [books]", "Writes an exam on randomly chosen books."},
	{":find [query]", "Looks up books by title, author or ISBN."},
	{":go [id|#]", "Prints the stored file's path."},
	{":help", "Displays a list of commands."},
	{":info [id|#]", "Shows the catalogue entry of a book."},
	{":legal", "Shows the legal notices."},
	{":list", "Lists the catalogue."},
	{":question [prompt]", "Asks the LLM with context from a library search."},
	{":quit", "Leaves the shell."},
	{":remove [id|#]", "Removes the book and its stored file."},
}

const legalNotice = `Librarian includes third-party software under these licences:
  cobra, viper, pflag (Apache-2.0)
  modernc.org/sqlite (BSD-3-Clause)
  bleve (Apache-2.0)
  zap (MIT)
  ants (MIT)
  lipgloss (MIT)
  go-toml (MIT)
  validator (MIT)
  ulid (Apache-2.0)
  fsnotify (BSD-3-Clause)
  MCP Go SDK (MIT)

Answers and exams are generated by a language model and may be wrong.`

// shell is the interactive read-eval loop.
type shell struct {
	in  *bufio.Reader
	out io.Writer

	// last holds the books of the latest search or listing, for "#" references.
	last []domain.BookEntry
}

func newShell(in io.Reader, out io.Writer) *shell {
	return &shell{in: bufio.NewReader(in), out: out}
}

// Run reads lines until EOF, ":quit" or ctx ends.
func (s *shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, style.Title.Render("Librarian "+version))
	fmt.Fprintln(s.out, style.Muted.Render(`Type a query to search, or ":help" for commands.`))

	for ctx.Err() == nil {
		fmt.Fprint(s.out, style.Prompt.Render(">>>")+" ")
		line, err := s.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		if line = strings.TrimSpace(line); line != "" {
			if err := s.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					break
				}
				fmt.Fprintf(s.out, "%s %v\n", style.Error.Render("Error:"), err)
			}
		}
		if eof {
			fmt.Fprintln(s.out)
			break
		}
	}

	fmt.Fprintln(s.out, "Have a nice day.")
	return nil
}

// exec runs one line of input.
func (s *shell) exec(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, ":") {
		return s.search(ctx, line)
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case ":add":
		return s.add(ctx, strings.Trim(rest, `"'`))
	case ":remove", ":delete":
		return s.withBook(ctx, rest, s.remove)
	case ":edit":
		return s.withBook(ctx, rest, s.edit)
	case ":go":
		return s.withBook(ctx, rest, s.goTo)
	case ":info":
		return s.withBook(ctx, rest, func(_ context.Context, b *domain.BookEntry) error {
			printBookInfo(s.out, b)
			return nil
		})
	case ":list", ":ls":
		return s.list(ctx)
	case ":find":
		return s.find(ctx, rest)
	case ":question", ":chat", ":iwonder":
		return s.question(ctx, rest)
	case ":exam":
		return s.exam(ctx, rest)
	case ":clear", ":cls":
		s.clear()
		return nil
	case ":help":
		s.help()
		return nil
	case ":legal":
		fmt.Fprintln(s.out, legalNotice)
		return nil
	case ":quit", ":q", ":exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command: %q", name)
	}
}

func (s *shell) search(ctx context.Context, query string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}
	resp, err := queryService.Search(ctx, query, 0)
	if err != nil {
		return err
	}
	s.last = make([]domain.BookEntry, 0, len(resp.Results))
	for i := range resp.Results {
		s.last = append(s.last, resp.Results[i].Book)
	}

	for _, warning := range resp.Warnings {
		fmt.Fprintf(s.out, "%s %s\n", style.Warning.Render("Warning:"), warning)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(s.out, "No results found.")
		return nil
	}
	rule := strings.Repeat("-", terminalWidth())
	for i := range resp.Results {
		r := &resp.Results[i]
		fmt.Fprintf(s.out, "Result %d\n%s\n", i+1, style.Muted.Render(rule))
		fmt.Fprintf(s.out, "  %14s : %s\n", "Title", r.Book.Title)
		fmt.Fprintf(s.out, "  %14s : %s\n", "Authors", strings.Join(r.Book.Authors, ", "))
		fmt.Fprintf(s.out, "  %14s : %s\n", "Classification", r.Book.ClassificationCode)
		fmt.Fprintf(s.out, "  %14s : %.2f\n\n", "Score", r.Score)
	}
	return nil
}

// resolve looks up a book by ID or by its number in the latest results.
func (s *shell) resolve(ctx context.Context, ref string) (*domain.BookEntry, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: a book id or result number is required", domain.ErrInvalidInput)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(ref, "#"))
	if err != nil || len(s.last) == 0 {
		return resolveBook(ctx, ref)
	}
	if n < 1 || n > len(s.last) {
		return nil, fmt.Errorf("no result #%d: %w", n, domain.ErrNotFound)
	}
	return catalogService.Get(ctx, s.last[n-1].ID)
}

func (s *shell) withBook(ctx context.Context, ref string, fn func(context.Context, *domain.BookEntry) error) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}
	book, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	return fn(ctx, book)
}

// ask prints a prompt and returns the trimmed reply, or def when blank.
func (s *shell) ask(label, def string) string {
	if def != "" {
		fmt.Fprintf(s.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(s.out, "%s: ", label)
	}
	reply := readLine(s.in)
	if reply == "" {
		return def
	}
	return reply
}

func (s *shell) add(ctx context.Context, path string) error {
	if ingestService == nil || catalogService == nil {
		return errors.New("ingest service not configured")
	}
	if path == "" {
		return fmt.Errorf("%w: a file path is required", domain.ErrInvalidInput)
	}

	meta := domain.BookMetadata{
		Title:              s.ask("Title", extractors.TitleFromFilename(path)),
		Authors:            splitList(s.ask("Authors (comma separated)", "")),
		ClassificationCode: s.ask("Classification code", ""),
		ISBN:               s.ask("ISBN (optional)", ""),
		Publisher:          s.ask("Publisher (optional)", ""),
	}
	if year := s.ask("Year (optional)", ""); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return fmt.Errorf("%w: year %q", domain.ErrInvalidInput, year)
		}
		meta.Year = y
	}

	if meta.ISBN != "" {
		exists, err := catalogService.ExistsISBN(ctx, meta.ISBN)
		if err != nil {
			return err
		}
		if exists && !strings.EqualFold(s.ask("A book with this ISBN is catalogued. Add anyway? (y/N)", ""), "y") {
			return nil
		}
	}

	report, err := ingestService.Ingest(ctx, path, meta, domain.IngestOptions{})
	if err != nil {
		return err
	}
	printIngestReport(s.out, report)
	return nil
}

func (s *shell) remove(ctx context.Context, b *domain.BookEntry) error {
	if err := catalogService.Remove(ctx, b.ID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Removed %s (%s)\n", b.Title, b.ID)
	s.last = nil
	return nil
}

// edit prompts for each field with the current value as the default.
func (s *shell) edit(ctx context.Context, b *domain.BookEntry) error {
	var patch domain.BookPatch

	setString := func(label, current string, dst **string) {
		if v := s.ask(label, current); v != current {
			*dst = &v
		}
	}
	setString("Title", b.Title, &patch.Title)
	if authors := s.ask("Authors (comma separated)", strings.Join(b.Authors, ", ")); authors != strings.Join(b.Authors, ", ") {
		patch.Authors = splitList(authors)
	}
	setString("Classification code", b.ClassificationCode, &patch.ClassificationCode)
	setString("ISBN", b.ISBN, &patch.ISBN)
	setString("Publisher", b.Publisher, &patch.Publisher)
	setString("Notes", b.Notes, &patch.Notes)

	if patch.IsEmpty() {
		fmt.Fprintln(s.out, "Nothing changed.")
		return nil
	}
	updated, err := catalogService.Edit(ctx, b.ID, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updated %s\n", updated.Title)
	if updated.CanonicalPath != b.CanonicalPath {
		fmt.Fprintf(s.out, "  Moved to %s\n", updated.FilePath())
	}
	return nil
}

func (s *shell) goTo(ctx context.Context, b *domain.BookEntry) error {
	path, err := catalogService.Path(ctx, b.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, path)
	return nil
}

func (s *shell) list(ctx context.Context) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}
	books, err := catalogService.List(ctx, domain.BookFilter{})
	if err != nil {
		return err
	}
	s.last = books
	printBookList(s.out, books)
	return nil
}

func (s *shell) find(ctx context.Context, query string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}
	books, err := catalogService.Find(ctx, query, 10)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Fprintln(s.out, "No books found.")
		return nil
	}
	s.last = books
	printBookList(s.out, books)
	return nil
}

func (s *shell) question(ctx context.Context, prompt string) error {
	if questionService == nil {
		return errors.New("question service not configured")
	}
	answer, err := questionService.Ask(ctx, prompt)
	if err != nil {
		return err
	}
	printAnswer(s.out, answer)
	return nil
}

func (s *shell) exam(ctx context.Context, arg string) error {
	if examService == nil {
		return errors.New("exam service not configured")
	}
	n := 0
	if arg != "" {
		var err error
		if n, err = strconv.Atoi(arg); err != nil {
			return fmt.Errorf("%w: book count %q", domain.ErrInvalidInput, arg)
		}
	}
	exam, err := examService.Generate(ctx, n)
	if err != nil {
		return err
	}
	return services.WriteExam(s.out, exam, services.ExamFormatText)
}

func (s *shell) clear() {
	if questionService != nil {
		questionService.Reset()
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprint(s.out, "\033[H\033[2J")
	}
}

func (s *shell) help() {
	fmt.Fprintln(s.out, "Commands:")
	for _, c := range shellCommands {
		fmt.Fprintf(s.out, "  %-25s %s\n", c[0], c[1])
	}
	fmt.Fprintln(s.out, "Anything else is a library search; \"#\" numbers refer to its results.")
}

// terminalWidth returns the width of stdout, or 80 when it is not a terminal.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
