// Package cli provides the librarian command-line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/librarian/internal/core/ports/driving"
	"github.com/custodia-labs/librarian/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Services holds the driving ports the commands call.
// Nil ports disable the commands that need them.
type Services struct {
	Catalog  driving.CatalogService
	Ingest   driving.IngestService
	Index    driving.IndexService
	Query    driving.QueryService
	Question driving.QuestionService
	Exam     driving.ExamService
	Settings driving.SettingsService

	// SupportsFormat reports whether a file type can be ingested.
	SupportsFormat func(fileType string) bool
}

// Options are the global flag values handed to the bootstrap function.
type Options struct {
	DataDir string
	Library string
	Verbose bool

	// Flags is the merged persistent flag set, for config overlays.
	Flags *pflag.FlagSet
}

// BootstrapFunc builds the services for a command run. The returned
// cleanup is called once the command finishes.
type BootstrapFunc func(opts Options) (*Services, func(), error)

var (
	catalogService  driving.CatalogService
	ingestService   driving.IngestService
	indexService    driving.IndexService
	queryService    driving.QueryService
	questionService driving.QuestionService
	examService     driving.ExamService
	settingsService driving.SettingsService
	supportsFormat  func(fileType string) bool
)

var (
	bootstrap BootstrapFunc
	cleanup   func()
	opts      Options
)

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "Catalogue books and search them by meaning",
	Long: `Librarian keeps a catalogue of your books, files each one under a
Dewey-style classification directory, and makes their contents searchable
by natural-language query. With an LLM configured it also answers
questions from your books and writes exams on them.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: runBootstrap,
	PersistentPostRun: func(*cobra.Command, []string) {
		runCleanup()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.DataDir, "data-dir", "", "data directory (default ~/.librarian)")
	flags.StringVar(&opts.Library, "library", "", "library root holding stored books (default <data-dir>/library)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "print diagnostic logs")
}

// SetBootstrap installs the function that wires services before each command.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices injects services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	catalogService = s.Catalog
	ingestService = s.Ingest
	indexService = s.Index
	queryService = s.Query
	questionService = s.Question
	examService = s.Exam
	settingsService = s.Settings
	supportsFormat = s.SupportsFormat
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	defer runCleanup()
	return rootCmd.ExecuteContext(ctx)
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}
	opts.Flags = cmd.Flags()
	services, done, err := bootstrap(opts)
	if err != nil {
		return err
	}
	if services == nil {
		return errors.New("bootstrap returned no services")
	}
	SetServices(services)
	cleanup = done
	return nil
}

func runCleanup() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}
