package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/services"
)

var (
	examBooks  int
	examFormat string
	examOutput string
)

var questionCmd = &cobra.Command{
	Use:     "question [prompt]",
	Aliases: []string{"chat", "ask"},
	Short:   "Ask a question answered from your books",
	Long: `Searches the library for passages relevant to the question and asks
the configured LLM to answer from them. In the shell the conversation is
remembered between questions until ":clear".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuestion,
}

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Generate an exam from randomly chosen books",
	Long: `Samples books from the catalogue and asks the LLM to write multiple
choice and true/false questions on each. The answer key follows the
questions in text output.`,
	Args: cobra.NoArgs,
	RunE: runExam,
}

func init() {
	examCmd.Flags().IntVar(&examBooks, "books", 0, "number of books to sample (default from settings)")
	examCmd.Flags().StringVar(&examFormat, "format", "text", "output format: text or yaml")
	examCmd.Flags().StringVarP(&examOutput, "output", "o", "", "write the exam to a file instead of stdout")
	rootCmd.AddCommand(questionCmd, examCmd)
}

func runQuestion(cmd *cobra.Command, args []string) error {
	if questionService == nil {
		return errors.New("question service not configured")
	}

	answer, err := questionService.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("question failed: %w", err)
	}
	printAnswer(cmd.OutOrStdout(), answer)
	return nil
}

func printAnswer(w io.Writer, answer *domain.Answer) {
	for _, warning := range answer.Warnings {
		fmt.Fprintf(w, "%s %s\n", style.Warning.Render("Warning:"), warning)
	}
	fmt.Fprintln(w, strings.TrimSpace(answer.Text))
	if len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, style.Muted.Render("Sources:"))
	for i := range answer.Sources {
		b := &answer.Sources[i].Book
		fmt.Fprintf(w, "  %s %s\n", style.Code.Render(b.ClassificationCode), b.Title)
	}
}

func runExam(cmd *cobra.Command, _ []string) error {
	if examService == nil {
		return errors.New("exam service not configured")
	}

	format, err := services.ParseExamFormat(examFormat)
	if err != nil {
		return err
	}

	exam, err := examService.Generate(cmd.Context(), examBooks)
	if err != nil {
		return fmt.Errorf("exam failed: %w", err)
	}

	if examOutput == "" {
		return services.WriteExam(cmd.OutOrStdout(), exam, format)
	}

	f, err := os.Create(examOutput)
	if err != nil {
		return fmt.Errorf("create exam file: %w", err)
	}
	if err := services.WriteExam(f, exam, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write exam file: %w", err)
	}
	cmd.Printf("Wrote %d questions on %d books to %s\n", exam.QuestionCount(), len(exam.Sections), examOutput)
	return nil
}
