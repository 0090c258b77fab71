package services

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// ExamFormat selects how an exam is written out.
type ExamFormat string

// Supported exam formats.
const (
	ExamFormatText ExamFormat = "text"
	ExamFormatYAML ExamFormat = "yaml"
)

// ParseExamFormat validates a format name. An empty name means text.
func ParseExamFormat(s string) (ExamFormat, error) {
	switch f := ExamFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ExamFormatText, nil
	case ExamFormatText, ExamFormatYAML:
		return f, nil
	case "yml":
		return ExamFormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unknown exam format %q (use text or yaml)", domain.ErrInvalidInput, s)
	}
}

// WriteExam writes exam to w in the given format.
func WriteExam(w io.Writer, exam *domain.Exam, format ExamFormat) error {
	switch format {
	case ExamFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(exam); err != nil {
			return fmt.Errorf("encode exam: %w", err)
		}
		return enc.Close()
	case ExamFormatText, "":
		return writeExamText(w, exam)
	default:
		return fmt.Errorf("%w: unknown exam format %q", domain.ErrInvalidInput, format)
	}
}

// writeExamText renders numbered questions per book followed by an
// answer key.
func writeExamText(w io.Writer, exam *domain.Exam) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Exam generated %s\n", exam.GeneratedAt.Format("2006-01-02 15:04"))

	n := 0
	for _, s := range exam.Sections {
		fmt.Fprintf(bw, "\n== %s ==\n", s.Title)
		if len(s.Questions) == 0 {
			fmt.Fprintln(bw, "\n(no questions)")
		}
		for _, q := range s.Questions {
			n++
			fmt.Fprintf(bw, "\n%d. %s\n", n, q.Content)
			for _, c := range q.Choices() {
				fmt.Fprintf(bw, "   %s) %s\n", c[0], c[1])
			}
		}
	}

	fmt.Fprintln(bw, "\nAnswer key")
	n = 0
	for _, s := range exam.Sections {
		for _, q := range s.Questions {
			n++
			fmt.Fprintf(bw, "%d. %s\n", n, q.CorrectChoice)
		}
	}

	return bw.Flush()
}
