package domain

import (
	"strings"
	"time"
)

// Question is a single multiple-choice or true/false exam question.
// True/false questions use ChoiceA and ChoiceB and leave C and D blank.
type Question struct {
	Content       string `json:"content" yaml:"content" validate:"required"`
	ChoiceA       string `json:"choice_a" yaml:"choice_a" validate:"required"`
	ChoiceB       string `json:"choice_b" yaml:"choice_b" validate:"required"`
	ChoiceC       string `json:"choice_c" yaml:"choice_c,omitempty"`
	ChoiceD       string `json:"choice_d" yaml:"choice_d,omitempty"`
	CorrectChoice string `json:"correct_choice" yaml:"correct_choice" validate:"required,choice"`
}

// Choices returns the non-blank choices keyed by letter, in order.
func (q Question) Choices() [][2]string {
	all := [][2]string{
		{"A", q.ChoiceA},
		{"B", q.ChoiceB},
		{"C", q.ChoiceC},
		{"D", q.ChoiceD},
	}
	out := make([][2]string, 0, len(all))
	for _, c := range all {
		if strings.TrimSpace(c[1]) != "" {
			out = append(out, c)
		}
	}
	return out
}

// Choice returns the text for a choice letter.
func (q Question) Choice(letter string) string {
	switch strings.ToUpper(letter) {
	case "A":
		return q.ChoiceA
	case "B":
		return q.ChoiceB
	case "C":
		return q.ChoiceC
	case "D":
		return q.ChoiceD
	default:
		return ""
	}
}

// IsTrueFalse returns true if the question only offers two choices.
func (q Question) IsTrueFalse() bool {
	return strings.TrimSpace(q.ChoiceC) == "" && strings.TrimSpace(q.ChoiceD) == ""
}

// ExamSection groups the questions drawn from one book.
type ExamSection struct {
	// Book is the sampled catalog entry.
	Book BookEntry `yaml:"-"`

	// BookID identifies the sampled book.
	BookID string `yaml:"book_id"`

	// Title is the sampled book's title.
	Title string `yaml:"title"`

	// ChunkIDs are the representative chunks supplied as context.
	ChunkIDs []string `yaml:"chunk_ids"`

	// Questions are the validated questions for the section.
	Questions []Question `yaml:"questions"`
}

// Exam is a generated question set.
type Exam struct {
	// GeneratedAt is when the exam was produced.
	GeneratedAt time.Time `yaml:"generated_at"`

	// Sections holds one section per sampled book.
	Sections []ExamSection `yaml:"sections"`
}

// QuestionCount returns the total number of questions.
func (e *Exam) QuestionCount() int {
	n := 0
	for _, s := range e.Sections {
		n += len(s.Questions)
	}
	return n
}
