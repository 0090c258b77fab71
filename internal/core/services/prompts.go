package services

import (
	"strings"

	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// Fallback prompts used when no prompt store is configured or a stored
// prompt is blank.
const (
	defaultAnswerPrompt = `Book excerpts:
%s

User question:
%s`

	defaultExamPrompt = `Your job is to write exam questions for a college student from the book excerpts below.
Write up to %d questions drawn from the text only. Each question has four choices (choice_a to choice_d).
If a true/false question is more suitable, set choice_a to "True", choice_b to "False" and leave choice_c and choice_d empty.
If the excerpts contain no useful content, return an empty array.

Respond with a JSON array only, where each element has the fields
"content", "choice_a", "choice_b", "choice_c", "choice_d" and "correct_choice" (one of "A", "B", "C", "D").

Excerpts:
%s`
)

// noExcerpts stands in for an empty context block.
const noExcerpts = "(no relevant excerpts were found in the library)"

func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	p, err := store.Load(name)
	if err != nil || strings.TrimSpace(p) == "" {
		return fallback
	}
	return p
}
