// Package prompting holds the prompt handling shared by the LLM adapters.
package prompting

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// DefaultQueryRewrite is the fallback query rewrite prompt when no
// PromptStore is configured. It expects one %s placeholder.
const DefaultQueryRewrite = `Extract the search keywords from the user's question.
Return ONLY the keywords separated by commas, nothing else.

Question: %s
Keywords:`

// Load returns the named prompt from store, or fallback when the store is
// nil or cannot provide it.
func Load(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}

// QueryRewrite renders the query rewrite prompt for query.
func QueryRewrite(store driven.PromptStore, query string) string {
	return fmt.Sprintf(Load(store, driven.PromptQueryRewrite, DefaultQueryRewrite), query)
}

// Keywords cleans a model's keyword reply: reasoning blocks, a leading
// "Keywords:" label, quotes and empty entries are removed and the rest is
// joined with ", ". If nothing usable remains, fallback is returned.
func Keywords(reply, fallback string) string {
	reply = domain.StripThinking(reply)
	if line, _, ok := strings.Cut(reply, "\n"); ok {
		reply = line
	}
	reply = strings.TrimSpace(reply)
	if len(reply) >= len("keywords:") && strings.EqualFold(reply[:len("keywords:")], "keywords:") {
		reply = reply[len("keywords:"):]
	}

	var words []string
	for _, part := range strings.Split(reply, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			words = append(words, part)
		}
	}
	if len(words) == 0 {
		return fallback
	}
	return strings.Join(words, ", ")
}
