package driven

// PromptStore supplies the templates sent to the LLM.
type PromptStore interface {
	// Load returns the template called name.
	Load(name string) (string, error)

	// Reload drops cached templates so edits on disk take effect.
	Reload()
}

// Template names. Each template is a fmt format string.
const (
	// PromptQueryRewrite takes the question (%s) and asks for
	// comma-separated search keywords.
	PromptQueryRewrite = "query_rewrite"

	// PromptAnswer takes the excerpts (%s) then the question (%s).
	PromptAnswer = "answer"

	// PromptExam takes the question count (%d) then the excerpts (%s).
	PromptExam = "exam"
)

// PromptStoreAware is implemented by adapters whose built-in templates
// can be replaced after construction.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
