package driven

// ConfigStore holds settings under dot-notation keys such as
// "retrieval.top_k". Typed getters return the zero value for missing keys
// and for values they cannot convert.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set records a value. Persistent stores write it through at once.
	Set(key string, value any) error

	Save() error
	// Load discards in-memory values and rereads the backing store.
	Load() error
	// Path names the backing file, or ":memory:".
	Path() string
}
