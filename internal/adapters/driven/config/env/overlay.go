// Package env layers environment variables and command-line flags over a
// persisted config store. Values read through the overlay come from, in
// order: a changed flag bound to the key, the LIBRARIAN_* environment
// variable for the key, then the underlying store. Writes always go to
// the underlying store.
package env

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// Ensure Overlay implements the interface.
var _ driven.ConfigStore = (*Overlay)(nil)

// Prefix is the environment variable prefix. The key "llm.api_key" is
// read from LIBRARIAN_LLM_API_KEY.
const Prefix = "LIBRARIAN"

// Overlay is a driven.ConfigStore that prefers flag and environment values.
type Overlay struct {
	base  driven.ConfigStore
	viper *viper.Viper
}

// New wraps base with the environment overlay.
func New(base driven.ConfigStore) *Overlay {
	v := viper.New()
	v.SetEnvPrefix(Prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &Overlay{base: base, viper: v}
}

// BindFlag makes a changed flag override key. Unchanged flags are ignored
// so their defaults never mask persisted values.
func (o *Overlay) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil || !flag.Changed {
		return nil
	}
	return o.viper.BindPFlag(key, flag)
}

func (o *Overlay) overridden(key string) bool {
	return o.viper.Get(key) != nil
}

// Get retrieves a configuration value by key.
func (o *Overlay) Get(key string) (any, bool) {
	if v := o.viper.Get(key); v != nil {
		return v, true
	}
	return o.base.Get(key)
}

// GetString retrieves a string configuration value.
func (o *Overlay) GetString(key string) string {
	if o.overridden(key) {
		return o.viper.GetString(key)
	}
	return o.base.GetString(key)
}

// GetInt retrieves an integer configuration value.
func (o *Overlay) GetInt(key string) int {
	if o.overridden(key) {
		return o.viper.GetInt(key)
	}
	return o.base.GetInt(key)
}

// GetFloat retrieves a floating-point configuration value.
func (o *Overlay) GetFloat(key string) float64 {
	if o.overridden(key) {
		return o.viper.GetFloat64(key)
	}
	return o.base.GetFloat(key)
}

// GetBool retrieves a boolean configuration value.
func (o *Overlay) GetBool(key string) bool {
	if o.overridden(key) {
		return o.viper.GetBool(key)
	}
	return o.base.GetBool(key)
}

// GetStringSlice retrieves a string slice configuration value.
// Environment values are comma-separated.
func (o *Overlay) GetStringSlice(key string) []string {
	if !o.overridden(key) {
		return o.base.GetStringSlice(key)
	}
	raw, ok := o.viper.Get(key).(string)
	if !ok {
		return o.viper.GetStringSlice(key)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Set stores a value in the underlying store.
func (o *Overlay) Set(key string, value any) error {
	return o.base.Set(key, value)
}

// Save persists the underlying store.
func (o *Overlay) Save() error {
	return o.base.Save()
}

// Load reloads the underlying store.
func (o *Overlay) Load() error {
	return o.base.Load()
}

// Path returns the underlying store's file path.
func (o *Overlay) Path() string {
	return o.base.Path()
}
