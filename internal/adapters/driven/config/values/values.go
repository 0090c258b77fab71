// Package values holds flat dot-keyed settings and converts them on read.
// Both the TOML file store and the in-memory store keep their data here.
package values

import (
	"maps"
	"sync"

	"github.com/spf13/cast"
)

// Map is safe for concurrent use. Typed getters convert loosely, so an
// int64 decoded from TOML reads as an int and "7" reads as 7. Values that
// cannot be converted read as the zero value.
type Map struct {
	mu sync.RWMutex
	m  map[string]any
}

func New() *Map {
	return &Map{m: make(map[string]any)}
}

func (v *Map) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.m[key]
	return val, ok
}

func (v *Map) GetString(key string) string {
	val, _ := v.Get(key)
	return cast.ToString(val)
}

func (v *Map) GetInt(key string) int {
	val, _ := v.Get(key)
	return cast.ToInt(val)
}

func (v *Map) GetFloat(key string) float64 {
	val, _ := v.Get(key)
	return cast.ToFloat64(val)
}

func (v *Map) GetBool(key string) bool {
	val, _ := v.Get(key)
	return cast.ToBool(val)
}

// GetStringSlice returns nil for missing keys. A plain string is split on
// whitespace.
func (v *Map) GetStringSlice(key string) []string {
	val, ok := v.Get(key)
	if !ok {
		return nil
	}
	out, err := cast.ToStringSliceE(val)
	if err != nil {
		return nil
	}
	return out
}

func (v *Map) Set(key string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m[key] = value
}

// Snapshot copies the current values.
func (v *Map) Snapshot() map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return maps.Clone(v.m)
}

// Replace swaps in a new set of values.
func (v *Map) Replace(m map[string]any) {
	if m == nil {
		m = make(map[string]any)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m = m
}
