package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/librarian/internal/adapters/driven/config/values"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigFile is the settings file name inside the data directory.
const ConfigFile = "config.toml"

// ConfigStore persists settings to config.toml. Keys use dot notation
// ("llm.provider") in memory and nested tables on disk. Every Set writes
// the file.
type ConfigStore struct {
	*values.Map

	writeMu  sync.Mutex
	filePath string
}

// NewConfigStore opens dir/config.toml, creating dir if needed. An empty
// dir means ~/.librarian. A missing file is an empty configuration; a
// malformed one is an error.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".librarian")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	s := &ConfigStore{Map: values.New(), filePath: filepath.Join(dir, ConfigFile)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ConfigStore) Set(key string, value any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.Map.Set(key, value)
	return s.write()
}

func (s *ConfigStore) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.write()
}

// write replaces the file through a temp file so readers never see a
// partial document. The file may hold API keys, so it is owner-only.
func (s *ConfigStore) write() error {
	data, err := toml.Marshal(nestMap(s.Snapshot()))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.Replace(nil)
		return nil
	}
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.Replace(flattenMap(doc, ""))
	return nil
}

func (s *ConfigStore) Path() string {
	return s.filePath
}

// flattenMap turns nested tables into dot-notation keys:
// {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		if prefix != "" {
			k = prefix + "." + k
		}
		table, ok := v.(map[string]any)
		if !ok {
			out[k] = v
			continue
		}
		for fk, fv := range flattenMap(table, k) {
			out[fk] = fv
		}
	}
	return out
}

// nestMap reverses flattenMap. When a key is both a value and the prefix
// of other keys ("a" and "a.b"), the scalar keeps its place and the
// longer key is written with its dotted name.
func nestMap(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	// Parents sort before children.
	slices.Sort(keys)

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		if table := descend(root, parts[:len(parts)-1]); table != nil {
			table[parts[len(parts)-1]] = flat[key]
		} else {
			root[key] = flat[key]
		}
	}
	return root
}

// descend walks path from root, creating tables on the way. It returns
// nil when a scalar is in the way.
func descend(root map[string]any, path []string) map[string]any {
	node := root
	for _, part := range path {
		child, exists := node[part]
		if !exists {
			next := make(map[string]any)
			node[part] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return nil
		}
		node = next
	}
	return node
}
