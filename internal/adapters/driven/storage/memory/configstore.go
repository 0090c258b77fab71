package memory

import (
	"github.com/custodia-labs/librarian/internal/adapters/driven/config/values"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings for the life of the process. Save and Load
// do nothing.
type ConfigStore struct {
	*values.Map
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{Map: values.New()}
}

func (s *ConfigStore) Set(key string, value any) error {
	s.Map.Set(key, value)
	return nil
}

func (s *ConfigStore) Save() error { return nil }

func (s *ConfigStore) Load() error { return nil }

func (s *ConfigStore) Path() string { return ":memory:" }
