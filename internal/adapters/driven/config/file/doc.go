// Package file keeps user-editable state on disk: config.toml for
// settings and a prompts directory holding LLM prompt overrides.
package file
