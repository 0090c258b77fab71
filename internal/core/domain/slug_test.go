package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSlugify tests title slugs
func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Physics Basics":               "physics-basics",
		"  Physics   Basics  ":         "physics-basics",
		"The C++ Programming Language": "the-c-programming-language",
		"Gödel, Escher, Bach":          "gödel-escher-bach",
		"already-slugged":              "already-slugged",
		"snake_case_title":             "snake_case_title",
		"!!!":                          "untitled",
		"":                             "untitled",
	}

	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}
