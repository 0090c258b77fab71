package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

func validMetadata() domain.BookMetadata {
	return domain.BookMetadata{
		Title:              "Physics Basics",
		Authors:            []string{"A. Author"},
		ClassificationCode: "500.1",
	}
}

func TestStruct_ValidMetadata(t *testing.T) {
	meta := validMetadata()
	meta.ISBN = "9780306406157"
	meta.Year = 1999
	meta.URL = "https://example.com/physics"

	assert.NoError(t, Struct(meta))
}

func TestStruct_InvalidMetadata(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*domain.BookMetadata)
		field string
	}{
		{"missing title", func(m *domain.BookMetadata) { m.Title = "" }, "title"},
		{"no authors", func(m *domain.BookMetadata) { m.Authors = nil }, "authors"},
		{"blank author", func(m *domain.BookMetadata) { m.Authors = []string{""} }, "authors[0]"},
		{"bad code", func(m *domain.BookMetadata) { m.ClassificationCode = "50.1" }, "classification_code"},
		{"bad isbn", func(m *domain.BookMetadata) { m.ISBN = "9780306406158" }, "isbn"},
		{"bad year", func(m *domain.BookMetadata) { m.Year = 12345 }, "year"},
		{"bad url", func(m *domain.BookMetadata) { m.URL = "not a url" }, "url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := validMetadata()
			tt.mut(&meta)

			err := Struct(meta)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)

			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestStruct_ClassificationMessage(t *testing.T) {
	meta := validMetadata()
	meta.ClassificationCode = "abc"

	err := Struct(meta)

	assert.ErrorContains(t, err, "classification_code must be a classification code")
}

func TestVar(t *testing.T) {
	v := New()

	assert.NoError(t, v.Var("B", "choice"))
	assert.ErrorIs(t, v.Var("E", "choice"), domain.ErrInvalidInput)
	assert.NoError(t, v.Var("005.133", "classification"))
}

func TestGlobal_IsShared(t *testing.T) {
	assert.Same(t, Global(), Global())
}

func TestStruct_Question(t *testing.T) {
	q := domain.Question{
		Content:       "Is light a wave?",
		ChoiceA:       "True",
		ChoiceB:       "False",
		CorrectChoice: "A",
	}
	assert.NoError(t, Struct(q))

	q.CorrectChoice = "E"
	err := Struct(q)
	assert.ErrorContains(t, err, "correct_choice must be one of A, B, C or D")

	q.CorrectChoice = "A"
	q.ChoiceB = ""
	assert.ErrorIs(t, Struct(q), domain.ErrInvalidInput)
}
