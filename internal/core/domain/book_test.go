package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

// TestBookStatus tests validity and searchability
func TestBookStatus(t *testing.T) {
	assert.True(t, BookStatusActive.IsValid())
	assert.True(t, BookStatusDegraded.IsValid())
	assert.True(t, BookStatusRemoved.IsValid())
	assert.False(t, BookStatus("archived").IsValid())

	assert.True(t, BookStatusActive.IsSearchable())
	assert.True(t, BookStatusDegraded.IsSearchable())
	assert.False(t, BookStatusRemoved.IsSearchable())
}

// TestBookEntry_FilePath tests the stored file location
func TestBookEntry_FilePath(t *testing.T) {
	b := BookEntry{CanonicalPath: "500-599 Science/500.1/physics-basics", Filename: "Physics.PDF"}
	assert.Equal(t, ".pdf", b.Extension())
	assert.Equal(t, "500-599 Science/500.1/physics-basics.pdf", b.FilePath())

	b.FileType = "md"
	assert.Equal(t, "500-599 Science/500.1/physics-basics.md", b.FilePath())
}

// TestBookEntry_PrimaryAuthor tests author access
func TestBookEntry_PrimaryAuthor(t *testing.T) {
	assert.Equal(t, "", (&BookEntry{}).PrimaryAuthor())
	assert.Equal(t, "Feynman", (&BookEntry{Authors: []string{"Feynman", "Leighton"}}).PrimaryAuthor())
}

// TestBookPatch_Apply tests that only set fields change
func TestBookPatch_Apply(t *testing.T) {
	year := 1963
	entry := BookEntry{Title: "Old", Authors: []string{"A"}, Publisher: "P", Notes: "keep"}

	BookPatch{Title: strPtr("New"), Year: &year, Authors: []string{"B", "C"}}.Apply(&entry)

	assert.Equal(t, "New", entry.Title)
	assert.Equal(t, []string{"B", "C"}, entry.Authors)
	assert.Equal(t, 1963, entry.Year)
	assert.Equal(t, "P", entry.Publisher)
	assert.Equal(t, "keep", entry.Notes)
}

// TestBookPatch_MovesFile tests path-affecting edits
func TestBookPatch_MovesFile(t *testing.T) {
	current := &BookEntry{Title: "Physics Basics", ClassificationCode: "500.1"}

	assert.False(t, BookPatch{}.MovesFile(current))
	assert.False(t, BookPatch{ClassificationCode: strPtr("500.1")}.MovesFile(current))
	assert.True(t, BookPatch{ClassificationCode: strPtr("530")}.MovesFile(current))
	assert.False(t, BookPatch{Title: strPtr("physics  basics!")}.MovesFile(current))
	assert.True(t, BookPatch{Title: strPtr("Advanced Physics")}.MovesFile(current))
	assert.False(t, BookPatch{Notes: strPtr("n")}.MovesFile(current))
}

// TestBookPatch_IsEmpty tests empty patch detection
func TestBookPatch_IsEmpty(t *testing.T) {
	assert.True(t, BookPatch{}.IsEmpty())
	assert.False(t, BookPatch{Notes: strPtr("")}.IsEmpty())
}

// TestBookFilter_Matches tests status and prefix filtering
func TestBookFilter_Matches(t *testing.T) {
	active := &BookEntry{Status: BookStatusActive, ClassificationCode: "500.1"}
	degraded := &BookEntry{Status: BookStatusDegraded, ClassificationCode: "600"}
	removed := &BookEntry{Status: BookStatusRemoved, ClassificationCode: "500"}

	all := BookFilter{}
	assert.True(t, all.Matches(active))
	assert.True(t, all.Matches(degraded))
	assert.False(t, all.Matches(removed))

	onlyActive := BookFilter{Statuses: []BookStatus{BookStatusActive}}
	assert.True(t, onlyActive.Matches(active))
	assert.False(t, onlyActive.Matches(degraded))

	science := BookFilter{ClassificationPrefix: "5"}
	assert.True(t, science.Matches(active))
	assert.False(t, science.Matches(degraded))
}
