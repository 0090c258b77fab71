package domain

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// classificationPattern is three digits with an optional decimal subdivision.
var classificationPattern = regexp.MustCompile(`^[0-9]{3}(\.[0-9]+)?$`)

// deweyClasses names the ten main Dewey Decimal classes.
var deweyClasses = [10]string{
	"Computer Science, Information & General Works",
	"Philosophy & Psychology",
	"Religion",
	"Social Sciences",
	"Language",
	"Science",
	"Technology",
	"Arts & Recreation",
	"Literature",
	"History & Geography",
}

// NormaliseClassification validates and normalises a classification code.
// Surrounding whitespace and insignificant trailing zeros or dots in the
// subdivision are removed, so "500.10" and "500.1" are the same code.
func NormaliseClassification(code string) (string, error) {
	code = strings.TrimSpace(code)
	code = strings.TrimSuffix(code, ".")
	if !classificationPattern.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidClassification, code)
	}
	if i := strings.IndexByte(code, '.'); i >= 0 {
		code = strings.TrimRight(code, "0")
		code = strings.TrimSuffix(code, ".")
	}
	return code, nil
}

// IsValidClassification returns true if the code matches the grammar.
func IsValidClassification(code string) bool {
	_, err := NormaliseClassification(code)
	return err == nil
}

// ClassificationClass returns the directory name of the main class
// containing code, e.g. "500-599 Science" for "500.1".
// The code must already be normalised.
func ClassificationClass(code string) string {
	d := int(code[0] - '0')
	return fmt.Sprintf("%d00-%d99 %s", d, d, deweyClasses[d])
}

// ClassificationDir returns the library-relative directory for a
// normalised code, e.g. "500-599 Science/500.1".
func ClassificationDir(code string) string {
	return path.Join(ClassificationClass(code), code)
}
