package domain

import "strings"

// NullISBN is the placeholder ISBN used for books without one.
// It never identifies a real book.
const NullISBN = "0000000000000"

// NormaliseISBN strips hyphens and spaces and upper-cases an ISBN-10 check digit.
func NormaliseISBN(isbn string) string {
	r := strings.NewReplacer("-", "", " ", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(isbn)))
}

// IsNullISBN returns true for empty or all-zero ISBNs.
func IsNullISBN(isbn string) bool {
	n := NormaliseISBN(isbn)
	return n == "" || strings.Trim(n, "0") == ""
}
