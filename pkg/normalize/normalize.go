// Copyright (c) 2026 Hemeroteca. All rights reserved.

// Package normalize folds accented text for case- and diacritic-insensitive
// comparison.
//
// # Usage
//
// Catalog facet values arrive in mixed Spanish forms ("Publicación",
// "PUBLICACION", "publicacion"). Folding them to a canonical ASCII lowercase
// form lets filters and distinct-value endpoints treat them as equal.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold converts a Unicode string to a canonical comparison form.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFD (decomposes accented chars: é → e + combining acute).
// 2. Removes combining marks (accents).
// 3. Converts to lowercase.
// 4. Collapses interior whitespace runs and trims the ends.
func Fold(s string) string {
	// 1. Normalize and remove accents
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, _ := transform.String(t, s)

	// 2. Lowercase
	result = strings.ToLower(result)

	// 3. Collapse whitespace
	result = strings.Join(strings.Fields(result), " ")

	return result
}

// Equal reports whether two strings are equal after folding.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// isMn reports whether the rune is a non-spacing combining mark (Unicode Mn).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
