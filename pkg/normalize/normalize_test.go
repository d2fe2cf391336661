// Copyright (c) 2026 Hemeroteca. All rights reserved.

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain ascii lowered", input: "Historia", expected: "historia"},
		{name: "spanish accents removed", input: "Publicación Científica", expected: "publicacion cientifica"},
		{name: "enye folded", input: "Español", expected: "espanol"},
		{name: "uppercase accents", input: "EDICIÓN", expected: "edicion"},
		{name: "whitespace collapsed", input: "  Ciencias   Sociales ", expected: "ciencias sociales"},
		{name: "empty string", input: "", expected: ""},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, Fold(testCase.input))
		})
	}
}

func TestEqual(t *testing.T) {
	// 1. Same value in different Spanish spellings must compare equal
	assert.True(t, Equal("Publicación", "PUBLICACION"))
	assert.True(t, Equal("Periodicidad  Mensual", "periodicidad mensual"))

	// 2. Genuinely different values must not
	assert.False(t, Equal("Impreso", "Digital"))
}
