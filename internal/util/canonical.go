// Package util provides common utility functions.
package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CanonicalTagName folds user input into the canonical tag identity key.
// The canonical form is what makes tag identity case-insensitive: two names
// that fold to the same canonical string are the same tag. The display name
// keeps whatever casing the first creator used.
//
// Folding rules:
//  1. NFKC unicode normalization (composed forms, fullwidth → ASCII)
//  2. Drop control characters (null bytes included)
//  3. Collapse whitespace runs to a single space and trim
//  4. Lowercase
//
// Examples:
//
//	"Python"        → "python"
//	"  C++  "       → "c++"
//	"Slow   Burn"   → "slow burn"
//	"ＧＯ"           → "go"
//
// The fold is a plain string transform; no pattern is ever built from the
// input, so hostile names cannot smuggle matching metacharacters anywhere.
func CanonicalTagName(input string) string {
	// Case fold on top of the display cleanup.
	return strings.ToLower(DisplayTagName(input))
}

// DisplayTagName cleans a tag name for storage while preserving its casing.
// The first question to use a new tag decides the casing everyone sees;
// this applies the same NFKC, control-strip, and whitespace rules as
// CanonicalTagName without the final lowercase.
func DisplayTagName(input string) string {
	// 1. Unify unicode representations first so visually identical names
	// collide on the same key.
	s := norm.NFKC.String(input)

	// 2. Strip control characters. Null bytes show up in pasted input and
	// break both JSON encoding and store keys.
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	// 3. Collapse internal whitespace, trim the ends.
	return strings.Join(strings.Fields(s), " ")
}
