package store

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// cleanText trims s and checks its length in runes.
func cleanText(s string, lo, hi int) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < lo || n > hi {
		return "", ErrInvalidText
	}
	return s, nil
}
