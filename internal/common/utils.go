package common

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// cityCutset is stripped from both ends of an extracted city reference.
const cityCutset = "?!., \t\r\n"

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// After returns the part of s following the first occurrence of sep.
func After(s, sep string) (string, bool) {
	_, rest, found := strings.Cut(s, sep)
	return rest, found
}

// TrimCity strips surrounding punctuation and whitespace from a captured city.
func TrimCity(s string) string {
	return strings.Trim(s, cityCutset)
}

// NormalizeCity is the canonical form used for cache keys and session references.
func NormalizeCity(s string) string {
	return strings.ToLower(TrimCity(s))
}

// Title renders a normalized city name for display ("new york" -> "New York").
func Title(s string) string {
	// Casers keep state between calls and cannot be shared across goroutines.
	return cases.Title(language.English).String(s)
}
