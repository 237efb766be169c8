package token

import (
	"sort"
	"strings"
)

// Subject extracts the subject identifier from a claim bundle.
func Subject(claims map[string]any) string {
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}

// Audience derives the token audience from the requested scopes. Scopes are
// sorted so that the same scope set always yields the same audience string.
func Audience(scopes []string) string {
	sorted := make([]string, len(scopes))
	copy(sorted, scopes)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}
