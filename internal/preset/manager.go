// Package preset holds the named OAuth scope sets each binary offers at login.
package preset

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// ScopePrefix is the common prefix of Google OAuth scope URLs
	ScopePrefix = "https://www.googleapis.com/auth/"

	// Default is used when no preset is named or the named one is unknown
	Default = "edit"

	Readonly = "readonly"
	Edit     = "edit"
	Publish  = "publish"
)

var (
	// Explicit scope lists may be separated by commas, whitespace or both
	scopeSeparator = regexp.MustCompile(`[\s,]+`)
)

// Set maps preset names to their scopes. Scope order is significant.
type Set map[string][]string

// Resolve picks the scopes for a login. A non-blank explicit list wins over
// the named preset; an unknown or empty name falls back to Default. Scopes are
// neither reordered nor deduplicated.
func (s Set) Resolve(explicit, name string) []string {
	if strings.TrimSpace(explicit) != "" {
		return SplitScopes(explicit)
	}

	scopes, ok := s[strings.TrimSpace(name)]
	if !ok {
		scopes = s[Default]
	}
	return append([]string(nil), scopes...)
}

// Names returns the preset names in sorted order
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SplitScopes splits an explicit scope list, dropping empty entries
func SplitScopes(list string) []string {
	scopes := []string{}
	for _, scope := range scopeSeparator.Split(list, -1) {
		if scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

// ShortNames strips the common Google scope prefix for display
func ShortNames(scopes []string) []string {
	short := make([]string, len(scopes))
	for i, scope := range scopes {
		short[i] = strings.Replace(scope, ScopePrefix, "", 1)
	}
	return short
}
