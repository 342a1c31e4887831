package google

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	calendar "google.golang.org/api/calendar/v3"
)

// CalendarScopes are the OAuth scopes the server requests. Changing this
// list changes ScopeHash and forces re-authorization on the next start.
var CalendarScopes = []string{
	calendar.CalendarScope,
}

// ScopeHash returns a stable digest of a scope set. Order and duplicates do
// not affect the result.
func ScopeHash(scopes []string) string {
	seen := make(map[string]bool, len(scopes))
	unique := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		unique = append(unique, s)
	}
	sort.Strings(unique)

	sum := sha256.Sum256([]byte(strings.Join(unique, " ")))
	return hex.EncodeToString(sum[:])
}
