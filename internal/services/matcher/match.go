// Package matcher evaluates ignore rules for files and folders.
package matcher

import "github.com/fgeck/backuprat/internal/models"

// Match reports whether candidate is matched by p. Regex rules search the whole
// candidate without implicit anchors.
func Match(p models.Pattern, candidate string) bool {
	if p.Kind() == models.RegexPattern {
		return p.Regexp().MatchString(candidate)
	}
	return p.String() == candidate
}
