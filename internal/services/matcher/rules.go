package matcher

import (
	"path"
	"path/filepath"

	"github.com/fgeck/backuprat/internal/models"
)

// Rules groups the ignore patterns of one target.
type Rules struct {
	Files   []models.Pattern
	Folders []models.Pattern
}

// NewRules builds Rules from already compiled patterns.
func NewRules(files, folders []models.Pattern) Rules {
	return Rules{Files: files, Folders: folders}
}

// ForTarget returns the ignore rules of target.
func ForTarget(target models.Target) Rules {
	return NewRules(target.IgnoreFiles, target.IgnoreFolders)
}

// IgnoreFolder reports whether the folder at rel (relative to the source root) is excluded.
// Callers test folders shallowest first and stop descending on the first match.
func (r Rules) IgnoreFolder(rel string) bool {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return false
	}
	return anyMatch(r.Folders, rel)
}

// IgnoreFile reports whether a file with the given base name is excluded.
func (r Rules) IgnoreFile(name string) bool {
	return anyMatch(r.Files, path.Base(filepath.ToSlash(name)))
}

// IgnorePath reports whether a file at rel is excluded, either through one of its
// ancestor folders or through its own name. Folder rules are checked first.
func (r Rules) IgnorePath(rel string) bool {
	rel = filepath.ToSlash(rel)
	dir := path.Dir(rel)
	if dir != "." {
		for _, ancestor := range ancestors(dir) {
			if r.IgnoreFolder(ancestor) {
				return true
			}
		}
	}
	return r.IgnoreFile(rel)
}

// Empty reports whether the rules exclude nothing.
func (r Rules) Empty() bool {
	return len(r.Files) == 0 && len(r.Folders) == 0
}

func anyMatch(patterns []models.Pattern, candidate string) bool {
	for _, p := range patterns {
		if Match(p, candidate) {
			return true
		}
	}
	return false
}

// ancestors returns dir and each of its parents, shallowest first.
// "a/b/c" yields ["a", "a/b", "a/b/c"].
func ancestors(dir string) []string {
	var out []string
	for d := dir; d != "." && d != "/" && d != ""; d = path.Dir(d) {
		out = append([]string{d}, out...)
	}
	return out
}
