package models

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// RegexPrefix marks a raw ignore rule as a regular expression.
const RegexPrefix = "r#"

// PatternKind tells how a Pattern is evaluated.
type PatternKind int

const (
	// LiteralPattern matches by exact string equality.
	LiteralPattern PatternKind = iota
	// RegexPattern matches when the expression finds a match anywhere in the candidate.
	RegexPattern
)

func (k PatternKind) String() string {
	if k == RegexPattern {
		return "regex"
	}
	return "literal"
}

// Pattern is a compiled ignore rule. Regex rules are compiled once, when the config loads.
type Pattern struct {
	raw  string
	kind PatternKind
	re   *regexp.Regexp
}

// CompilePattern turns a raw config string into a Pattern.
func CompilePattern(raw string) (Pattern, error) {
	if !strings.HasPrefix(raw, RegexPrefix) {
		return Pattern{raw: raw, kind: LiteralPattern}, nil
	}

	re, err := regexp.Compile(strings.TrimPrefix(raw, RegexPrefix))
	if err != nil {
		return Pattern{}, errors.Mark(errors.Wrapf(err, "compiling %q", raw), ErrInvalidPattern)
	}
	return Pattern{raw: raw, kind: RegexPattern, re: re}, nil
}

// MustCompilePattern is like CompilePattern but panics on error. Intended for tests.
func MustCompilePattern(raw string) Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// CompilePatterns compiles every raw rule, stopping at the first invalid one.
func CompilePatterns(raws []string) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(raws))
	for _, raw := range raws {
		p, err := CompilePattern(raw)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// Kind returns how the pattern is evaluated.
func (p Pattern) Kind() PatternKind { return p.kind }

// Regexp returns the compiled expression of a regex rule, nil for literals.
func (p Pattern) Regexp() *regexp.Regexp { return p.re }

// String returns the raw rule as written in the config, including the regex prefix.
func (p Pattern) String() string { return p.raw }

// MarshalText keeps the raw form when a config is dumped.
func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.raw), nil
}
