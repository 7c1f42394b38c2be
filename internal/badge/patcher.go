// Package badge locates and rewrites the star count embedded in shields.io
// badge URLs. A patch replaces exactly one matched span; anything else is an
// error so a malformed or duplicated badge never gets silently corrupted.
package badge

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	// ErrPatternNotFound is returned when the badge pattern matches nothing.
	ErrPatternNotFound = errors.New("badge pattern not found")
	// ErrAmbiguousPatch is returned when the badge pattern matches more than once.
	ErrAmbiguousPatch = errors.New("badge pattern matched more than once")
)

// countGroup is the named capture group marking the span to replace.
const countGroup = "count"

// Target describes a single badge substitution point inside a file.
//
// The pattern must contain a named capture group (?P<count>...) around the
// digits of the star count. Everything outside that group is left untouched.
type Target struct {
	Path string
	Year int

	pattern *regexp.Regexp
}

// NewTarget compiles the pattern and validates it. An empty pattern falls
// back to DefaultPattern for the given year.
func NewTarget(path string, year int, pattern string) (Target, error) {
	if path == "" {
		return Target{}, fmt.Errorf("target file path cannot be empty")
	}
	if pattern == "" {
		pattern = DefaultPattern(year)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return Target{}, fmt.Errorf("invalid badge pattern: %w", err)
	}
	if re.SubexpIndex(countGroup) < 0 {
		return Target{}, fmt.Errorf("badge pattern must contain a (?P<%s>...) group", countGroup)
	}

	return Target{Path: path, Year: year, pattern: re}, nil
}

// DefaultPattern returns the pattern for a shields.io stars badge of the
// form "stars%20<year>⭐-41-yellow". The star emoji may carry the optional
// variation selector (U+FE0F) either as the raw character or percent-encoded
// (%EF%B8%8F), depending on how the badge URL was authored.
func DefaultPattern(year int) string {
	return fmt.Sprintf(`stars%%20%d⭐(?:\x{FE0F}|%%EF%%B8%%8F)?-(?P<%s>[0-9]+)-yellow`, year, countGroup)
}

// Apply replaces the matched star count in content with stars and returns
// the patched content. The input slice is never modified.
//
// Applying the same target and star count twice yields the same bytes as
// applying it once.
func (t Target) Apply(content []byte, stars int) ([]byte, error) {
	matches := t.pattern.FindAllSubmatchIndex(content, -1)
	switch len(matches) {
	case 1:
	case 0:
		return nil, fmt.Errorf("%w in %s", ErrPatternNotFound, t.Path)
	default:
		return nil, fmt.Errorf("%w: %d matches in %s", ErrAmbiguousPatch, len(matches), t.Path)
	}

	idx := t.pattern.SubexpIndex(countGroup)
	start, end := matches[0][2*idx], matches[0][2*idx+1]
	if start < 0 {
		// The count group sat inside an unmatched alternation branch.
		return nil, fmt.Errorf("%w in %s", ErrPatternNotFound, t.Path)
	}

	out := make([]byte, 0, len(content)+8)
	out = append(out, content[:start]...)
	out = append(out, strconv.Itoa(stars)...)
	out = append(out, content[end:]...)
	return out, nil
}
