package handoff

import (
	"regexp"
	"strings"
)

// Title constants. DefaultTitle names artifacts whose summarizer output
// carried no extractable title; ErrorTitle marks fallback documents
// written after a summarizer failure.
const (
	DefaultTitle = "session"
	ErrorTitle   = "error"

	slugMaxLength     = 50
	bareSlugMaxLength = 60
)

var (
	// \s before the value lets the title sit on the line after the
	// marker; the strip regex consumes through that value either way.
	titleMarkerRe = regexp.MustCompile(`(?i)SHORT_TITLE:\s*(.+)`)
	titleLineRe   = regexp.MustCompile(`(?i)SHORT_TITLE:\s*.+\n?`)
	bareSlugRe    = regexp.MustCompile(`^[a-z0-9-]+$`)
	bracketsRe    = regexp.MustCompile("[\\[\\]\"']")
	whitespaceRe  = regexp.MustCompile(`\s+`)
	nonSlugRe     = regexp.MustCompile(`[^a-z0-9-]`)
)

// ExtractShortTitle pulls the filename slug out of summarizer output.
// Preference order: a labeled SHORT_TITLE marker (slugified), a bare
// hyphenated slug on the first line, then DefaultTitle.
func ExtractShortTitle(content string) string {
	if m := titleMarkerRe.FindStringSubmatch(content); m != nil {
		if slug := Slugify(m[1]); slug != "" {
			return slug
		}
		return DefaultTitle
	}

	if first := firstLine(content); isBareSlug(first) {
		if len(first) > slugMaxLength {
			return first[:slugMaxLength]
		}
		return first
	}

	return DefaultTitle
}

// StripTitleLine removes the title marker line (or bare first-line slug)
// from the document body before it is persisted.
func StripTitleLine(content string) string {
	content = titleLineRe.ReplaceAllString(content, "")

	trimmed := strings.TrimSpace(content)
	if first, rest, found := strings.Cut(trimmed, "\n"); found {
		if isBareSlug(strings.TrimSpace(first)) {
			return strings.TrimSpace(rest)
		}
	} else if isBareSlug(trimmed) {
		return ""
	}

	return trimmed
}

// Slugify lowercases, strips bracket and quote characters, collapses
// whitespace to hyphens, drops everything outside [a-z0-9-], and caps
// the result at 50 characters.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = bracketsRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, "-")
	s = nonSlugRe.ReplaceAllString(s, "")
	if len(s) > slugMaxLength {
		s = s[:slugMaxLength]
	}
	return strings.Trim(s, "-")
}

// isBareSlug reports whether a line already is a usable hyphenated slug.
func isBareSlug(line string) bool {
	return line != "" && len(line) < bareSlugMaxLength &&
		strings.Contains(line, "-") && bareSlugRe.MatchString(line)
}

func firstLine(content string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	return strings.TrimSpace(first)
}
