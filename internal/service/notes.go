package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNotesLength is the longest note accepted, counted in characters.
const MaxNotesLength = 200

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	jsSchemePattern   = regexp.MustCompile(`(?i)javascript:`)
	eventAttrPattern  = regexp.MustCompile(`(?i)on\w+\s*=`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeNotes validates and cleans a free-text note.  Notes longer
// than MaxNotesLength are rejected before any cleaning.  Markup-like
// content is stripped and whitespace runs are collapsed.  A note that
// is empty after cleaning becomes nil.
func SanitizeNotes(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	if n := utf8.RuneCountInString(*raw); n > MaxNotesLength {
		return nil, validationf("notes must be at most %d characters, got %d", MaxNotesLength, n)
	}
	s := strings.TrimSpace(*raw)
	s = tagPattern.ReplaceAllString(s, "")
	s = jsSchemePattern.ReplaceAllString(s, "")
	s = eventAttrPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return &s, nil
}
