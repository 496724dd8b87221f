package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// stripMarks removes combining marks after NFD decomposition, so accented
// names fold to their ASCII base form ("João" → "JOAO"). The transcripts are
// frequently Brazilian Portuguese; providers index the unaccented form.
var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// SubjectKey canonicalizes a person or company name so transcript facts and
// enrichment records correlate regardless of casing, accents, or spacing.
func SubjectKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if folded, _, err := transform.String(stripMarks, name); err == nil {
		name = folded
	}
	name = strings.ToLower(name)
	name = multiSpaceRe.ReplaceAllString(name, " ")
	return name
}
