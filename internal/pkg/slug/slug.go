// Package slug turns story titles into URL-safe identifiers.
package slug

import (
	"regexp"
	"strconv"
	"strings"

	gosimple "github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fallback is used when a title has no transliterable characters.
const Fallback = "story"

var (
	// Punctuation dropped outright instead of becoming a separator.
	removed = regexp.MustCompile(`[*+~.()'"!:@/?]`)
	dashes  = regexp.MustCompile(`-{2,}`)
	turkish = cases.Lower(language.Turkish)
)

// Make derives the base slug for a title. The result matches [a-z0-9-]+.
func Make(title string) string {
	s := turkish.String(strings.TrimSpace(title))
	s = removed.ReplaceAllString(s, "")
	s = gosimple.MakeLang(s, "tr")
	s = strings.ReplaceAll(s, "_", "-")
	s = dashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// Candidate returns the n-th candidate for base: base itself for n == 0, base-n otherwise.
func Candidate(base string, n int) string {
	if n <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// NextFree returns the smallest candidate of base not present in taken.
func NextFree(base string, taken []string) string {
	used := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		used[t] = struct{}{}
	}
	for n := 0; ; n++ {
		c := Candidate(base, n)
		if _, ok := used[c]; !ok {
			return c
		}
	}
}

// Pattern is the anchored regular expression matching every candidate of base.
func Pattern(base string) string {
	return "^" + regexp.QuoteMeta(base) + `(-[0-9]+)?$`
}
