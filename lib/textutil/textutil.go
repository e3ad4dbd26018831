package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// characters trimmed off scraped text. sources pad label/value cells
// with full-width spaces as often as ascii ones.
const trimCutset = " \t\n\r 　"

// Clean trims ascii and full-width whitespace off scraped text.
func Clean(s string) string {
	return strings.Trim(s, trimCutset)
}

// CleanLabel normalizes a label cell for table lookup: trims whitespace
// and strips the trailing full-width colon the catalog layouts render.
func CleanLabel(s string) string {
	s = Clean(s)
	s = strings.TrimSuffix(s, "：")
	s = strings.TrimSuffix(s, ":")
	return Clean(s)
}

// SplitList splits a delimited text run on the ideographic comma used by
// the catalog layouts, trimming each segment and dropping empty ones.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "、") {
		part = Clean(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}
