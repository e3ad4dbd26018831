// Package localetext normalizes the per-locale renderings of dates and
// list values the supported storefronts produce.
package localetext

import (
	"time"

	"gamemeta-backend/lib/textutil"
)

// every date layout a locale-selectable detail page is known to render.
// parsing is exact-match per layout, no fuzzy fallback.
var dateLayouts = []string{
	// en_US
	"Jan/02/2006",
	// ja_JP, zh_CN, zh_TW
	"2006年01月02日",
	// ko_KR
	"2006년 01월 02일",
	// storefront numeric rendering
	"2006/01/02",
}

// ParseDate parses the trimmed value of a date cell. returns false when
// the value matches no registered layout or is the "not applicable"
// dash-run sentinel.
func ParseDate(s string) (time.Time, bool) {
	s = textutil.Clean(s)
	if s == "" || IsAbsent(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseLeadingDate parses a date off the front of a value that carries a
// trailing free-text annotation, like the "update information" cells.
// only the fixed-width date prefix is read, the remainder is discarded.
func ParseLeadingDate(s string) (time.Time, bool) {
	s = textutil.Clean(s)
	if s == "" || IsAbsent(s) {
		return time.Time{}, false
	}
	runes := []rune(s)
	for _, layout := range dateLayouts {
		width := len([]rune(layout))
		if len(runes) < width {
			continue
		}
		t, err := time.Parse(layout, string(runes[:width]))
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsAbsent reports whether a value is the dash-run sentinel the
// storefront layouts render for "not applicable" fields.
func IsAbsent(s string) bool {
	s = textutil.Clean(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '-' && r != 'ー' && r != '−' {
			return false
		}
	}
	return true
}
