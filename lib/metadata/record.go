// Package metadata defines the canonical record model shared by every
// content source, the adapter contract a source implements, and the
// aggregator that resolves references across the registered sources.
package metadata

import "time"

// Record is the normalized output of a successful detail fetch.
//
// scalar fields are pointers so "never extracted" stays distinguishable
// from "extracted and empty". Link is the stable identity key: feeding
// it back through the adapter that produced the record must resolve to
// the same record.
type Record struct {
	Link string

	Title     *string
	Maker     *string
	Series    *string
	GameGenre *string
	AgeRating *string

	Genres          []string
	Categories      []string
	Illustrators    []string
	ScenarioWriters []string
	VoiceActors     []string
	MusicCreators   []string

	CoverUrl         *string
	IconUrl          *string
	PreviewImageUrls []string

	DescriptionHtml *string

	DateReleased *time.Time
	DateUpdated  *time.Time

	// normalized to the 0.0-5.0 scale regardless of how the source
	// publishes it.
	Rating *float64

	Adult *bool
}

// SearchCandidate is a lightweight discovery result. Href alone is
// sufficient to fetch the full record, without re-running discovery.
type SearchCandidate struct {
	Title string
	// source-local identifier, may be empty when the source's listing
	// only exposes an href
	Id   string
	Href string
}

func String(s string) *string     { return &s }
func Float(f float64) *float64    { return &f }
func Bool(b bool) *bool           { return &b }
func Date(t time.Time) *time.Time { return &t }
