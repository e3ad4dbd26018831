package metadata

import (
	"context"
	"errors"
)

// ErrNotFound means the reference was well-formed but the source
// reports the content as missing or removed. this is a normal outcome,
// not a transport failure: transport errors (timeouts, cancellation,
// connection resets) pass through unwrapped so the caller can tell
// "does not exist" apart from "try again".
var ErrNotFound = errors.New("no record found for reference")

// ErrUnrecognizedReference means no registered adapter claims the
// reference and brute-force fetching resolved nothing either.
var ErrUnrecognizedReference = errors.New("reference not recognized by any source")

// Adapter is the capability contract a content source implements.
type Adapter interface {
	Name() string

	// Search runs primary discovery (and whatever fallback strategy the
	// source defines) for a free-text query. zero candidates is a
	// successful empty result, not an error.
	Search(ctx context.Context, query string) ([]SearchCandidate, error)

	// Fetch resolves an href into a canonical record. returns
	// ErrNotFound when the source reports the content missing.
	Fetch(ctx context.Context, href string) (*Record, error)

	// ExtractId parses source ownership out of an href without any IO.
	// it is pure, side-effect free, and returns "" (never an error) for
	// href shapes it does not recognize. all url shapes pointing at the
	// same logical entity normalize to the same id.
	ExtractId(href string) string
}
