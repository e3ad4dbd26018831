// Package metadata is the resolution service: it sits on top of the
// source aggregator and adds query ranking, tag filtering and batch
// resolution on behalf of the cli.
package metadata

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"gamemeta-backend/lib/metadata"
	"gamemeta-backend/lib/textutil"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/metadata")

type Service struct {
	agg        *metadata.Aggregator
	tagFilters []*regexp.Regexp
}

type ServiceOptions struct {
	Aggregator *metadata.Aggregator
	// regular expressions matched against genre/category values; a
	// value matching any of them is dropped from resolved records
	TagFilters []string
}

func NewService(opts ServiceOptions) (Service, error) {
	var filters []*regexp.Regexp
	for _, raw := range opts.TagFilters {
		expr, err := regexp.Compile(raw)
		if err != nil {
			return Service{}, fmt.Errorf("invalid tag filter %q: %w", raw, err)
		}
		filters = append(filters, expr)
	}
	return Service{agg: opts.Aggregator, tagFilters: filters}, nil
}

func (s Service) Sources() []string {
	var names []string
	for _, ad := range s.agg.Adapters() {
		names = append(names, ad.Name())
	}
	return names
}

// RankedCandidate pairs a search candidate with its title similarity to
// the query, in [0, 1].
type RankedCandidate struct {
	metadata.SearchCandidate
	Source     string
	Similarity float64
}

// IsUrl reports whether the reference is a link rather than a free-text
// query.
func IsUrl(ref string) bool {
	link, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (link.Scheme == "http" || link.Scheme == "https") && link.Host != ""
}

// Resolve resolves a reference, url or free-text, into a single
// canonical record. free-text references are resolved in batch mode:
// the top candidate of the highest-priority source wins.
func (s Service) Resolve(ctx context.Context, ref string) (*metadata.Record, error) {
	ctx, span := tracer.Start(ctx, "metadata:Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("ref", ref))

	var record *metadata.Record
	var err error
	if IsUrl(ref) {
		record, err = s.agg.ResolveLink(ctx, ref)
	} else {
		record, err = s.agg.ResolveQuery(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	s.filterTags(record)
	return record, nil
}

// Fetch resolves a record from a named source directly, bypassing
// reference routing.
func (s Service) Fetch(ctx context.Context, source, href string) (*metadata.Record, error) {
	ctx, span := tracer.Start(ctx, "metadata:Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", source),
		attribute.String("href", href),
	)

	ad := s.agg.Adapter(source)
	if ad == nil {
		return nil, fmt.Errorf("unknown source %q", source)
	}

	record, err := ad.Fetch(ctx, href)
	if err != nil {
		return nil, err
	}
	s.filterTags(record)
	return record, nil
}

// Search collects candidates from one source, or all of them when
// source is empty, ranked by title similarity to the query. a failing
// source does not fail the whole search unless it was requested by
// name.
func (s Service) Search(ctx context.Context, source, query string) ([]RankedCandidate, error) {
	ctx, span := tracer.Start(ctx, "metadata:Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", source),
		attribute.String("query", query),
	)

	adapters := s.agg.Adapters()
	if source != "" {
		ad := s.agg.Adapter(source)
		if ad == nil {
			return nil, fmt.Errorf("unknown source %q", source)
		}
		candidates, err := ad.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		return rankCandidates(source, query, candidates), nil
	}

	var ranked []RankedCandidate
	var lastErr error
	for _, ad := range adapters {
		candidates, err := ad.Search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		ranked = append(ranked, rankCandidates(ad.Name(), query, candidates)...)
	}
	if len(ranked) == 0 && lastErr != nil {
		return nil, lastErr
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	return ranked, nil
}

func rankCandidates(source, query string, candidates []metadata.SearchCandidate) []RankedCandidate {
	normalizedQuery := textutil.NormalizeName(query)

	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		similarity := matchr.JaroWinkler(
			normalizedQuery,
			textutil.NormalizeName(c.Title),
			false,
		)
		// a title containing the query verbatim outranks any fuzzy score,
		// subtitles and edition suffixes drag JaroWinkler down otherwise
		if textutil.MatchName(c.Title, []string{normalizedQuery}) {
			similarity = 1
		}
		ranked = append(ranked, RankedCandidate{
			SearchCandidate: c,
			Source:          source,
			Similarity:      similarity,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	return ranked
}

func (s Service) filterTags(record *metadata.Record) {
	if len(s.tagFilters) == 0 || record == nil {
		return
	}
	record.Genres = s.filterValues(record.Genres)
	record.Categories = s.filterValues(record.Categories)
}

func (s Service) filterValues(values []string) []string {
	var kept []string
	for _, v := range values {
		if s.matchesFilter(v) {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

func (s Service) matchesFilter(value string) bool {
	for _, expr := range s.tagFilters {
		if expr.MatchString(strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}
