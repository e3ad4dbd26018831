package metadata

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/metadata")

// Aggregator holds the ordered adapter registry. registration order is
// priority order: when reference ownership is ambiguous, the
// first-registered adapter wins.
type Aggregator struct {
	adapters []Adapter
}

func NewAggregator(adapters ...Adapter) *Aggregator {
	return &Aggregator{adapters: adapters}
}

func (a *Aggregator) Adapters() []Adapter {
	return a.adapters
}

// Adapter returns the registered adapter with the given name, or nil.
func (a *Aggregator) Adapter(name string) Adapter {
	for _, ad := range a.adapters {
		if ad.Name() == name {
			return ad
		}
	}
	return nil
}

// Route returns the first adapter whose ExtractId claims the reference,
// or nil when none does. pure url parsing, no IO.
func (a *Aggregator) Route(href string) Adapter {
	for _, ad := range a.adapters {
		if ad.ExtractId(href) != "" {
			return ad
		}
	}
	return nil
}

// ResolveLink resolves a reference url into a canonical record.
//
// when an adapter claims the reference it owns it for the rest of the
// call: its ErrNotFound is final. when no adapter claims it, every
// adapter is tried by brute force in priority order and the first
// non-not-found result wins; a transport failure in one adapter is
// logged and skipped so it never becomes total failure while another
// source remains viable.
func (a *Aggregator) ResolveLink(ctx context.Context, href string) (*Record, error) {
	ctx, span := tracer.Start(ctx, "aggregator:ResolveLink")
	defer span.End()
	span.SetAttributes(attribute.String("href", href))

	if ad := a.Route(href); ad != nil {
		span.SetAttributes(attribute.String("owner", ad.Name()))
		return ad.Fetch(ctx, href)
	}

	for _, ad := range a.adapters {
		rec, err := ad.Fetch(ctx, href)
		if err == nil {
			span.SetAttributes(attribute.String("brute_force_owner", ad.Name()))
			return rec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		span.RecordError(err)
		slog.WarnContext(
			ctx, "source failed during brute-force resolution, skipping",
			"source", ad.Name(),
			"err", err,
		)
	}

	slog.DebugContext(ctx, "reference not recognized by any source", "href", href)
	span.SetStatus(codes.Error, ErrUnrecognizedReference.Error())
	return nil, ErrUnrecognizedReference
}

// ResolveQuery resolves a free-text query in batch mode: the first
// search candidate of the first adapter returning any is fetched.
// a source that errors during discovery is logged and skipped.
func (a *Aggregator) ResolveQuery(ctx context.Context, query string) (*Record, error) {
	ctx, span := tracer.Start(ctx, "aggregator:ResolveQuery")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	for _, ad := range a.adapters {
		candidates, err := ad.Search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			span.RecordError(err)
			slog.WarnContext(
				ctx, "source failed during discovery, skipping",
				"source", ad.Name(),
				"err", err,
			)
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		span.SetAttributes(attribute.String("selected_source", ad.Name()))
		return ad.Fetch(ctx, candidates[0].Href)
	}

	return nil, ErrNotFound
}
