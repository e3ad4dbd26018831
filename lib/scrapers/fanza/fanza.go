// Package fanza implements the Fanza (dmm.co.jp) source adapter. the
// same logical product can live under two structurally different
// layouts: the current digital storefront (dlsoft.dmm.co.jp) and the
// legacy mono catalog (www.dmm.co.jp/mono). both url shapes normalize
// to one content id, and the layout is picked by probing the fetched
// document, not the url.
package fanza

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"gamemeta-backend/lib/fetch"
	"gamemeta-backend/lib/htmlutil"
	"gamemeta-backend/lib/metadata"
	"gamemeta-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/fanza")

const (
	digitalSearchUrl = "https://dlsoft.dmm.co.jp/search?service=pcgame&searchstr="
	digitalDetailUrl = "https://dlsoft.dmm.co.jp/detail/"
	digitalCoverFmt  = "https://pics.dmm.co.jp/digital/pcgame/%s/%spl.jpg"
	monoSearchUrlFmt = "https://www.dmm.co.jp/search/=/searchstr=%s/limit=30/sort=rankprofile/"
	monoDetailUrl    = "https://www.dmm.co.jp/mono/pcgame/-/detail/=/cid="
	monoCoverFmt     = "https://pics.dmm.co.jp/mono/game/%s/%spl.jpg"
)

type Adapter struct {
	client fetch.Fetcher
}

type AdapterOptions struct {
	// document fetcher. when nil a default network client carrying the
	// dmm age-check cookie is constructed.
	Client fetch.Fetcher
}

func NewAdapter(opts AdapterOptions) (*Adapter, error) {
	client := opts.Client
	if client == nil {
		c, err := fetch.NewClient(fetch.ClientOptions{
			TracerName: "scrapers/fanza/http",
			Cookies: []*http.Cookie{
				{Name: "age_check_done", Value: "1", Path: "/", Domain: ".dmm.co.jp"},
			},
		})
		if err != nil {
			return nil, err
		}
		client = c
	}
	return &Adapter{client: client}, nil
}

func (a *Adapter) Name() string { return "fanza" }

// ExtractId normalizes both detail url shapes to the same content id:
//
//	https://dlsoft.dmm.co.jp/detail/<id>/
//	https://www.dmm.co.jp/mono/pcgame/-/detail/=/cid=<id>/
//
// downstream image-url construction keys off this id, so the two shapes
// must never diverge.
func (a *Adapter) ExtractId(href string) string {
	link, err := url.Parse(href)
	if err != nil {
		return ""
	}
	host := link.Hostname()
	segments := strings.Split(strings.Trim(link.Path, "/"), "/")

	switch {
	case host == "dlsoft.dmm.co.jp":
		if len(segments) < 2 || segments[0] != "detail" {
			return ""
		}
		return segments[1]
	case strings.HasSuffix(host, "dmm.co.jp") && strings.Contains(link.Path, "/mono/"):
		for _, seg := range segments {
			if strings.HasPrefix(seg, "cid=") {
				return strings.TrimPrefix(seg, "cid=")
			}
		}
	}
	return ""
}

func (a *Adapter) Search(ctx context.Context, query string) ([]metadata.SearchCandidate, error) {
	ctx, span := tracer.Start(ctx, "fanza:Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	results, err := a.searchDigital(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "digital search failed")
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	// the legacy catalog still lists physical releases the storefront
	// never carried
	span.AddEvent("falling back to mono catalog search")
	return a.searchMono(ctx, query)
}

func (a *Adapter) searchDigital(ctx context.Context, query string) ([]metadata.SearchCandidate, error) {
	doc, _, err := a.client.Document(ctx, digitalSearchUrl+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	var results []metadata.SearchCandidate
	doc.Find(".component-legacy-productTile .component-legacy-productTile__detailLink").
		Each(func(_ int, anchor *goquery.Selection) {
			href := htmlutil.SecureUrl(anchor.AttrOr("href", ""))
			if href == "" {
				return
			}
			title := textutil.Clean(anchor.Find(".component-legacy-productTile__title").First().Text())
			results = append(results, metadata.SearchCandidate{
				Title: title,
				Id:    a.ExtractId(href),
				Href:  href,
			})
		})
	return results, nil
}

func (a *Adapter) searchMono(ctx context.Context, query string) ([]metadata.SearchCandidate, error) {
	doc, _, err := a.client.Document(ctx, fmt.Sprintf(monoSearchUrlFmt, url.QueryEscape(query)))
	if err != nil {
		return nil, err
	}

	var results []metadata.SearchCandidate
	doc.Find("#list li").Each(func(_ int, li *goquery.Selection) {
		anchor := li.Find(".tmb a").First()
		href := htmlutil.SecureUrl(anchor.AttrOr("href", ""))
		if !strings.Contains(href, "/mono/pcgame") {
			return
		}
		id := a.ExtractId(href)
		if id == "" {
			return
		}
		title := textutil.Clean(anchor.Find("img").First().AttrOr("alt", ""))
		results = append(results, metadata.SearchCandidate{
			Title: title,
			Id:    id,
			Href:  href,
		})
	})
	return results, nil
}

func (a *Adapter) Fetch(ctx context.Context, href string) (*metadata.Record, error) {
	ctx, span := tracer.Start(ctx, "fanza:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("href", href))

	id := a.ExtractId(href)
	if id == "" {
		return nil, metadata.ErrNotFound
	}

	doc, status, err := a.client.Document(ctx, href)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch detail page")
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, metadata.ErrNotFound
	}

	// the two layouts can coexist under similar paths, so dispatch on
	// the page structure itself
	if isDigitalLayout(doc) {
		span.SetAttributes(attribute.String("layout", "digital"))
		return a.parseDigitalPage(ctx, href, id, doc), nil
	}
	span.SetAttributes(attribute.String("layout", "mono"))
	return a.parseMonoPage(ctx, href, id, doc), nil
}

func isDigitalLayout(doc *goquery.Document) bool {
	return doc.Find(".productTitle__headline").Length() > 0 ||
		doc.Find(".contentsDetailBottom__tableRow").Length() > 0
}
