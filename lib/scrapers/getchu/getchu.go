// Package getchu implements the Getchu source adapter. getchu only
// renders the legacy catalog layout: a #soft_table of label/value rows
// with full-width-colon labels and ideographic-comma delimited values.
package getchu

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"gamemeta-backend/lib/fetch"
	"gamemeta-backend/lib/htmlutil"
	"gamemeta-backend/lib/localetext"
	"gamemeta-backend/lib/metadata"
	"gamemeta-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/getchu")

const (
	siteBaseUrl   = "https://www.getchu.com/"
	detailUrl     = siteBaseUrl + "soft.phtml?id="
	searchUrlFmt  = siteBaseUrl + "php/nsearch.phtml?search_keyword=%s&list_count=%d&sort=sales&sort2=down&genre=pc_soft&list_type=list&search=search"
	packageImgFmt = siteBaseUrl + "brandnew/%s/c%spackage.jpg"
)

type Adapter struct {
	client     fetch.Fetcher
	maxResults int
}

type AdapterOptions struct {
	// document fetcher. when nil a default network client carrying the
	// getchu adult-flag cookie is constructed.
	Client fetch.Fetcher
	// list_count for listing search, defaults to 50
	MaxResults int
}

func NewAdapter(opts AdapterOptions) (*Adapter, error) {
	maxResults := opts.MaxResults
	if maxResults == 0 {
		maxResults = 50
	}

	client := opts.Client
	if client == nil {
		c, err := fetch.NewClient(fetch.ClientOptions{
			TracerName: "scrapers/getchu/http",
			Cookies: []*http.Cookie{
				{Name: "getchu_adalt_flag", Value: "getchu.com", Path: "/", Domain: "www.getchu.com"},
			},
		})
		if err != nil {
			return nil, err
		}
		client = c
	}

	return &Adapter{client: client, maxResults: maxResults}, nil
}

func (a *Adapter) Name() string { return "getchu" }

// ExtractId pulls the numeric id out of a soft.phtml?id= detail url,
// ignoring any extra query params.
func (a *Adapter) ExtractId(href string) string {
	link, err := url.Parse(href)
	if err != nil {
		return ""
	}
	host := link.Hostname()
	if host != "getchu.com" && !strings.HasSuffix(host, ".getchu.com") {
		return ""
	}
	if !strings.HasSuffix(link.Path, "soft.phtml") {
		return ""
	}
	return link.Query().Get("id")
}

func (a *Adapter) Search(ctx context.Context, query string) ([]metadata.SearchCandidate, error) {
	ctx, span := tracer.Start(ctx, "getchu:Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	link := fmt.Sprintf(searchUrlFmt, url.QueryEscape(query), a.maxResults)
	doc, _, err := a.client.Document(ctx, link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch search listing")
		return nil, err
	}

	base, _ := url.Parse(siteBaseUrl)

	var results []metadata.SearchCandidate
	for _, anchor := range htmlutil.GetAnchors(doc.Find(".display li #detail_block tr:first-child .blueb")) {
		if anchor.Href == "" {
			continue
		}
		href := htmlutil.SecureUrl(htmlutil.ResolveHref(base, anchor.Href))
		results = append(results, metadata.SearchCandidate{
			Title: anchor.Name,
			Id:    a.ExtractId(href),
			Href:  href,
		})
	}
	return results, nil
}

func (a *Adapter) Fetch(ctx context.Context, href string) (*metadata.Record, error) {
	ctx, span := tracer.Start(ctx, "getchu:Fetch")
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
	// the age gate interstitial has no product table at all; treat it
	// like a missing page rather than emitting an all-empty record
	if doc.Find("#soft_table").Length() == 0 {
		return nil, metadata.ErrNotFound
	}

	return a.parseProductPage(ctx, href, id, doc), nil
}

func (a *Adapter) parseProductPage(ctx context.Context, link, id string, doc *goquery.Document) *metadata.Record {
	record := &metadata.Record{Link: link}

	// #soft-title carries trailing decoration nodes, only the first
	// text node is the title itself
	if titleNode := doc.Find("#soft-title").Nodes; len(titleNode) > 0 {
		if first := titleNode[0].FirstChild; first != nil {
			if title := textutil.Clean(htmlutil.GetText(first)); title != "" {
				record.Title = metadata.String(title)
			}
		}
	}

	a.parseSoftTable(ctx, doc, record)
	a.parseSampleImages(doc, record)

	record.CoverUrl = metadata.String(fmt.Sprintf(packageImgFmt, id, id))
	return record
}

func (a *Adapter) parseSoftTable(ctx context.Context, doc *goquery.Document, record *metadata.Record) {
	doc.Find("#soft_table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 2 {
			return
		}
		label := textutil.CleanLabel(cells.First().Text())
		if label == "" {
			return
		}
		value := cells.Last()

		switch label {
		case "ブランド":
			brand := textutil.Clean(value.Find("a").First().Text())
			if brand == "" {
				brand = textutil.Clean(value.Text())
			}
			if brand != "" {
				record.Maker = metadata.String(brand)
			}
		case "発売日":
			date := textutil.Clean(value.Find("a").First().Text())
			if date == "" {
				date = textutil.Clean(value.Text())
			}
			if parsed, ok := localetext.ParseDate(date); ok {
				record.DateReleased = metadata.Date(parsed)
			}
		case "原画":
			record.Illustrators = listValues(value)
		case "シナリオ":
			record.ScenarioWriters = listValues(value)
		case "アーティスト":
			record.MusicCreators = listValues(value)
		case "声優":
			record.VoiceActors = listValues(value)
		case "ジャンル":
			record.Categories = listValues(value)
		case "カテゴリ":
			record.Genres = listValues(value)
		case "サブジャンル":
			// browsing taxonomy, not part of the canonical record
		default:
			slog.WarnContext(ctx, "unrecognized soft table label", "label", label)
		}
	})
}

// getchu renders sample images under a "サンプル画像" section title
func (a *Adapter) parseSampleImages(doc *goquery.Document, record *metadata.Record) {
	base, _ := url.Parse(siteBaseUrl)

	doc.Find(".tabletitle").Each(func(_ int, title *goquery.Selection) {
		if !strings.Contains(title.Text(), "サンプル画像") {
			return
		}
		title.Next().Find("a").Each(func(_ int, anchor *goquery.Selection) {
			href := anchor.AttrOr("href", "")
			if href == "" {
				return
			}
			record.PreviewImageUrls = append(
				record.PreviewImageUrls,
				htmlutil.SecureUrl(htmlutil.ResolveHref(base, href)),
			)
		})
	})
}

// getchu lists people as an ideographic-comma text run, with discrete
// links only on some rows
func listValues(value *goquery.Selection) []string {
	var out []string
	value.Find("a").Each(func(_ int, anchor *goquery.Selection) {
		if text := textutil.Clean(anchor.Text()); text != "" {
			out = append(out, text)
		}
	})
	if len(out) > 0 {
		return out
	}
	return textutil.SplitList(value.Text())
}
