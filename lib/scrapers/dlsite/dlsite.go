// Package dlsite implements the DLsite source adapter. detail pages are
// locale-selectable (?locale=) and render a single "current" layout with
// a #work_outline label/value table; ratings come from a side ajax
// endpoint and fallback discovery uses the suggestion endpoint.
package dlsite

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

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

var tracer = otel.Tracer("scrapers/dlsite")

const (
	DefaultLocale = "en_US"

	siteBaseUrl    = "https://www.dlsite.com/"
	suggestUrl     = siteBaseUrl + "suggest/"
	ratingAjaxUrl  = siteBaseUrl + "maniax/product/info/ajax"
	workUrlFmt     = siteBaseUrl + "soft/work/=/product_id/%s.html"
	announceUrlFmt = siteBaseUrl + "soft/announce/=/product_id/%s.html"
)

// the pc-game work types included in listing search
var searchWorkTypes = []string{
	"ACN", "QIZ", "ADV", "RPG", "TBL", "SLN", "TYP", "STG", "PZL", "ETC",
}

var productIdRegex = regexp.MustCompile(`^[a-zA-Z]+[0-9]+$`)

type Adapter struct {
	client     fetch.Fetcher
	locale     string
	maxResults int
}

type AdapterOptions struct {
	// document fetcher. when nil a default network client carrying the
	// adult-check cookie is constructed.
	Client fetch.Fetcher
	// locale requested from the source, defaults to en_US
	Locale string
	// per-page cap for listing search, defaults to 50
	MaxResults int
}

func NewAdapter(opts AdapterOptions) (*Adapter, error) {
	locale := opts.Locale
	if locale == "" {
		locale = DefaultLocale
	}
	maxResults := opts.MaxResults
	if maxResults == 0 {
		maxResults = 50
	}

	client := opts.Client
	if client == nil {
		c, err := fetch.NewClient(fetch.ClientOptions{
			TracerName: "scrapers/dlsite/http",
			Cookies: []*http.Cookie{
				{Name: "adultchecked", Value: "1", Path: "/", Domain: ".dlsite.com"},
				{Name: "locale", Value: locale, Path: "/", Domain: ".dlsite.com"},
			},
		})
		if err != nil {
			return nil, err
		}
		client = c
	}

	return &Adapter{
		client:     client,
		locale:     locale,
		maxResults: maxResults,
	}, nil
}

func (a *Adapter) Name() string { return "dlsite" }

// ExtractId pulls the product id out of any dlsite work url shape:
// /<shop>/work/=/product_id/RJ123456.html, the announce variant, with
// or without trailing slash, locale and tracking query params.
func (a *Adapter) ExtractId(href string) string {
	link, err := url.Parse(href)
	if err != nil {
		return ""
	}
	host := link.Hostname()
	if host != "dlsite.com" && !strings.HasSuffix(host, ".dlsite.com") {
		return ""
	}

	segments := strings.Split(strings.Trim(link.Path, "/"), "/")
	for i, seg := range segments {
		if seg != "product_id" || i+1 >= len(segments) {
			continue
		}
		id := strings.TrimSuffix(segments[i+1], ".html")
		if productIdRegex.MatchString(id) {
			return id
		}
	}
	return ""
}

func (a *Adapter) Search(ctx context.Context, query string) ([]metadata.SearchCandidate, error) {
	ctx, span := tracer.Start(ctx, "dlsite:Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	doc, _, err := a.client.Document(ctx, a.searchUrl(query))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch search listing")
		return nil, err
	}

	var results []metadata.SearchCandidate
	doc.Find("ul.n_worklist li").Each(func(_ int, li *goquery.Selection) {
		anchor := li.Find(".multiline_truncate a").First()
		if anchor.Length() == 0 {
			return
		}
		href := anchor.AttrOr("href", "")
		if href == "" {
			return
		}
		href = htmlutil.SecureUrl(href)

		title := anchor.AttrOr("title", "")
		if title == "" {
			title = textutil.Clean(anchor.Text())
		}
		if title == "" {
			return
		}

		results = append(results, metadata.SearchCandidate{
			Title: title,
			Id:    a.ExtractId(href),
			Href:  href,
		})
	})

	if len(results) > 0 {
		return results, nil
	}

	// the suggestion endpoint gives much better results for terms the
	// listing search turns up empty on
	span.AddEvent("falling back to suggestion endpoint")
	return a.suggest(ctx, query)
}

type suggestionItem struct {
	WorkName string `json:"work_name"`
	WorkNo   string `json:"workno"`
	WorkType string `json:"work_type"`
	IsAna    bool   `json:"is_ana"`
}

type suggestionResult struct {
	Work []suggestionItem `json:"work"`
}

func (a *Adapter) suggest(ctx context.Context, query string) ([]metadata.SearchCandidate, error) {
	ctx, span := tracer.Start(ctx, "dlsite:suggest")
	defer span.End()

	link := fmt.Sprintf(
		"%s?term=%s&site=pro&time=%d",
		suggestUrl,
		url.QueryEscape(query),
		time.Now().UnixMilli(),
	)

	var suggestions suggestionResult
	err := a.client.Json(ctx, link, map[string]string{
		"cookie": fmt.Sprintf("locale=%s;adultchecked=1", a.locale),
	}, &suggestions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query suggestion endpoint")
		return nil, err
	}

	var results []metadata.SearchCandidate
	for _, work := range suggestions.Work {
		if work.WorkNo == "" {
			continue
		}
		// announced-but-unreleased works live under a different detail
		// url template
		urlFmt := workUrlFmt
		if work.IsAna {
			urlFmt = announceUrlFmt
		}
		results = append(results, metadata.SearchCandidate{
			Title: work.WorkName,
			Id:    work.WorkNo,
			Href:  fmt.Sprintf(urlFmt, work.WorkNo),
		})
	}
	return results, nil
}

func (a *Adapter) searchUrl(query string) string {
	var builder strings.Builder
	builder.WriteString(siteBaseUrl)
	builder.WriteString("maniax/fsr/=/language/jp/sex_category%5B0%5D/male/keyword/")
	builder.WriteString(url.PathEscape(query))
	builder.WriteString("/order%5B0%5D/trend")
	builder.WriteString("/work_category%5B0%5D/pc")
	for i, workType := range searchWorkTypes {
		builder.WriteString(fmt.Sprintf("/work_type%%5B%d%%5D/%s", i, workType))
	}
	builder.WriteString("/per_page/")
	builder.WriteString(strconv.Itoa(a.maxResults))
	builder.WriteString("/from/fs.header/")
	builder.WriteString("?locale=")
	builder.WriteString(a.locale)
	return builder.String()
}

func (a *Adapter) Fetch(ctx context.Context, href string) (*metadata.Record, error) {
	ctx, span := tracer.Start(ctx, "dlsite:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("href", href))

	id := a.ExtractId(href)
	if id == "" {
		return nil, metadata.ErrNotFound
	}

	link := a.withLocale(href)
	doc, status, err := a.client.Document(ctx, link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch product page")
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, metadata.ErrNotFound
	}

	record := a.parseProductPage(ctx, link, doc)

	rating, err := a.fetchRating(ctx, id)
	if err != nil {
		// the product page itself parsed fine, a broken rating endpoint
		// should not sink the whole record
		slog.WarnContext(ctx, "failed to fetch rating", "id", id, "err", err)
	} else if rating > 0 {
		record.Rating = metadata.Float(rating)
	}

	return record, nil
}

func (a *Adapter) withLocale(href string) string {
	link, err := url.Parse(href)
	if err != nil {
		return href
	}
	query := link.Query()
	if query.Get("locale") != "" {
		return href
	}
	query.Set("locale", a.locale)
	link.RawQuery = query.Encode()
	return link.String()
}

// the rating ajax payload is keyed by product id
type productInfo struct {
	RateAverage2dp float64 `json:"rate_average_2dp"`
}

func (a *Adapter) fetchRating(ctx context.Context, id string) (float64, error) {
	ctx, span := tracer.Start(ctx, "dlsite:fetchRating")
	defer span.End()

	var payload map[string]productInfo
	err := a.client.Json(
		ctx,
		fmt.Sprintf("%s?product_id=%s", ratingAjaxUrl, url.QueryEscape(id)),
		nil,
		&payload,
	)
	if err != nil {
		return 0, err
	}

	for _, info := range payload {
		if info.RateAverage2dp > 0 {
			return info.RateAverage2dp, nil
		}
	}
	return 0, nil
}

func (a *Adapter) parseProductPage(ctx context.Context, link string, doc *goquery.Document) *metadata.Record {
	record := &metadata.Record{Link: link}

	title := textutil.Clean(doc.Find(".topicpath_item").Last().Find("a").First().Text())
	if title != "" {
		record.Title = metadata.String(title)
	}

	a.parseMaker(doc, record)
	a.parseDescription(doc, record)
	a.parsePreviewImages(doc, record)
	a.parseWorkOutline(ctx, doc, record)
	a.deriveCoverImages(record)

	return record
}

func (a *Adapter) parseMaker(doc *goquery.Document, record *metadata.Record) {
	makerName := doc.Find(".maker_name").First()
	maker := textutil.Clean(makerName.Find("a").First().Text())
	if maker == "" {
		maker = textutil.Clean(makerName.Text())
	}
	if follow := doc.Find(".add_follow").First(); follow.Length() > 0 {
		if name := follow.AttrOr("data-follow-name", ""); name != "" {
			maker = name
		}
	}
	if maker != "" {
		record.Maker = metadata.String(maker)
	}
}

func (a *Adapter) parseDescription(doc *goquery.Document, record *metadata.Record) {
	container := doc.Find(".work_parts_container").First()
	if container.Length() == 0 {
		return
	}

	var descriptionHtml strings.Builder
	container.Children().Each(func(_ int, part *goquery.Selection) {
		// promotional widget inserts are not part of the description
		if part.HasClass("type_chobit") {
			return
		}
		inner, err := part.Html()
		if err != nil {
			return
		}
		descriptionHtml.WriteString(htmlutil.SecureFragment(inner))
	})

	record.DescriptionHtml = metadata.String(strings.TrimSpace(descriptionHtml.String()))
}

func (a *Adapter) parsePreviewImages(doc *goquery.Document, record *metadata.Record) {
	seen := map[string]bool{}
	add := func(src string) {
		src = htmlutil.SecureUrl(textutil.Clean(src))
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		record.PreviewImageUrls = append(record.PreviewImageUrls, src)
	}

	doc.Find(".product-slider-data div[data-src]").Each(func(_ int, slide *goquery.Selection) {
		add(slide.AttrOr("data-src", ""))
	})

	// images embedded in the description supplement the slider
	if record.DescriptionHtml != nil {
		for _, img := range htmlutil.ImageLinks(*record.DescriptionHtml) {
			add(img)
		}
	}
}

func (a *Adapter) parseWorkOutline(ctx context.Context, doc *goquery.Document, record *metadata.Record) {
	doc.Find("#work_outline tr").Each(func(_ int, row *goquery.Selection) {
		header := row.Find("th").First()
		value := row.Find("td").First()
		if header.Length() == 0 || value.Length() == 0 {
			return
		}
		label := textutil.Clean(header.Text())

		switch resolveLabel(label) {
		case fieldReleaseDate:
			if date, ok := localetext.ParseDate(value.Text()); ok {
				record.DateReleased = metadata.Date(date)
			}
		case fieldUpdateInfo:
			if date, ok := localetext.ParseLeadingDate(value.Text()); ok {
				record.DateUpdated = metadata.Date(date)
			}
		case fieldSeries:
			if series := textutil.Clean(value.Text()); series != "" && !localetext.IsAbsent(series) {
				record.Series = metadata.String(series)
			}
		case fieldScenario:
			record.ScenarioWriters = listValues(value)
		case fieldIllustration:
			record.Illustrators = listValues(value)
		case fieldVoiceActor:
			record.VoiceActors = listValues(value)
		case fieldMusic:
			record.MusicCreators = listValues(value)
		case fieldAge:
			a.parseAgeRating(value, record)
		case fieldProductFormat:
			record.Categories = listValues(value)
			if extra := textutil.Clean(strings.ReplaceAll(
				value.Find(".additional_info").First().Text(), "/", " ",
			)); extra != "" {
				record.Categories = append(record.Categories, extra)
			}
		case fieldGenre:
			record.Genres = listValues(value)
		case fieldFileFormat, fieldFileSize, fieldSupportedLanguages:
			// recognized but not part of the canonical record
		default:
			slog.WarnContext(ctx, "unrecognized work outline label", "label", label)
		}
	})
}

func (a *Adapter) parseAgeRating(value *goquery.Selection, record *metadata.Record) {
	age := textutil.Clean(value.Find(".work_genre span").First().Text())
	if age == "" {
		age = textutil.Clean(value.Text())
	}
	if age == "" {
		return
	}
	record.AgeRating = metadata.String(age)
	record.Adult = metadata.Bool(strings.Contains(age, "18"))
}

// cover and icon come from the slider's main image, the icon being the
// fixed thumbnail-suffix variant of the same filename:
//
//	.../RJ246037_img_main.jpg
//	.../RJ246037_img_sam_mini.jpg
func (a *Adapter) deriveCoverImages(record *metadata.Record) {
	for _, img := range record.PreviewImageUrls {
		if !strings.Contains(img, "_img_main.") {
			continue
		}
		record.CoverUrl = metadata.String(img)
		record.IconUrl = metadata.String(strings.Replace(img, "_img_main.", "_img_sam_mini.", 1))
		return
	}
}

// listValues extracts a list-valued cell: discrete links when the
// layout renders them, otherwise the ideographic-comma text run.
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
