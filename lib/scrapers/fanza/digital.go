package fanza

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gamemeta-backend/lib/htmlutil"
	"gamemeta-backend/lib/localetext"
	"gamemeta-backend/lib/metadata"
	"gamemeta-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// the digital storefront layout: rich component markup, a json-ld block
// carrying the aggregate rating, and two separate detail row tables.
func (a *Adapter) parseDigitalPage(ctx context.Context, link, id string, doc *goquery.Document) *metadata.Record {
	record := &metadata.Record{Link: link}

	title := textutil.Clean(doc.Find(".productTitle .productTitle__headline").First().Text())
	if title != "" {
		record.Title = metadata.String(title)
	}

	doc.Find(".image-slider li img").Each(func(_ int, img *goquery.Selection) {
		src := htmlutil.SecureUrl(textutil.Clean(img.AttrOr("src", "")))
		if src != "" {
			record.PreviewImageUrls = append(record.PreviewImageUrls, src)
		}
	})

	if rating, ok := parseStructuredRating(doc); ok {
		record.Rating = metadata.Float(rating)
	}

	if guide := doc.Find("#detailGuide").First(); guide.Length() > 0 {
		if outer, err := goquery.OuterHtml(guide); err == nil {
			record.DescriptionHtml = metadata.String(htmlutil.SecureFragment(strings.TrimSpace(outer)))
		}
	}

	// the r18 navigation link only shows up on the all-ages rendering
	record.Adult = metadata.Bool(doc.Find("._n4v1-link-r18-name").Length() == 0)

	parseDetailRows(ctx, doc.Find(".contentsDetailTop__tableRow"), record, digitalListValues)
	parseDetailRows(ctx, doc.Find(".contentsDetailBottom__tableRow"), record, digitalListValues)

	record.CoverUrl = metadata.String(fmt.Sprintf(digitalCoverFmt, id, id))
	return record
}

// digital rows render role lists as li > a, voice actors as bare li
func digitalListValues(value *goquery.Selection, f field) []string {
	var out []string
	sel := "li a"
	if f == fieldVoiceActor {
		sel = "li"
	}
	value.Find(sel).Each(func(_ int, item *goquery.Selection) {
		if text := textutil.Clean(item.Text()); text != "" {
			out = append(out, text)
		}
	})
	if len(out) > 0 {
		return out
	}
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

// parseDetailRows populates the record from label/value row pairs, with
// per-layout list extraction. unknown labels are logged and skipped so
// they never abort the remaining fields.
func parseDetailRows(
	ctx context.Context,
	rows *goquery.Selection,
	record *metadata.Record,
	listValues func(*goquery.Selection, field) []string,
) {
	rows.Each(func(_ int, row *goquery.Selection) {
		label := textutil.CleanLabel(row.Children().First().Text())
		value := row.Children().Last()
		if label == "" || value.Length() == 0 {
			return
		}

		switch resolveLabel(label) {
		case fieldBrand:
			if brand := textutil.Clean(value.Text()); brand != "" {
				record.Maker = metadata.String(brand)
			}
		case fieldReleaseDate:
			if date, ok := localetext.ParseDate(value.Text()); ok {
				record.DateReleased = metadata.Date(date)
			}
		case fieldGameGenre:
			if genre := textutil.Clean(value.Text()); genre != "" && genre != noneValue {
				record.GameGenre = metadata.String(genre)
			}
		case fieldSeries:
			if series := textutil.Clean(value.Text()); series != "" && series != noneValue {
				record.Series = metadata.String(series)
			}
		case fieldGenre:
			record.Genres = tagValues(value)
		case fieldIllustration:
			record.Illustrators = listValues(value, fieldIllustration)
		case fieldScenario:
			record.ScenarioWriters = listValues(value, fieldScenario)
		case fieldVoiceActor:
			record.VoiceActors = listValues(value, fieldVoiceActor)
		case fieldMusic:
			record.MusicCreators = listValues(value, fieldMusic)
		case fieldRating:
			if rating, ok := parseRatingImage(value); ok {
				record.Rating = metadata.Float(rating)
			}
		default:
			slog.WarnContext(ctx, "unrecognized detail row label", "label", label)
		}
	})
}

// tag anchors, with the catalog's leading # stripped
func tagValues(value *goquery.Selection) []string {
	var out []string
	value.Find("a").Each(func(_ int, anchor *goquery.Selection) {
		text := textutil.Clean(strings.ReplaceAll(anchor.Text(), "#", ""))
		if text != "" {
			out = append(out, text)
		}
	})
	if len(out) > 0 {
		return out
	}
	return textutil.SplitList(value.Text())
}

type structuredProduct struct {
	Type            string `json:"@type"`
	AggregateRating *struct {
		RatingValue string `json:"ratingValue"`
	} `json:"aggregateRating"`
}

// parseStructuredRating reads the 0-5 decimal rating out of the
// product's json-ld metadata block.
func parseStructuredRating(doc *goquery.Document) (float64, bool) {
	var rating float64
	var found bool
	doc.Find(`script[type='application/ld+json']`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var product structuredProduct
		if err := json.Unmarshal([]byte(script.Text()), &product); err != nil {
			return true
		}
		if product.Type != "Product" || product.AggregateRating == nil {
			return true
		}
		value, err := strconv.ParseFloat(textutil.Clean(product.AggregateRating.RatingValue), 64)
		if err != nil {
			return true
		}
		rating = value
		found = true
		return false
	})
	return rating, found
}
