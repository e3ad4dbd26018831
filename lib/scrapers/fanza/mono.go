package fanza

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gamemeta-backend/lib/htmlutil"
	"gamemeta-backend/lib/metadata"
	"gamemeta-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// the legacy mono catalog layout: plain label/value table rows, the
// rating encoded in a star-image filename, lazy-loaded sample images.
func (a *Adapter) parseMonoPage(ctx context.Context, link, id string, doc *goquery.Document) *metadata.Record {
	record := &metadata.Record{Link: link}

	title := textutil.Clean(doc.Find("#title").First().Text())
	if title != "" {
		record.Title = metadata.String(title)
	}

	doc.Find("#sample-image-block a img").Each(func(_ int, img *goquery.Selection) {
		src := textutil.Clean(img.AttrOr("data-lazy", ""))
		if src == "" {
			return
		}
		// the lazy-load hostname prefix differs from the servable one
		src = htmlutil.SecureUrl(strings.Replace(src, "js-", "jp-", 1))
		record.PreviewImageUrls = append(record.PreviewImageUrls, src)
	})

	if desc := doc.Find("div.page-detail div.mg-b20.lh4 p.mg-b20").First(); desc.Length() > 0 {
		if outer, err := goquery.OuterHtml(desc); err == nil {
			record.DescriptionHtml = metadata.String(htmlutil.SecureFragment(strings.TrimSpace(outer)))
		}
	}

	record.Adult = metadata.Bool(doc.Find("._n4v1-link-r18-name").Length() == 0)

	parseDetailRows(ctx, doc.Find(".wrapper-detailContents .wrapper-product table tr"), record, monoListValues)

	record.CoverUrl = metadata.String(fmt.Sprintf(monoCoverFmt, id, id))
	return record
}

// mono rows render role lists as td > a
func monoListValues(value *goquery.Selection, _ field) []string {
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

// parseRatingImage decodes the catalog's star-image rating: the value
// is the numeral in the image filename, scaled by 10 (45.gif => 4.5).
func parseRatingImage(value *goquery.Selection) (float64, bool) {
	var rating float64
	var found bool
	value.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := img.AttrOr("src", "")
		if !strings.HasSuffix(src, ".gif") {
			return true
		}
		idx := strings.LastIndex(src, "/")
		name := strings.TrimSuffix(src[idx+1:], ".gif")
		scaled, err := strconv.ParseFloat(name, 64)
		if err != nil || scaled <= 0 {
			return true
		}
		rating = scaled / 10
		found = true
		return false
	})
	return rating, found
}
