package dlsite

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"gamemeta-backend/lib/metadata"
	"gamemeta-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) *Adapter {
	adapter, err := NewAdapter(AdapterOptions{})
	require.NoError(t, err)
	return adapter
}

// canned fetcher: pages and payloads are looked up by url prefix, so
// urls carrying volatile query params (the suggest timestamp) still hit.
type fakeFetcher struct {
	pages    map[string]string
	statuses map[string]int
	payloads map[string]string

	documentCalls []string
	jsonCalls     []string
}

func lookupByPrefix[V any](m map[string]V, link string) (V, bool) {
	if v, ok := m[link]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.HasPrefix(link, k) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func (f *fakeFetcher) Document(ctx context.Context, link string) (*goquery.Document, int, error) {
	f.documentCalls = append(f.documentCalls, link)

	page, _ := lookupByPrefix(f.pages, link)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, 0, err
	}
	status, ok := lookupByPrefix(f.statuses, link)
	if !ok {
		status = http.StatusOK
	}
	return doc, status, nil
}

func (f *fakeFetcher) Json(ctx context.Context, link string, headers map[string]string, out any) error {
	f.jsonCalls = append(f.jsonCalls, link)

	payload, ok := lookupByPrefix(f.payloads, link)
	if !ok {
		return nil
	}
	return json.Unmarshal([]byte(payload), out)
}

func TestExtractId(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/dlsite")
	defer cleanup()

	adapter := newTestAdapter(t)

	testCases := []struct {
		href     string
		expected string
	}{
		{
			href:     "https://www.dlsite.com/maniax/work/=/product_id/RJ123456.html",
			expected: "RJ123456",
		},
		{
			// trailing slash and tracking params must not change the id
			href:     "https://www.dlsite.com/maniax/work/=/product_id/RJ123456.html/?locale=ja_JP&utm_source=feed",
			expected: "RJ123456",
		},
		{
			href:     "https://www.dlsite.com/soft/announce/=/product_id/RJ999999.html",
			expected: "RJ999999",
		},
		{
			href:     "https://www.dlsite.com/pro/work/=/product_id/VJ014561.html",
			expected: "VJ014561",
		},
		{
			href:     "https://example.com/maniax/work/=/product_id/RJ123456.html",
			expected: "",
		},
		{
			href:     "https://www.dlsite.com/maniax/fsr/=/keyword/foo/",
			expected: "",
		},
		{
			href:     "not a url at all",
			expected: "",
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, adapter.ExtractId(test.href), test.href)
		// pure and idempotent
		require.Equal(t, test.expected, adapter.ExtractId(test.href), test.href)
	}
}

const productPageFixture = `
<html><body>
<ul class="topicpath">
	<li class="topicpath_item"><a href="/maniax/">Home</a></li>
	<li class="topicpath_item"><a href="#"><span>Foo Quest</span></a></li>
</ul>
<div class="maker_name"><a href="/maker/RG00001.html">Bar Works</a></div>
<div class="product-slider-data">
	<div data-src="//img.dlsite.jp/modpub/images2/work/doujin/RJ247000/RJ246037_img_main.jpg"></div>
	<div data-src="//img.dlsite.jp/modpub/images2/work/doujin/RJ247000/RJ246037_img_smp1.jpg"></div>
</div>
<div class="work_parts_container">
	<div class="work_parts"><p>An epic tale.</p><img src="//img.dlsite.jp/extra/RJ246037_story.jpg"></div>
	<div class="work_parts type_chobit"><p>promo widget</p></div>
</div>
<table id="work_outline">
	<tr><th>シリーズ名</th><td>Foo Series</td></tr>
	<tr><th>販売日</th><td>2021年05月10日</td></tr>
	<tr><th>更新情報</th><td>2021年06月01日 修正版</td></tr>
	<tr><th>シナリオ</th><td><a href="#">Writer A</a></td></tr>
	<tr><th>イラスト</th><td><a href="#">Painter B</a><a href="#">Painter C</a></td></tr>
	<tr><th>年齢指定</th><td><div class="work_genre"><span>18+</span></div></td></tr>
	<tr><th>作品形式</th><td><div><a href="#">Role-playing</a><span class="additional_info">with/extras</span></div></td></tr>
	<tr><th>ジャンル</th><td><div><a href="#">Action</a><a href="#">Adventure</a></div></td></tr>
	<tr><th>謎のヘッダー</th><td>should be skipped</td></tr>
</table>
</body></html>`

func TestParseProductPage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/dlsite")
	defer cleanup()

	adapter := newTestAdapter(t)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(productPageFixture))
	require.NoError(t, err)

	link := "https://www.dlsite.com/maniax/work/=/product_id/RJ246037.html"
	record := adapter.parseProductPage(context.Background(), link, doc)

	require.Equal(t, link, record.Link)
	require.NotNil(t, record.Title)
	require.Equal(t, "Foo Quest", *record.Title)
	require.NotNil(t, record.Maker)
	require.Equal(t, "Bar Works", *record.Maker)

	require.NotNil(t, record.Series)
	require.Equal(t, "Foo Series", *record.Series)
	require.NotNil(t, record.DateReleased)
	require.Equal(t, time.Date(2021, time.May, 10, 0, 0, 0, 0, time.UTC), *record.DateReleased)
	require.NotNil(t, record.DateUpdated)
	require.Equal(t, time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC), *record.DateUpdated)

	require.Empty(t, cmp.Diff([]string{"Action", "Adventure"}, record.Genres))
	require.Empty(t, cmp.Diff([]string{"Writer A"}, record.ScenarioWriters))
	require.Empty(t, cmp.Diff([]string{"Painter B", "Painter C"}, record.Illustrators))
	require.Empty(t, cmp.Diff([]string{"Role-playing", "with extras"}, record.Categories))

	require.NotNil(t, record.AgeRating)
	require.Equal(t, "18+", *record.AgeRating)
	require.NotNil(t, record.Adult)
	require.True(t, *record.Adult)

	// slider images secured, description image harvested, deduplicated
	require.Equal(t, []string{
		"https://img.dlsite.jp/modpub/images2/work/doujin/RJ247000/RJ246037_img_main.jpg",
		"https://img.dlsite.jp/modpub/images2/work/doujin/RJ247000/RJ246037_img_smp1.jpg",
		"https://img.dlsite.jp/extra/RJ246037_story.jpg",
	}, record.PreviewImageUrls)

	require.NotNil(t, record.CoverUrl)
	require.Equal(t,
		"https://img.dlsite.jp/modpub/images2/work/doujin/RJ247000/RJ246037_img_main.jpg",
		*record.CoverUrl,
	)
	require.NotNil(t, record.IconUrl)
	require.Equal(t,
		"https://img.dlsite.jp/modpub/images2/work/doujin/RJ247000/RJ246037_img_sam_mini.jpg",
		*record.IconUrl,
	)

	require.NotNil(t, record.DescriptionHtml)
	require.Contains(t, *record.DescriptionHtml, "An epic tale.")
	require.Contains(t, *record.DescriptionHtml, `src="https://img.dlsite.jp/extra/RJ246037_story.jpg`)
	require.NotContains(t, *record.DescriptionHtml, "promo widget")

	// the unknown label row must not have aborted anything
	require.Nil(t, record.GameGenre)
}

func TestParseProductPageVoiceListFallsBackToDelimitedText(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/dlsite")
	defer cleanup()

	fixture := `
<html><body>
<table id="work_outline">
	<tr><th>声優</th><td>佐藤さん、鈴木さん</td></tr>
</table>
</body></html>`

	adapter := newTestAdapter(t)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fixture))
	require.NoError(t, err)

	record := adapter.parseProductPage(context.Background(), "https://www.dlsite.com/maniax/work/=/product_id/RJ000001.html", doc)
	require.Empty(t, cmp.Diff([]string{"佐藤さん", "鈴木さん"}, record.VoiceActors))
}

func TestSearchUrlContainsLocaleAndLimit(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/dlsite")
	defer cleanup()

	adapter, err := NewAdapter(AdapterOptions{Locale: "ja_JP", MaxResults: 30})
	require.NoError(t, err)

	link := adapter.searchUrl("foo bar")
	require.Contains(t, link, "locale=ja_JP")
	require.Contains(t, link, "/per_page/30/")
	require.Contains(t, link, "keyword/foo%20bar/")
}

func TestSearchFallsBackToSuggestExactlyOnce(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/dlsite")
	defer cleanup()

	fetcher := &fakeFetcher{
		pages: map[string]string{
			// listing search renders, but with zero work entries
			siteBaseUrl + "maniax/fsr/": `<html><body><ul class="n_worklist"></ul></body></html>`,
		},
		payloads: map[string]string{
			suggestUrl: `{"work":[
				{"work_name":"Foo Quest","workno":"RJ123456","work_type":"RPG","is_ana":false},
				{"work_name":"Bar Saga","workno":"RJ999999","work_type":"ADV","is_ana":true}
			]}`,
		},
	}
	adapter, err := NewAdapter(AdapterOptions{Client: fetcher})
	require.NoError(t, err)

	results, err := adapter.Search(context.Background(), "foo")
	require.NoError(t, err)

	require.Equal(t, []metadata.SearchCandidate{
		{
			Title: "Foo Quest",
			Id:    "RJ123456",
			Href:  "https://www.dlsite.com/soft/work/=/product_id/RJ123456.html",
		},
		{
			// announced-but-unreleased works route to the announce template
			Title: "Bar Saga",
			Id:    "RJ999999",
			Href:  "https://www.dlsite.com/soft/announce/=/product_id/RJ999999.html",
		},
	}, results)

	require.Len(t, fetcher.jsonCalls, 1)
	require.True(t, strings.HasPrefix(fetcher.jsonCalls[0], suggestUrl))
}

func TestSearchSkipsSuggestWhenListingHasResults(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/dlsite")
	defer cleanup()

	fetcher := &fakeFetcher{
		pages: map[string]string{
			siteBaseUrl + "maniax/fsr/": `<html><body><ul class="n_worklist">
				<li><div class="multiline_truncate">
					<a href="https://www.dlsite.com/maniax/work/=/product_id/RJ123456.html" title="Foo Quest">Foo Quest</a>
				</div></li>
			</ul></body></html>`,
		},
	}
	adapter, err := NewAdapter(AdapterOptions{Client: fetcher})
	require.NoError(t, err)

	results, err := adapter.Search(context.Background(), "foo")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "RJ123456", results[0].Id)
	require.Empty(t, fetcher.jsonCalls)
}

func TestFetchNotFoundStatus(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/dlsite")
	defer cleanup()

	href := "https://www.dlsite.com/maniax/work/=/product_id/RJ404404.html"
	fetcher := &fakeFetcher{
		pages:    map[string]string{href: `<html><body><div>page not found</div></body></html>`},
		statuses: map[string]int{href: http.StatusNotFound},
	}
	adapter, err := NewAdapter(AdapterOptions{Client: fetcher})
	require.NoError(t, err)

	record, err := adapter.Fetch(context.Background(), href)
	require.ErrorIs(t, err, metadata.ErrNotFound)
	require.Nil(t, record)
}
