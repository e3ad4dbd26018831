package fanza

import (
	"context"
	"fmt"
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

func TestExtractId(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/fanza")
	defer cleanup()

	adapter := newTestAdapter(t)

	testCases := []struct {
		href     string
		expected string
	}{
		{
			href:     digitalDetailUrl + "sitri_0011",
			expected: "sitri_0011",
		},
		{
			// tracking params and trailing slash are irrelevant
			href:     digitalDetailUrl + "sitri_0011/?i3_ref=search&i3_ord=1",
			expected: "sitri_0011",
		},
		{
			href:     monoDetailUrl + "2167apc14203/",
			expected: "2167apc14203",
		},
		{
			// both shapes normalize to the same id space
			href:     "https://www.dmm.co.jp/mono/pcgame/-/detail/=/cid=sitri_0011/?dmmref=ListRanking",
			expected: "sitri_0011",
		},
		{
			href:     "https://dlsoft.dmm.co.jp/search?service=pcgame&searchstr=foo",
			expected: "",
		},
		{
			href:     "https://www.dmm.co.jp/top/",
			expected: "",
		},
		{
			href:     "https://www.getchu.com/soft.phtml?id=748164",
			expected: "",
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, adapter.ExtractId(test.href), test.href)
		require.Equal(t, test.expected, adapter.ExtractId(test.href), test.href)
	}
}

const digitalPageFixture = `
<html><body>
<nav><span class="_n4v1-link-r18-name">R18</span></nav>
<div class="productTitle"><h1 class="productTitle__headline">Sample Quest DX</h1></div>
<script type="application/ld+json">
{"@type":"Product","aggregateRating":{"@type":"AggregateRating","ratingValue":"4.5"}}
</script>
<ul class="image-slider">
	<li><img src="//pics.dmm.co.jp/digital/pcgame/views_0669/views_0669jp-001.jpg"></li>
	<li><img src="//pics.dmm.co.jp/digital/pcgame/views_0669/views_0669jp-002.jpg"></li>
</ul>
<div id="detailGuide"><p>A grand story.</p></div>
<div class="contentsDetailTop__tableRow">
	<div>ブランド</div><div>Sample Soft</div>
</div>
<div class="contentsDetailBottom__tableRow">
	<div>配信開始日</div><div>2021/05/10</div>
</div>
<div class="contentsDetailBottom__tableRow">
	<div>ゲームジャンル</div><div>RPG</div>
</div>
<div class="contentsDetailBottom__tableRow">
	<div>シリーズ</div><div>----</div>
</div>
<div class="contentsDetailBottom__tableRow">
	<div>ジャンル</div><div><a href="#">Fantasy</a><a href="#">Drama</a></div>
</div>
<div class="contentsDetailBottom__tableRow">
	<div>原画</div><div><ul><li><a href="#">Painter A</a></li></ul></div>
</div>
<div class="contentsDetailBottom__tableRow">
	<div>声優</div><div><ul><li>Voice A</li><li>Voice B</li></ul></div>
</div>
<div class="contentsDetailBottom__tableRow">
	<div>おまけ情報</div><div>ignored</div>
</div>
</body></html>`

func TestParseDigitalPage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/fanza")
	defer cleanup()

	adapter := newTestAdapter(t)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(digitalPageFixture))
	require.NoError(t, err)
	require.True(t, isDigitalLayout(doc))

	link := digitalDetailUrl + "views_0669/"
	record := adapter.parseDigitalPage(context.Background(), link, "views_0669", doc)

	require.Equal(t, link, record.Link)
	require.Equal(t, "Sample Quest DX", *record.Title)
	require.Equal(t, "Sample Soft", *record.Maker)
	require.Equal(t, "RPG", *record.GameGenre)
	require.Equal(t, 4.5, *record.Rating)
	require.Equal(t, time.Date(2021, time.May, 10, 0, 0, 0, 0, time.UTC), *record.DateReleased)

	// the ---- sentinel means absent, not an empty series name
	require.Nil(t, record.Series)

	require.Empty(t, cmp.Diff([]string{"Fantasy", "Drama"}, record.Genres))
	require.Empty(t, cmp.Diff([]string{"Painter A"}, record.Illustrators))
	require.Empty(t, cmp.Diff([]string{"Voice A", "Voice B"}, record.VoiceActors))

	require.Equal(t, []string{
		"https://pics.dmm.co.jp/digital/pcgame/views_0669/views_0669jp-001.jpg",
		"https://pics.dmm.co.jp/digital/pcgame/views_0669/views_0669jp-002.jpg",
	}, record.PreviewImageUrls)

	require.Equal(t,
		"https://pics.dmm.co.jp/digital/pcgame/views_0669/views_0669pl.jpg",
		*record.CoverUrl,
	)

	require.Contains(t, *record.DescriptionHtml, "A grand story.")

	// the r18 nav link is present, so this is the all-ages rendering
	require.False(t, *record.Adult)
}

const monoPageFixture = `
<html><body>
<h1 id="title">Sample Quest Package Edition</h1>
<div class="wrapper-detailContents">
	<div class="wrapper-product">
		<table>
			<tr><td>ブランド：</td><td>Sample Soft</td></tr>
			<tr><td>発売日：</td><td>2021/05/10</td></tr>
			<tr><td>シリーズ：</td><td>Foo Series</td></tr>
			<tr><td>ジャンル：</td><td><a href="#">#Action</a><a href="#">#Adventure</a></td></tr>
			<tr><td>原画：</td><td><a href="#">Painter A</a></td></tr>
			<tr><td>平均評価：</td><td><img src="https://p.dmm.co.jp/p/ms/review/45.gif"></td></tr>
		</table>
	</div>
</div>
<div id="sample-image-block">
	<a href="#"><img data-lazy="https://pics.dmm.co.jp/mono/game/2167apc14203/2167apc14203js-001.jpg"></a>
</div>
<div class="page-detail"><div class="mg-b20 lh4"><p class="mg-b20">Boxed release of the grand story.</p></div></div>
</body></html>`

func TestParseMonoPage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/fanza")
	defer cleanup()

	adapter := newTestAdapter(t)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(monoPageFixture))
	require.NoError(t, err)
	require.False(t, isDigitalLayout(doc))

	link := monoDetailUrl + "2167apc14203/"
	record := adapter.parseMonoPage(context.Background(), link, "2167apc14203", doc)

	require.Equal(t, "Sample Quest Package Edition", *record.Title)
	require.Equal(t, "Sample Soft", *record.Maker)
	require.Equal(t, "Foo Series", *record.Series)
	require.Equal(t, time.Date(2021, time.May, 10, 0, 0, 0, 0, time.UTC), *record.DateReleased)
	require.Empty(t, cmp.Diff([]string{"Action", "Adventure"}, record.Genres))
	require.Empty(t, cmp.Diff([]string{"Painter A"}, record.Illustrators))

	// rating image filename 45.gif decodes to 4.5 on the 0-5 scale
	require.Equal(t, 4.5, *record.Rating)

	// lazy-load prefix rewritten to the servable hostname
	require.Equal(t, []string{
		"https://pics.dmm.co.jp/mono/game/2167apc14203/2167apc14203jp-001.jpg",
	}, record.PreviewImageUrls)

	require.Equal(t,
		"https://pics.dmm.co.jp/mono/game/2167apc14203/2167apc14203pl.jpg",
		*record.CoverUrl,
	)

	require.Contains(t, *record.DescriptionHtml, "Boxed release")
}

type fakeFetcher struct {
	pages    map[string]string
	statuses map[string]int

	documentCalls []string
}

func (f *fakeFetcher) Document(ctx context.Context, link string) (*goquery.Document, int, error) {
	f.documentCalls = append(f.documentCalls, link)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.pages[link]))
	if err != nil {
		return nil, 0, err
	}
	status := f.statuses[link]
	if status == 0 {
		status = http.StatusOK
	}
	return doc, status, nil
}

func (f *fakeFetcher) Json(ctx context.Context, link string, headers map[string]string, out any) error {
	return nil
}

func TestSearchFallsBackToMonoCatalogOnce(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/fanza")
	defer cleanup()

	monoHref := monoDetailUrl + "apc14203/"
	fetcher := &fakeFetcher{
		pages: map[string]string{
			// storefront search renders zero product tiles
			digitalSearchUrl + "foo": `<html><body><div class="results"></div></body></html>`,
			fmt.Sprintf(monoSearchUrlFmt, "foo"): `<html><body><ul id="list">
				<li><div class="tmb"><a href="` + monoHref + `"><img alt="Boxed Quest" src="x.jpg"></a></div></li>
				<li><div class="tmb"><a href="https://www.dmm.co.jp/mono/dvd/-/detail/=/cid=unrelated/"><img alt="Not a game" src="y.jpg"></a></div></li>
			</ul></body></html>`,
		},
	}
	adapter, err := NewAdapter(AdapterOptions{Client: fetcher})
	require.NoError(t, err)

	results, err := adapter.Search(context.Background(), "foo")
	require.NoError(t, err)

	// the non-pcgame listing entry is filtered out
	require.Equal(t, []metadata.SearchCandidate{
		{Title: "Boxed Quest", Id: "apc14203", Href: monoHref},
	}, results)

	// exactly one storefront fetch, then exactly one catalog fetch
	require.Equal(t, []string{
		digitalSearchUrl + "foo",
		fmt.Sprintf(monoSearchUrlFmt, "foo"),
	}, fetcher.documentCalls)
}

func TestFetchNotFoundStatus(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/fanza")
	defer cleanup()

	href := digitalDetailUrl + "gone_0001/"
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
