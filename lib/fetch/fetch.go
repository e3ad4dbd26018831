// Package fetch provides the shared document-fetching client the source
// adapters are built on: an instrumented resty client that hands back
// parsed markup plus the upstream status code.
package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/cookiejar"
	"time"

	"gamemeta-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Fetcher is the document-fetching capability the source adapters
// consume. Client is the network implementation; tests substitute
// canned documents.
type Fetcher interface {
	Document(ctx context.Context, link string) (*goquery.Document, int, error)
	Json(ctx context.Context, link string, headers map[string]string, out any) error
}

type Client struct {
	http *resty.Client
}

var _ Fetcher = (*Client)(nil)

type ClientOptions struct {
	// a name for the tracer instrumenting this client's requests
	TracerName string
	// if unspecified, a desktop chrome user agent is used
	UserAgent string
	// cookies attached to every request, e.g. a source's age-verification
	// cookie
	Cookies []*http.Cookie
	// defaults to 30 seconds
	Timeout time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	client := resty.New()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetCookies(opts.Cookies)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "fetch/http"
	}
	telemetry.InstrumentResty(client, tracerName)
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		dumpResponse(res)
		return nil
	})

	return &Client{http: client}, nil
}

// Document fetches a url and parses the response body as html. the
// status code is returned alongside so callers can tell a well-formed
// not-found page apart from a transport failure.
func (c *Client) Document(ctx context.Context, link string) (*goquery.Document, int, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, 0, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, res.StatusCode(), err
	}
	return doc, res.StatusCode(), nil
}

// Json fetches a url and unmarshals the response body into out.
func (c *Client) Json(ctx context.Context, link string, headers map[string]string, out any) error {
	_, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(out).
		ForceContentType("application/json").
		Get(link)
	return err
}
