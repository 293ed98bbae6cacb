// client.go contains the session shared by every request made against OBS, the
// student information system of Inonu University.

package obs

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"obsgrades/internal/components/assert"
	"obsgrades/internal/components/telemetry"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("obsgrades/scrapers/obs")

const (
	DefaultBaseUrl = "https://obs.inonu.edu.tr/oibs/std/"
	DefaultTimeout = time.Second * 30

	loginPage  = "login.aspx"
	gradesPage = "not_listesi_op.aspx"

	// login and index redirect to each other when the session breaks
	maxRedirects = 10

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type Options struct {
	// BaseUrl is the student section of the portal, relative references on
	// OBS pages resolve against it. Defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout applies to every single request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond limits the request rate, 0 means unlimited.
	RequestsPerSecond float64
	// CloudflareBypass wraps the transport with cloudflare-bp.
	CloudflareBypass bool
	// MessageOutput receives every request/response pair when set.
	MessageOutput telemetry.MessageOutput
}

// Client is an OBS session. It keeps cookies between calls and is not safe
// for concurrent use.
type Client struct {
	baseUrl *url.URL
	// rootUrl is the scheme and host of baseUrl, ex. https://obs.inonu.edu.tr
	rootUrl string
	http    *resty.Client
	tel     telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "telemetry")
	assert.NotNegative(opts.RequestsPerSecond, "requests per second")
	assert.NotNegative(opts.Timeout, "timeout")

	tel = telemetry.NewScopedAPI("obs_scraper", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %s", opts.BaseUrl)
	}
	if !strings.HasSuffix(baseUrl.Path, "/") {
		baseUrl.Path += "/"
	}
	rootUrl := fmt.Sprintf("%s://%s", baseUrl.Scheme, baseUrl.Host)

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeaders(map[string]string{
		"User-Agent":    userAgent,
		"Referer":       baseUrl.JoinPath(loginPage).String(),
		"Origin":        rootUrl,
		"Cache-Control": "no-cache",
	})
	httpClient.SetRedirectPolicy(
		resty.DomainCheckRedirectPolicy(baseUrl.Hostname()),
		resty.FlexibleRedirectPolicy(maxRedirects),
	)
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.MessageOutput)

	return &Client{
		baseUrl: baseUrl,
		rootUrl: rootUrl,
		http:    httpClient,
		tel:     tel,
	}, nil
}

func (c *Client) pageUrl(page string) string {
	return c.baseUrl.JoinPath(page).String()
}

func (c *Client) loginUrl() string {
	return c.pageUrl(loginPage)
}

func (c *Client) gradesUrl() string {
	return c.pageUrl(gradesPage)
}

func parseDocument(res *resty.Response) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
}

// finalUrl is the url of the page the response came from after following redirects.
func finalUrl(res *resty.Response) string {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL.String()
	}
	return res.Request.URL
}

// getPage fetches and parses a page, `headers` apply to this request only.
func (c *Client) getPage(ctx context.Context, endpoint string, headers map[string]string) (*resty.Response, *goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	doc, err := parseDocument(res)
	if err != nil {
		return res, nil, fmt.Errorf("parse %s: %w", endpoint, err)
	}
	return res, doc, nil
}
