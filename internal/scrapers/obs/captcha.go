package obs

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const report_client_captcha = "client.captcha"

// CaptchaSolver turns a captcha image into the code typed in it. It is called
// synchronously during Login and may block (ex. waiting for a person to read it).
type CaptchaSolver interface {
	SolveCaptcha(ctx context.Context, image []byte) (string, error)
}

// SolverFunc adapts a function into a CaptchaSolver.
type SolverFunc func(ctx context.Context, image []byte) (string, error)

func (f SolverFunc) SolveCaptcha(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// captchaImageUrl finds the captcha image on the login page, relative sources
// resolve against the student section regardless of a leading slash.
func (c *Client) captchaImageUrl(doc *goquery.Document) (string, bool) {
	src := strings.TrimSpace(doc.Find("#imgCaptchaImg").AttrOr("src", ""))
	if src == "" {
		return "", false
	}
	if strings.HasPrefix(src, "http") {
		return src, true
	}
	return c.baseUrl.String() + strings.TrimLeft(src, "/"), true
}

// fetchCaptcha downloads the captcha image into memory. A page without a
// captcha or an image that fails to load yields nil.
func (c *Client) fetchCaptcha(ctx context.Context, doc *goquery.Document) ([]byte, error) {
	endpoint, ok := c.captchaImageUrl(doc)
	if !ok {
		c.tel.ReportWarning(report_client_captcha, fmt.Errorf("no captcha image on login page"))
		return nil, nil
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch captcha: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		c.tel.ReportWarning(
			report_client_captcha,
			fmt.Errorf("unexpected status fetching captcha"),
			res.Status(),
			endpoint,
		)
		return nil, nil
	}
	return res.Body(), nil
}
