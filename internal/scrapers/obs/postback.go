package obs

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// partial postback field names, fixed by the portal
const (
	fieldScriptManager = "ScriptManager1"
	fieldAsyncPost     = "__ASYNCPOST"
	updatePanel        = "UpdatePanel1"
)

var postbackTargetRegex = regexp.MustCompile(`__doPostBack\('([^']*)'`)

// PostbackTarget extracts the event target out of a `javascript:__doPostBack('...','')`
// reference. Targets are only valid against the page generation they came from.
func PostbackTarget(href string) (string, bool) {
	groups := postbackTargetRegex.FindStringSubmatch(href)
	if len(groups) < 2 || groups[1] == "" {
		return "", false
	}
	return groups[1], true
}

type urlStrategy struct {
	name  string
	regex *regexp.Regexp
}

// statsUrlStrategies are tried in order against the delta response.
var statsUrlStrategies = []urlStrategy{
	{name: "direct-path", regex: regexp.MustCompile(`(Ders_Istatistik\.aspx[^'"]*)`)},
	{name: "popup-call", regex: regexp.MustCompile(`prolizPopup\('([^']+)'`)},
}

// ExtractStatsReference finds the statistics page reference in a partial
// postback response, it returns the reference and the name of the strategy
// that found it.
func ExtractStatsReference(body string) (ref string, strategy string, ok bool) {
	for _, s := range statsUrlStrategies {
		groups := s.regex.FindStringSubmatch(body)
		if len(groups) < 2 {
			continue
		}
		return html.UnescapeString(groups[1]), s.name, true
	}
	return "", "", false
}

// NormalizeStatsUrl makes a statistics reference absolute.
//   - absolute references are kept
//   - references starting with "/" are relative to `rootUrl` (scheme and host)
//   - anything else is relative to `baseUrl` (the student section, with a trailing slash)
func NormalizeStatsUrl(rootUrl, baseUrl, raw string) string {
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	if strings.HasPrefix(raw, "/") {
		return strings.TrimSuffix(rootUrl, "/") + raw
	}
	return baseUrl + raw
}

func ajaxPostbackForm(hidden map[string]string, target, term string) map[string]string {
	form := make(map[string]string, len(hidden)+5)
	for k, v := range hidden {
		form[k] = v
	}
	form[fieldScriptManager] = fmt.Sprintf("%s|%s", updatePanel, target)
	form[fieldEventTarget] = target
	form[fieldEventArgument] = ""
	form[fieldAsyncPost] = "true"
	form[fieldTerm] = term
	return form
}

// partialPostback replays the grades page's view state with `target` as the
// event target and returns the raw delta response.
func (c *Client) partialPostback(ctx context.Context, page *goquery.Document, target, term string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"X-MicrosoftAjax": "Delta=true",
			"Referer":         c.gradesUrl(),
		}).
		SetFormData(ajaxPostbackForm(HiddenFields(page), target, term)).
		Post(c.gradesUrl())
	if err != nil {
		return "", fmt.Errorf("partial postback: %w", err)
	}
	return res.String(), nil
}
