package obs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
)

const report_client_stats = "client.stats"

// classAverages resolves the class averages of a single course. Every failure
// degrades to placeholder averages, the reason is kept in the diagnostic.
func (c *Client) classAverages(ctx context.Context, page *goquery.Document, code, target string, term Term) (Averages, StatsDiagnostic) {
	ctx, span := tracer.Start(ctx, "client:classAverages")
	defer span.End()

	diag := StatsDiagnostic{Code: code, Target: target}
	degrade := func(err error) (Averages, StatsDiagnostic) {
		span.RecordError(err)
		diag.Err = err
		c.tel.ReportWarning(report_client_stats, err, code, target)
		return emptyAverages(), diag
	}

	body, err := c.partialPostback(ctx, page, target, term.Value)
	if err != nil {
		return degrade(err)
	}

	ref, strategy, ok := ExtractStatsReference(body)
	if !ok {
		return degrade(fmt.Errorf("no statistics url in postback response"))
	}
	diag.Strategy = strategy
	diag.Url = NormalizeStatsUrl(c.rootUrl, c.baseUrl.String(), ref)

	res, doc, err := c.getPage(ctx, diag.Url, map[string]string{
		"Referer": c.gradesUrl(),
	})
	if err != nil {
		return degrade(err)
	}
	if res.StatusCode() != http.StatusOK {
		return degrade(fmt.Errorf("statistics page returned %s", res.Status()))
	}

	c.tel.ReportDebug("resolved statistics", code, strategy, diag.Url)
	return ParseAverages(doc), diag
}
