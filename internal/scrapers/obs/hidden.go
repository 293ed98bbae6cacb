package obs

import (
	"github.com/PuerkitoBio/goquery"
)

// HiddenFields collects every named hidden input on the page (__VIEWSTATE,
// __EVENTVALIDATION, ...). The values are tied to the page they came from and
// must be harvested again on every page load.
func HiddenFields(doc *goquery.Document) map[string]string {
	fields := map[string]string{}
	doc.Find("input[type=hidden]").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		fields[name] = input.AttrOr("value", "")
	})
	return fields
}
