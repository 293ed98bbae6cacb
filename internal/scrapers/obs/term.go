package obs

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const fieldTerm = "cmbDonemler"

// ResolveTerm reads the selected option of the term selector, FallbackTerm is
// used when it cannot be read.
func ResolveTerm(doc *goquery.Document) Term {
	selected := doc.Find("select#" + fieldTerm + " option[selected]").First()
	if selected.Length() == 0 {
		return Term{Value: FallbackTerm, Fallback: true}
	}
	value, ok := selected.Attr("value")
	if !ok {
		// browsers submit the option text when there is no value attribute
		value = selected.Text()
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Term{Value: FallbackTerm, Fallback: true}
	}
	return Term{Value: value}
}
