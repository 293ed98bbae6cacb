package obs

import (
	"obsgrades/pkg/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExamContext is the exam type whose statistics the averages parser is
// currently reading.
type ExamContext int

const (
	ContextNone ExamContext = iota
	ContextMidterm
	ContextFinal
	ContextMakeup
)

func (c ExamContext) String() string {
	switch c {
	case ContextMidterm:
		return "midterm"
	case ContextFinal:
		return "final"
	case ContextMakeup:
		return "makeup"
	default:
		return "none"
	}
}

type contextTransition struct {
	marker string
	next   ExamContext
}

// contextTransitions are checked in order against every row, all matching
// markers apply so the last match in this list wins.
var contextTransitions = []contextTransition{
	{marker: "Ara Sınav", next: ContextMidterm},
	{marker: "Yarıyıl Sonu", next: ContextFinal},
	{marker: "Final", next: ContextFinal},
	{marker: "Bütünleme", next: ContextMakeup},
}

const averageMarker = "not ortalaması"

// AverageRow is a statistics table row reduced to its text.
type AverageRow struct {
	// Text is the text of the whole row with every text node trimmed.
	Text  string
	Cells []string
}

type averagesMachine struct {
	state ExamContext
	out   Averages
}

func (m *averagesMachine) step(row AverageRow) {
	for _, t := range contextTransitions {
		if strings.Contains(row.Text, t.marker) {
			m.state = t.next
		}
	}

	if m.state == ContextNone || !strings.Contains(row.Text, averageMarker) {
		return
	}
	if len(row.Cells) < 2 {
		return
	}
	value := row.Cells[1]
	switch m.state {
	case ContextMidterm:
		m.out.Midterm = value
	case ContextFinal:
		m.out.Final = value
	case ContextMakeup:
		m.out.Makeup = value
	}
}

// ParseAverageRows runs the averages state machine over rows in order. A heading
// row switches the current exam context until the next heading, an average row
// assigns its second cell to the current context.
func ParseAverageRows(rows []AverageRow) Averages {
	m := averagesMachine{state: ContextNone, out: emptyAverages()}
	for _, row := range rows {
		m.step(row)
	}
	return m.out
}

// ParseAverages reads the class averages off a course statistics page.
func ParseAverages(doc *goquery.Document) Averages {
	table := doc.Find("table#grdIstSnv").First()
	if table.Length() == 0 {
		return emptyAverages()
	}

	var rows []AverageRow
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		row := AverageRow{Text: htmlutil.FlatText(tr)}
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row.Cells = append(row.Cells, htmlutil.FlatText(td))
		})
		rows = append(rows, row)
	})
	return ParseAverageRows(rows)
}
