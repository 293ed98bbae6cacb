package obs

import (
	"context"
	"errors"
	"fmt"
	"obsgrades/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_grades        = "client.grades"
	report_client_grades_course = "client.grades-courses"
)

// ErrMissingGradesTable means the grades page did not contain the grades table,
// either the session is not logged in or the page layout changed.
var ErrMissingGradesTable = errors.New("grades table not found")

const minGradeRowCells = 5

// grades table columns
const (
	columnCode   = 1
	columnName   = 2
	columnExams  = 4
	columnLetter = 6
)

// Grades reads the grades page of the active term. Courses keep the order of
// the table. ErrMissingGradesTable is the only portal condition that fails the
// whole fetch, a course whose statistics cannot be resolved keeps placeholder
// averages and malformed rows are skipped.
func (c *Client) Grades(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "client:Grades")
	defer span.End()

	fail := func(err error) (Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_client_grades, err)
		return Report{}, fmt.Errorf("obs scraper: grades: %w", err)
	}

	_, doc, err := c.getPage(ctx, c.gradesUrl(), map[string]string{
		"Referer": c.gradesUrl(),
	})
	if err != nil {
		return fail(err)
	}

	table := doc.Find("#grd_not_listesi").First()
	if table.Length() == 0 {
		return fail(ErrMissingGradesTable)
	}

	term := ResolveTerm(doc)
	if term.Fallback {
		c.tel.ReportWarning(report_client_grades, fmt.Errorf("could not read selected term, using fallback"), term.Value)
	}

	report := Report{
		Term:    term,
		Courses: []CourseGrade{},
	}
	skipped := 0

	rows := table.Find("tr")
	for i := 1; i < rows.Length(); i++ {
		err := ctx.Err()
		if err != nil {
			return fail(err)
		}

		row := rows.Eq(i)
		cells := row.Find("td")
		if cells.Length() < minGradeRowCells {
			skipped++
			continue
		}

		code := htmlutil.FlatText(cells.Eq(columnCode))
		name := htmlutil.FlatText(cells.Eq(columnName))
		letter := ""
		if cells.Length() > columnLetter {
			letter = htmlutil.FlatText(cells.Eq(columnLetter))
		}
		own := ParseOwnScores(htmlutil.JoinedText(cells.Eq(columnExams), " "))

		averages := emptyAverages()
		diag := StatsDiagnostic{Code: code}
		target, ok := statsTarget(row)
		if ok {
			averages, diag = c.classAverages(ctx, doc, code, target, term)
		}

		report.Courses = append(report.Courses, newCourseGrade(code, name, term.Value, letter, own, averages))
		report.Diagnostics = append(report.Diagnostics, diag)
	}

	if skipped > 0 {
		c.tel.ReportDebug("skipped malformed grade rows", skipped)
	}
	c.tel.ReportCount(report_client_grades_course, int64(len(report.Courses)))
	span.SetAttributes(
		attribute.String("term", term.Value),
		attribute.Int("courses", len(report.Courses)),
	)

	return report, nil
}

// statsTarget finds the postback target of a row's statistics link.
func statsTarget(row *goquery.Selection) (string, bool) {
	anchor := row.Find("a[id*=btnIstatistik]").First()
	if anchor.Length() == 0 {
		return "", false
	}
	return PostbackTarget(anchor.AttrOr("href", ""))
}
