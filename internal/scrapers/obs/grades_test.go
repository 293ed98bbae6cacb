package obs

import (
	"context"
	"obsgrades/internal/components/telemetry"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	targetMath    = "grd_not_listesi$ctl02$btnIstatistik"
	targetPhysics = "grd_not_listesi$ctl03$btnIstatistik"
	targetTurkish = "grd_not_listesi$ctl05$btnIstatistik"
)

const makeupStatsHtml = `<html><body><table id="grdIstSnv">
	<tr><td colspan="2">Ara Sınav</td></tr>
	<tr><td>Sınav not ortalaması</td><td>40</td></tr>
	<tr><td colspan="2">Bütünleme Sınavı</td></tr>
	<tr><td>Sınav not ortalaması</td><td>35,5</td></tr>
</table></body></html>`

func setupGradesPortal(t testing.TB) *fakePortal {
	portal := newFakePortal(t)
	portal.deltas[targetMath] = "1|#||4|98|updatePanel|UpdatePanel1|<div></div>|" +
		"0|scriptBlock|ScriptContentNoTags|window.open('Ders_Istatistik.aspx?id=MAT101','_blank');|"
	portal.deltas[targetPhysics] = "1|#||4|0|updatePanel|UpdatePanel1||" +
		"0|scriptBlock|ScriptContentNoTags|prolizPopup('/oibs/acd/ist_goster.aspx?id=FIZ101&amp;t=20241','',800,600);|"
	portal.statsPages["MAT101"] = statsPageHtml
	portal.statsPages["FIZ101"] = makeupStatsHtml
	return portal
}

func TestGrades(t *testing.T) {
	portal := setupGradesPortal(t)
	tel := &telemetry.Recorder{}
	client := portal.loggedInClient(t, tel)

	report, err := client.Grades(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, Term{Value: "20241"}, report.Term)

	expected := []CourseGrade{
		{
			Code:        "MAT101",
			Name:        "Matematik I",
			TermId:      "20241",
			LetterGrade: "CB",
			Midterm:     ExamStats{Score: "80", ClassAverage: "54,3"},
			Final:       ExamStats{Score: "65", ClassAverage: "61,2"},
			Makeup:      ExamStats{Score: "-", ClassAverage: "?"},
		},
		{
			Code:        "FIZ101",
			Name:        "Fizik I",
			TermId:      "20241",
			LetterGrade: "FF",
			Midterm:     ExamStats{Score: "45", ClassAverage: "40"},
			Final:       ExamStats{Score: "30", ClassAverage: "?"},
			Makeup:      ExamStats{Score: "GR", ClassAverage: "35,5"},
		},
		{
			Code:        "TUR101",
			Name:        "Türk Dili I",
			TermId:      "20241",
			LetterGrade: "",
			Midterm:     ExamStats{Score: "80", ClassAverage: "?"},
			Final:       ExamStats{Score: "--", ClassAverage: "?"},
			Makeup:      ExamStats{Score: "-", ClassAverage: "?"},
		},
		{
			Code:        "ENG101",
			Name:        "İngilizce I",
			TermId:      "20241",
			LetterGrade: "",
			Midterm:     ExamStats{Score: "-", ClassAverage: "?"},
			Final:       ExamStats{Score: "-", ClassAverage: "?"},
			Makeup:      ExamStats{Score: "-", ClassAverage: "?"},
		},
	}
	if diff := cmp.Diff(expected, report.Courses); diff != "" {
		t.Fatalf("courses mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, report.Diagnostics, 4)
	require.Equal(t, "direct-path", report.Diagnostics[0].Strategy)
	require.Equal(t, portal.baseUrl()+"Ders_Istatistik.aspx?id=MAT101", report.Diagnostics[0].Url)
	require.Equal(t, "popup-call", report.Diagnostics[1].Strategy)
	require.Equal(t, portal.server.URL+"/oibs/acd/ist_goster.aspx?id=FIZ101&t=20241", report.Diagnostics[1].Url)
	require.Equal(t, targetTurkish, report.Diagnostics[2].Target)
	require.Error(t, report.Diagnostics[2].Err)
	require.Equal(t, "", report.Diagnostics[3].Target)
	require.NoError(t, report.Diagnostics[3].Err)

	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, report_client_stats), 1)
	counts := tel.Reports(telemetry.REPORT_COUNT, report_client_grades_course)
	require.Len(t, counts, 1)
	require.Equal(t, int64(4), counts[0].Count)
}

func TestGradesPartialPostbacks(t *testing.T) {
	portal := setupGradesPortal(t)
	client := portal.loggedInClient(t, &telemetry.Recorder{})

	_, err := client.Grades(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	posts := portal.findRequests("POST", "/oibs/std/not_listesi_op.aspx")
	require.Len(t, posts, 3)

	targets := []string{targetMath, targetPhysics, targetTurkish}
	for i, post := range posts {
		require.Equal(t, targets[i], post.Form["__EVENTTARGET"])
		require.Equal(t, "UpdatePanel1|"+targets[i], post.Form["ScriptManager1"])
		require.Equal(t, "", post.Form["__EVENTARGUMENT"])
		require.Equal(t, "true", post.Form["__ASYNCPOST"])
		require.Equal(t, "20241", post.Form["cmbDonemler"])
		require.Equal(t, "grades-viewstate-7", post.Form["__VIEWSTATE"])
		require.Equal(t, "grades-validation-7", post.Form["__EVENTVALIDATION"])
		require.Equal(t, "Delta=true", post.Header.Get("X-MicrosoftAjax"))
		require.Equal(t, portal.baseUrl()+"not_listesi_op.aspx", post.Header.Get("Referer"))
	}

	// the ajax marker belongs to the partial postbacks only
	for _, r := range portal.allRequests() {
		isPostback := r.Method == "POST" && r.Path == "/oibs/std/not_listesi_op.aspx"
		if !isPostback {
			require.Empty(t, r.Header.Get("X-MicrosoftAjax"), "%s %s", r.Method, r.Path)
		}
	}

	stats := portal.findRequests("GET", "/oibs/std/Ders_Istatistik.aspx")
	require.Len(t, stats, 1)
	require.Equal(t, portal.baseUrl()+"not_listesi_op.aspx", stats[0].Header.Get("Referer"))

	// requests outside of the grades flow keep the login referer
	logins := portal.findRequests("GET", "/oibs/std/login.aspx")
	require.Equal(t, portal.baseUrl()+"login.aspx", logins[0].Header.Get("Referer"))
}

func TestGradesStatsFailuresDegrade(t *testing.T) {
	portal := newFakePortal(t)
	// unreachable statistics host
	portal.deltas[targetMath] = "0|scriptBlock|ScriptContentNoTags|prolizPopup('http://127.0.0.1:1/ist.aspx');|"
	// statistics page that is not found
	portal.deltas[targetPhysics] = "0|scriptBlock|ScriptContentNoTags|prolizPopup('/oibs/acd/ist_goster.aspx?id=NONE');|"
	// no statistics url at all
	portal.deltas[targetTurkish] = "1|#||4|0|updatePanel|UpdatePanel1||"

	tel := &telemetry.Recorder{}
	client := portal.loggedInClient(t, tel)

	report, err := client.Grades(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, report.Courses, 4)

	for _, c := range report.Courses {
		require.Equal(t, AveragePlaceholder, c.Midterm.ClassAverage, c.Code)
		require.Equal(t, AveragePlaceholder, c.Final.ClassAverage, c.Code)
		require.Equal(t, AveragePlaceholder, c.Makeup.ClassAverage, c.Code)
	}
	// own scores are untouched by the failed statistics
	require.Equal(t, "80", report.Courses[0].Midterm.Score)
	require.Equal(t, "65", report.Courses[0].Final.Score)
	require.Equal(t, "GR", report.Courses[1].Makeup.Score)
	require.Equal(t, "--", report.Courses[2].Final.Score)

	require.Error(t, report.Diagnostics[0].Err)
	require.Equal(t, "popup-call", report.Diagnostics[0].Strategy)
	require.ErrorContains(t, report.Diagnostics[1].Err, "404")
	require.Equal(t, portal.server.URL+"/oibs/acd/ist_goster.aspx?id=NONE", report.Diagnostics[1].Url)
	require.Error(t, report.Diagnostics[2].Err)
	require.Empty(t, report.Diagnostics[2].Strategy)
	require.NoError(t, report.Diagnostics[3].Err)
	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, report_client_stats), 3)
}

func TestGradesUnauthenticated(t *testing.T) {
	portal := newFakePortal(t)
	tel := &telemetry.Recorder{}
	client := portal.newClient(t, tel)

	_, err := client.Grades(context.Background())
	require.ErrorIs(t, err, ErrMissingGradesTable)
	require.Len(t, tel.Reports(telemetry.REPORT_BROKEN, report_client_grades), 1)
}

func TestGradesTermFallback(t *testing.T) {
	portal := setupGradesPortal(t)
	portal.gradesHtml = strings.Replace(gradesPageHtml, `selected="selected" `, "", 1)
	tel := &telemetry.Recorder{}
	client := portal.loggedInClient(t, tel)

	report, err := client.Grades(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, Term{Value: FallbackTerm, Fallback: true}, report.Term)
	for _, c := range report.Courses {
		require.Equal(t, FallbackTerm, c.TermId)
	}
	for _, post := range portal.findRequests("POST", "/oibs/std/not_listesi_op.aspx") {
		require.Equal(t, FallbackTerm, post.Form["cmbDonemler"])
	}
	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, report_client_grades), 1)
}

func TestGradesMalformedRows(t *testing.T) {
	portal := newFakePortal(t)
	portal.gradesHtml = `<html><body>
		<input type="hidden" name="__VIEWSTATE" value="grades-viewstate-7" />
		<table id="grd_not_listesi">
			<tr><th>#</th><th>Kod</th><th>Ad</th><th>Durum</th><th>Notlar</th></tr>
			<tr><td>1</td><td>A101</td><td>A</td><td></td><td>Vize : 10</td><td></td><td>AA</td></tr>
			<tr><td>2</td><td>B101</td></tr>
			<tr><td>3</td><td>C101</td><td>C</td><td></td><td>Final : 20</td><td></td><td>BB</td></tr>
			<tr></tr>
			<tr><td>4</td><td>D101</td><td>D</td><td></td></tr>
		</table>
	</body></html>`
	client := portal.loggedInClient(t, &telemetry.Recorder{})

	report, err := client.Grades(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, report.Courses, 2)
	require.Equal(t, "A101", report.Courses[0].Code)
	require.Equal(t, "10", report.Courses[0].Midterm.Score)
	require.Equal(t, "AA", report.Courses[0].LetterGrade)
	require.Equal(t, "C101", report.Courses[1].Code)
	require.Equal(t, "20", report.Courses[1].Final.Score)
	require.Len(t, portal.findRequests("POST", "/oibs/std/not_listesi_op.aspx"), 0)
}

func TestGradesCancelled(t *testing.T) {
	portal := setupGradesPortal(t)
	client := portal.loggedInClient(t, &telemetry.Recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Grades(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrMissingGradesTable)
}
