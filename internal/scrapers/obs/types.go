package obs

const (
	// ScorePlaceholder fills a student's own score that the grades page does not show.
	ScorePlaceholder = "-"
	// AveragePlaceholder fills a class average that could not be resolved.
	AveragePlaceholder = "?"
	// FallbackTerm is used when the term selector cannot be read, it is not
	// guaranteed to be the active term.
	FallbackTerm = "20251"
)

// ExamStats values are kept as the portal renders them ("80", "--", "GR", ...).
type ExamStats struct {
	Score        string `json:"score"`
	ClassAverage string `json:"class_average"`
}

type CourseGrade struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	TermId      string    `json:"term_id"`
	LetterGrade string    `json:"letter_grade"`
	Midterm     ExamStats `json:"midterm"`
	Final       ExamStats `json:"final"`
	Makeup      ExamStats `json:"makeup"`
}

// OwnScores are the student's own scores read from the grades page.
type OwnScores struct {
	Midterm string
	Final   string
	Makeup  string
}

func emptyOwnScores() OwnScores {
	return OwnScores{
		Midterm: ScorePlaceholder,
		Final:   ScorePlaceholder,
		Makeup:  ScorePlaceholder,
	}
}

// Averages are the class averages read from a course's statistics page.
type Averages struct {
	Midterm string
	Final   string
	Makeup  string
}

func emptyAverages() Averages {
	return Averages{
		Midterm: AveragePlaceholder,
		Final:   AveragePlaceholder,
		Makeup:  AveragePlaceholder,
	}
}

func newCourseGrade(code, name, term, letter string, own OwnScores, avg Averages) CourseGrade {
	return CourseGrade{
		Code:        code,
		Name:        name,
		TermId:      term,
		LetterGrade: letter,
		Midterm:     ExamStats{Score: own.Midterm, ClassAverage: avg.Midterm},
		Final:       ExamStats{Score: own.Final, ClassAverage: avg.Final},
		Makeup:      ExamStats{Score: own.Makeup, ClassAverage: avg.Makeup},
	}
}

// Term is the term a grades page was read for. Fallback is set when the
// selector could not be read and FallbackTerm was used instead.
type Term struct {
	Value    string `json:"value"`
	Fallback bool   `json:"fallback"`
}

// StatsDiagnostic records how the class averages of a course were resolved.
type StatsDiagnostic struct {
	Code string `json:"code"`
	// Target is the postback event target, empty when the row had no statistics link.
	Target string `json:"target,omitempty"`
	// Strategy is the name of the url extraction strategy that matched, if any.
	Strategy string `json:"strategy,omitempty"`
	Url      string `json:"url,omitempty"`
	Err      error  `json:"-"`
}

// Report is the result of a single grades page fetch.
type Report struct {
	Term        Term              `json:"term"`
	Courses     []CourseGrade     `json:"courses"`
	Diagnostics []StatsDiagnostic `json:"diagnostics"`
}
