package obs

import (
	"regexp"
)

// the value after a label is an opaque token, "80", "--", "GR", "DZ", ...
// cells often pad the colon with &nbsp; which \s does not match.
var (
	midtermScoreRegex = regexp.MustCompile(`Vize[\s\x{00A0}]*:[\s\x{00A0}]*([\p{L}\p{N}_-]+)`)
	finalScoreRegex   = regexp.MustCompile(`Final[\s\x{00A0}]*:[\s\x{00A0}]*([\p{L}\p{N}_-]+)`)
	makeupScoreRegex  = regexp.MustCompile(`Bütünleme[\s\x{00A0}]*:[\s\x{00A0}]*([\p{L}\p{N}_-]+)`)
)

func matchLabel(regex *regexp.Regexp, text string, fallback string) string {
	groups := regex.FindStringSubmatch(text)
	if len(groups) < 2 {
		return fallback
	}
	return groups[1]
}

// ParseOwnScores reads the student's own scores from the exam cell of a grades
// row, ex. "Vize : 80 Final : --". Missing labels keep ScorePlaceholder.
func ParseOwnScores(text string) OwnScores {
	scores := emptyOwnScores()
	scores.Midterm = matchLabel(midtermScoreRegex, text, scores.Midterm)
	scores.Final = matchLabel(finalScoreRegex, text, scores.Final)
	scores.Makeup = matchLabel(makeupScoreRegex, text, scores.Makeup)
	return scores
}
