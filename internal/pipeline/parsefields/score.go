package parsefields

import (
	"math"
	"regexp"
	"strings"
)

// artifactLast matches anywhere in a lowercased last name. Looser than the
// token filter in ExtractName on purpose: a name that still carries a digit
// or a label fragment after extraction should not earn the bonus.
var artifactLast = regexp.MustCompile(`\d|person|number|id`)

// Score is the fixed confidence rubric and the only quality signal in the
// pipeline: 0.4 per name, 0.1 bonus for an artifact-free last name, 0.2 for
// a date of birth, capped at 1.0.
func Score(f Fields) float64 {
	score := 0.0

	if f.FirstName != "" {
		score += 0.4
	}
	if f.LastName != "" {
		score += 0.4
		if !artifactLast.MatchString(strings.ToLower(f.LastName)) {
			score += 0.1
		}
	}
	if f.DateOfBirth != "" {
		score += 0.2
	}

	return math.Min(score, 1.0)
}
