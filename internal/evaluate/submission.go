package evaluate

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/avikbasu/mathsprint/internal/question"
)

var numericLiteral = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// NormalizeSubmission fills in derived fields from the raw input: Text
// defaults to Raw, Numeric is parsed from the first signed decimal literal
// in Raw when not already supplied, and Parts keeps only finite entries.
// For multi_part questions with no structured parts supplied, the raw input
// is split on commas and the segments map positionally onto the answer
// key's part names.
func NormalizeSubmission(q question.Question, s question.Submission) question.Submission {
	if s.Text == "" {
		s.Text = s.Raw
	}

	if s.Numeric != nil && !isFinite(*s.Numeric) {
		s.Numeric = nil
	}
	if s.Numeric == nil {
		if m := numericLiteral.FindString(s.Raw); m != "" {
			if v, err := strconv.ParseFloat(m, 64); err == nil {
				s.Numeric = &v
			}
		}
	}

	if q.Type == question.TypeMultiPart && len(s.Parts) == 0 && s.Raw != "" {
		s.Parts = splitParts(s.Raw, q.Answer.PartNames())
	}

	parts := make(map[string]float64, len(s.Parts))
	for k, v := range s.Parts {
		if isFinite(v) {
			parts[k] = v
		}
	}
	s.Parts = parts

	return s
}

// splitParts maps the comma-separated segments of raw onto names in order,
// taking the first numeric literal found in each segment.
func splitParts(raw string, names []string) map[string]float64 {
	segments := strings.Split(raw, ",")
	parts := make(map[string]float64)
	for i, name := range names {
		if i >= len(segments) {
			break
		}
		m := numericLiteral.FindString(segments[i])
		if m == "" {
			continue
		}
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			parts[name] = v
		}
	}
	return parts
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
