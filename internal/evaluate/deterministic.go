package evaluate

import (
	"strings"

	"github.com/avikbasu/mathsprint/internal/question"
)

// evaluateDeterministic runs the rule-based check for a normalized
// submission. A true result is authoritative; false only means the rules
// could not confirm correctness.
func evaluateDeterministic(q question.Question, sub question.Submission) bool {
	switch q.Type {
	case question.TypeNumeric:
		return q.Answer.Exact != nil && sub.Numeric != nil &&
			*sub.Numeric == *q.Answer.Exact

	case question.TypeFreeText:
		if len(q.Answer.Range) != 2 || sub.Numeric == nil {
			return false
		}
		return *sub.Numeric >= q.Answer.Range[0] && *sub.Numeric <= q.Answer.Range[1]

	case question.TypeMultiPart:
		if len(q.Answer.Parts) == 0 {
			return false
		}
		for name, expected := range q.Answer.Parts {
			got, ok := sub.Parts[name]
			if !ok || got != expected {
				return false
			}
		}
		return true

	default:
		// Text-typed questions from external producers compare trimmed,
		// case-insensitive.
		if q.Answer.Text == "" {
			return false
		}
		return strings.EqualFold(
			strings.TrimSpace(sub.Text),
			strings.TrimSpace(q.Answer.Text),
		)
	}
}
