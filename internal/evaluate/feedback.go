package evaluate

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/avikbasu/mathsprint/internal/question"
)

var positivePhrases = []string{
	"Nice work!",
	"Great job!",
	"You nailed it!",
	"Way to go!",
	"That's exactly right!",
}

func positivePhrase() string {
	return positivePhrases[rand.Intn(len(positivePhrases))]
}

// heuristicFeedback coaches without any external service: prefer one of
// the question's own hints, otherwise a type-specific strategy message.
func heuristicFeedback(q question.Question, sub question.Submission) string {
	if len(q.Hints) > 0 {
		return q.Hints[rand.Intn(len(q.Hints))]
	}

	switch q.Type {
	case question.TypeNumeric:
		return "Check each place value—line up the ones, tens, and hundreds before you calculate."

	case question.TypeFreeText:
		return "Try rounding each number to a friendly value first, then estimate."

	case question.TypeMultiPart:
		if missing := missingParts(q, sub); len(missing) > 0 {
			return fmt.Sprintf("Don't forget to answer every part: %s.", strings.Join(missing, ", "))
		}
		return "Compare each of your part answers against what that part of the question asks for."

	default:
		return "Break the problem into smaller steps and tackle them one at a time."
	}
}

func missingParts(q question.Question, sub question.Submission) []string {
	var missing []string
	for name := range q.Answer.Parts {
		if _, ok := sub.Parts[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
