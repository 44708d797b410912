// Package question defines the canonical question, submission, and verdict
// types shared by the generators, the evaluation pipeline, and the session
// runtime.
package question

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Difficulty is the requested difficulty relative to the source worksheet.
type Difficulty string

const (
	DifficultyLess Difficulty = "less"
	DifficultySame Difficulty = "same"
	DifficultyMore Difficulty = "more"
)

// ParseDifficulty maps a user-supplied string to a Difficulty, defaulting
// to DifficultySame for anything unrecognized.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyLess:
		return DifficultyLess
	case DifficultyMore:
		return DifficultyMore
	default:
		return DifficultySame
	}
}

// Type describes how a question is answered and which answer-key shape it
// carries.
type Type string

const (
	// TypeNumeric expects a single exact numeric answer.
	TypeNumeric Type = "numeric"

	// TypeFreeText expects a numeric answer inside an inclusive range
	// (estimation questions).
	TypeFreeText Type = "free_text"

	// TypeMultiPart expects several named numeric answers.
	TypeMultiPart Type = "multi_part"
)

// KnownType reports whether t is one of the three canonical types.
func KnownType(t Type) bool {
	return t == TypeNumeric || t == TypeFreeText || t == TypeMultiPart
}

// AnswerKey is a tagged union. Exactly one of Exact, Range, or Parts is set
// for the canonical types; Text carries the expected answer for legacy
// text-typed questions that arrive from an external producer.
type AnswerKey struct {
	Exact *float64           `json:"exact,omitempty"`
	Range []float64          `json:"range,omitempty"` // [low, high], inclusive
	Parts map[string]float64 `json:"parts,omitempty"`
	Text  string             `json:"text,omitempty"`

	// PartOrder preserves the authoring order of Parts so comma-separated
	// input can be mapped onto part names positionally. Optional; sorted
	// names are the fallback.
	PartOrder []string `json:"partOrder,omitempty"`
}

// Exact returns an AnswerKey for a numeric question.
func Exact(v float64) AnswerKey {
	return AnswerKey{Exact: &v}
}

// Range returns an AnswerKey for a free_text question.
func Range(low, high float64) AnswerKey {
	return AnswerKey{Range: []float64{low, high}}
}

// Parts returns an AnswerKey for a multi_part question. order, when given,
// records the authoring order of the part names.
func Parts(parts map[string]float64, order ...string) AnswerKey {
	return AnswerKey{Parts: parts, PartOrder: order}
}

// PartNames returns the part names in authoring order when PartOrder covers
// every part, otherwise sorted.
func (k AnswerKey) PartNames() []string {
	if len(k.PartOrder) == len(k.Parts) {
		covered := true
		for _, n := range k.PartOrder {
			if _, ok := k.Parts[n]; !ok {
				covered = false
				break
			}
		}
		if covered {
			return k.PartOrder
		}
	}

	names := make([]string, 0, len(k.Parts))
	for n := range k.Parts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Matches reports whether the key carries the answer shape required by t.
func (k AnswerKey) Matches(t Type) bool {
	switch t {
	case TypeNumeric:
		return k.Exact != nil && !math.IsNaN(*k.Exact)
	case TypeFreeText:
		return len(k.Range) == 2
	case TypeMultiPart:
		return len(k.Parts) > 0
	default:
		return k.Text != ""
	}
}

// Question is a single practice question. Questions are immutable after
// creation; the ID must be unique within a session's accumulated set.
type Question struct {
	ID         string     `json:"id"`
	Concept    string     `json:"concept"`
	Difficulty Difficulty `json:"difficulty"`
	Type       Type       `json:"type"`
	Prompt     string     `json:"prompt"`
	Answer     AnswerKey  `json:"answer"`
	Hints      []string   `json:"hints"`
}

// Validate checks the Question invariants: prompt present, answer-key shape
// matching the declared type, and 1-3 hints.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("question %s: empty prompt", q.ID)
	}
	if !q.Answer.Matches(q.Type) {
		return fmt.Errorf("question %s: answer key does not match type %q", q.ID, q.Type)
	}
	if len(q.Hints) < 1 || len(q.Hints) > 3 {
		return fmt.Errorf("question %s: want 1-3 hints, got %d", q.ID, len(q.Hints))
	}
	return nil
}

var numberLiteral = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// HintsLeakAnswer reports whether any hint literally contains the exact
// answer (or a part value) as a standalone number. Best-effort only.
func (q *Question) HintsLeakAnswer() bool {
	var secrets []float64
	if q.Answer.Exact != nil {
		secrets = append(secrets, *q.Answer.Exact)
	}
	for _, v := range q.Answer.Parts {
		secrets = append(secrets, v)
	}
	if len(secrets) == 0 {
		return false
	}

	for _, hint := range q.Hints {
		for _, lit := range numberLiteral.FindAllString(hint, -1) {
			n, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				continue
			}
			for _, s := range secrets {
				if n == s {
					return true
				}
			}
		}
	}
	return false
}

// Submission is a learner's normalized answer attempt. Submissions are
// ephemeral and owned by a single evaluation call.
type Submission struct {
	Raw     string             `json:"raw"`
	Text    string             `json:"text"`
	Numeric *float64           `json:"numeric"`
	Parts   map[string]float64 `json:"parts"`
}

// VerdictSource identifies which evaluation tier produced a verdict.
type VerdictSource string

const (
	SourceDeterministic VerdictSource = "deterministic"
	SourceCache         VerdictSource = "cache"
	SourceGenerative    VerdictSource = "generative"
	SourceHeuristic     VerdictSource = "heuristic"
	SourceError         VerdictSource = "error"
)

// Verdict is the outcome of evaluating one submission. Verdicts are never
// mutated after creation.
type Verdict struct {
	Correct  bool          `json:"correct"`
	Source   VerdictSource `json:"source"`
	Feedback string        `json:"feedback"`
}
