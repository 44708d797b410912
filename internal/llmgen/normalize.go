package llmgen

import (
	"fmt"
	"math"
	"strings"

	"github.com/avikbasu/mathsprint/internal/question"
)

// genericHints substitute for candidates that arrive without usable hints.
var genericHints = []string{
	"Take it step by step.",
	"Double-check your work.",
}

// Candidate is the loosely-typed question shape a generative collaborator
// returns. Answer and Hints stay untyped because collaborators routinely
// bend the requested format.
type Candidate struct {
	Prompt   string         `json:"prompt"`
	Question string         `json:"question"` // alternate prompt key
	Type     string         `json:"type"`
	Answer   map[string]any `json:"answer"`
	Hints    any            `json:"hints"`
	Concept  string         `json:"concept"`
}

// slotContext tells the normalizer which slot a candidate fills.
type slotContext struct {
	topicPlan  []string
	difficulty question.Difficulty
}

// normalize coerces a candidate into a canonical Question, degrading the
// declared type when its required answer fields are absent. Returns false
// when no valid answer representation can be recovered or the prompt is
// missing.
func normalize(c Candidate, index int, sc slotContext) (question.Question, bool) {
	promptText := strings.TrimSpace(c.Prompt)
	if promptText == "" {
		promptText = strings.TrimSpace(c.Question)
	}
	if promptText == "" {
		return question.Question{}, false
	}

	qType := question.Type(strings.ToLower(c.Type))
	if !question.KnownType(qType) {
		qType = question.TypeNumeric
	}

	answer, qType, ok := normalizeAnswer(c.Answer, qType)
	if !ok {
		return question.Question{}, false
	}

	return question.Question{
		ID:         fmt.Sprintf("llm-%d", index+1),
		Concept:    conceptFor(c, index, sc),
		Difficulty: sc.difficulty,
		Type:       qType,
		Prompt:     promptText,
		Answer:     answer,
		Hints:      normalizeHints(c.Hints),
	}, true
}

// normalizeAnswer recovers an answer key for the declared type, walking the
// degrade chain when required fields are missing:
// numeric without exact but with a range -> free_text;
// free_text without a range but with exact -> numeric;
// multi_part without numeric parts -> free_text, then numeric.
func normalizeAnswer(answer map[string]any, qType question.Type) (question.AnswerKey, question.Type, bool) {
	exact, hasExact := exactFrom(answer)
	rng, hasRange := rangeFrom(answer)
	parts := partsFrom(answer)

	switch qType {
	case question.TypeNumeric:
		if hasExact {
			return question.Exact(exact), question.TypeNumeric, true
		}
		if hasRange {
			return question.Range(rng[0], rng[1]), question.TypeFreeText, true
		}
		return question.AnswerKey{}, qType, false

	case question.TypeFreeText:
		if hasRange {
			return question.Range(rng[0], rng[1]), question.TypeFreeText, true
		}
		if hasExact {
			return question.Exact(exact), question.TypeNumeric, true
		}
		return question.AnswerKey{}, qType, false

	case question.TypeMultiPart:
		if len(parts) > 0 {
			return question.Parts(parts), question.TypeMultiPart, true
		}
		if hasRange {
			return question.Range(rng[0], rng[1]), question.TypeFreeText, true
		}
		if hasExact {
			return question.Exact(exact), question.TypeNumeric, true
		}
		return question.AnswerKey{}, qType, false
	}

	return question.AnswerKey{}, qType, false
}

func exactFrom(answer map[string]any) (float64, bool) {
	v, ok := answer["exact"].(float64)
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func rangeFrom(answer map[string]any) ([2]float64, bool) {
	raw, ok := answer["range"].([]any)
	if !ok || len(raw) != 2 {
		return [2]float64{}, false
	}
	var out [2]float64
	for i, item := range raw {
		v, ok := item.(float64)
		if !ok {
			return [2]float64{}, false
		}
		out[i] = v
	}
	return out, true
}

func partsFrom(answer map[string]any) map[string]float64 {
	raw, ok := answer["parts"].(map[string]any)
	if !ok {
		return nil
	}
	parts := make(map[string]float64)
	for k, item := range raw {
		if v, ok := item.(float64); ok && !math.IsNaN(v) {
			parts[k] = v
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return parts
}

// normalizeHints accepts an array of strings or a single string, trims and
// drops empties, and keeps at most 3. Candidates with nothing usable get
// the generic strategy hints.
func normalizeHints(raw any) []string {
	var hints []string
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if t := strings.TrimSpace(s); t != "" {
					hints = append(hints, t)
				}
			}
		}
	case string:
		if t := strings.TrimSpace(v); t != "" {
			hints = append(hints, t)
		}
	}

	if len(hints) == 0 {
		return append([]string(nil), genericHints...)
	}
	if len(hints) > 3 {
		hints = hints[:3]
	}
	return hints
}

func conceptFor(c Candidate, index int, sc slotContext) string {
	if concept := strings.TrimSpace(c.Concept); concept != "" {
		return concept
	}
	if index < len(sc.topicPlan) && sc.topicPlan[index] != "" {
		return sc.topicPlan[index]
	}
	if len(sc.topicPlan) > 0 && sc.topicPlan[0] != "" {
		return sc.topicPlan[0]
	}
	return DefaultConcept
}
