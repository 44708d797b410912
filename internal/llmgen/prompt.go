package llmgen

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/avikbasu/mathsprint/internal/question"
	"github.com/avikbasu/mathsprint/internal/worksheet"
)

const (
	maxObservationChars = 200
	maxPreviewChars     = 280
	maxHistoryPrompts   = 10
)

// authoringReminders are extra rules appended when a planned topic touches
// one of the keyword groups, steering the collaborator toward the answer
// shapes the evaluator can grade.
var authoringReminders = []struct {
	keywords []string
	reminder string
}{
	{[]string{"estimate", "estimation"},
		`For estimation questions, set type to "free_text" with answer.range [min, max].`},
	{[]string{"round", "place value"},
		`For rounding questions with two parts, use type "multi_part" and provide named parts like { "nearest_ten": 130, "nearest_hundred": 100 }.`},
	{[]string{"fraction"},
		"Keep fractions friendly: halves, thirds, quarters, fifths, and eighths only."},
	{[]string{"geometry", "area", "perimeter", "volume"},
		"State every side length explicitly so the answer can be computed from the prompt alone."},
	{[]string{"word", "story"},
		"Word problems should use concrete everyday objects and stay to one or two sentences."},
}

// buildTopicPlan rotates through the concept list so each concept shows up
// fairly across the batch.
func buildTopicPlan(concepts []string, count int) []string {
	plan := make([]string, count)
	for i := range plan {
		if len(concepts) > 0 {
			plan[i] = concepts[i%len(concepts)]
		} else {
			plan[i] = DefaultConcept
		}
	}
	return plan
}

func difficultyNote(d question.Difficulty) string {
	switch d {
	case question.DifficultyLess:
		return "Make each problem slightly easier than the worksheet—smaller numbers, single-step thinking."
	case question.DifficultyMore:
		return "Make each problem a notch harder than the worksheet—push multi-step reasoning or larger numbers, but stay appropriate for the grade."
	default:
		return "Match the worksheet difficulty—similar numbers and complexity."
	}
}

func gradeLine(grade string) string {
	if grade != "" {
		return fmt.Sprintf("These questions are for a student in grade %s.", grade)
	}
	return "Grade level is unknown. Assume late elementary math."
}

// clampText truncates s to at most max bytes, backing up to a rune boundary
// so the cut never emits invalid UTF-8.
func clampText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}

// analysisBlock renders the worksheet-analysis context into prompt lines.
func analysisBlock(a *worksheet.Analysis) string {
	if a.Empty() {
		return "No worksheet details were provided."
	}

	var snippets []string
	if a.DifficultyNotes != "" {
		snippets = append(snippets, "Worksheet difficulty notes: "+a.DifficultyNotes)
	}
	if r := a.NumberRange; r != nil && (isFinite(r.Min) || isFinite(r.Max)) {
		min, max := "unknown", "unknown"
		if isFinite(r.Min) {
			min = formatNumber(r.Min)
		}
		if isFinite(r.Max) {
			max = formatNumber(r.Max)
		}
		snippets = append(snippets, fmt.Sprintf("Typical number range spotted: min %s, max %s.", min, max))
	}
	if len(a.Observations) > 0 {
		snippets = append(snippets, "Worksheet observation: "+clampText(a.Observations[0], maxObservationChars))
	}
	if a.TextPreview != "" {
		snippets = append(snippets, "Extracted text sample: "+clampText(a.TextPreview, maxPreviewChars))
	}
	if len(snippets) == 0 {
		return "No worksheet details were provided."
	}
	return strings.Join(snippets, "\n")
}

// historyBlock lists recently asked prompts, deduplicated, newest last,
// capped at maxHistoryPrompts.
func historyBlock(history []string) string {
	seen := make(map[string]bool)
	var deduped []string
	for i := len(history) - 1; i >= 0; i-- {
		p := strings.TrimSpace(history[i])
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		deduped = append(deduped, p)
		if len(deduped) == maxHistoryPrompts {
			break
		}
	}
	if len(deduped) == 0 {
		return ""
	}

	// deduped collected newest-first; flip back to chronological order.
	var b strings.Builder
	b.WriteString("Recently asked prompts (do not repeat these):\n")
	for i := len(deduped) - 1; i >= 0; i-- {
		b.WriteString("- " + deduped[i] + "\n")
	}
	return b.String()
}

func reminderLines(topicPlan []string) []string {
	joined := strings.ToLower(strings.Join(topicPlan, " "))
	var lines []string
	for _, r := range authoringReminders {
		for _, kw := range r.keywords {
			if strings.Contains(joined, kw) {
				lines = append(lines, "- "+r.reminder)
				break
			}
		}
	}
	return lines
}

// buildPrompt assembles the system instruction and the user message for a
// generation request. It returns the topic plan so the normalizer can fill
// in missing concepts per slot.
func buildPrompt(req Request, includeAnalysis bool) (system, user string, topicPlan []string) {
	topicPlan = buildTopicPlan(req.Concepts, req.Count)

	var conceptLines []string
	for i, topic := range topicPlan {
		conceptLines = append(conceptLines, fmt.Sprintf("%d. %s", i+1, topic))
	}

	rules := []string{
		"- Vary the wording to keep questions fun but brief (1-2 sentences).",
		"- Keep numbers reasonable for the grade. Use whole numbers unless estimation specifically calls for ranges.",
		"- Include 1-2 friendly hints focused on strategy. Hints must NOT reveal the exact answer.",
		"- Use the following keys for every question: prompt, type, answer, hints, concept.",
		"- Stick to JSON only; do not add extra fields beyond those keys.",
		`- For standard calculation questions, use type "numeric" with answer.exact.`,
		`- Prefer "numeric" or "free_text" types. Use "multi_part" only when you supply named numeric parts.`,
		"- Concepts should mirror the assigned topic for each question.",
	}
	rules = append(rules, reminderLines(topicPlan)...)

	system = fmt.Sprintf(`You are a math tutor creating kid-friendly practice questions.
%s
Difficulty guidance: %s
Generate exactly %d questions using the topic order below. Rotate through the list so each concept shows up fairly.

Topic plan:
%s

Rules:
%s`,
		gradeLine(req.Grade),
		difficultyNote(req.Difficulty),
		req.Count,
		strings.Join(conceptLines, "\n"),
		strings.Join(rules, "\n"),
	)

	var userParts []string
	if includeAnalysis {
		userParts = append(userParts, "Worksheet summary:\n"+analysisBlock(req.Analysis))
	} else {
		userParts = append(userParts, "Worksheet summary:\nNo worksheet details were provided.")
	}
	if h := historyBlock(req.History); h != "" {
		userParts = append(userParts, h)
	}
	if req.Seed != "" {
		userParts = append(userParts, "Variety seed: "+req.Seed+". Use it to vary numbers and contexts.")
	}
	userParts = append(userParts, `Return JSON only in the form { "questions": [...] }.`)

	user = strings.Join(userParts, "\n")
	return system, user, topicPlan
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
