package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/avikbasu/mathsprint/internal/llm"
	"github.com/avikbasu/mathsprint/internal/question"
)

// Judgment is a correctness verdict with an optional coaching tip.
type Judgment struct {
	Correct bool
	Tip     string
}

// Judge produces a judgment for a submission the deterministic rules could
// not confirm. The deterministic result is supplied as a hint the judge may
// override.
type Judge interface {
	Judge(ctx context.Context, q question.Question, sub question.Submission, deterministicCorrect bool) (*Judgment, error)
}

// LLMJudge grades submissions through the generative collaborator.
type LLMJudge struct {
	provider llm.Provider
}

// NewLLMJudge creates a judge backed by provider.
func NewLLMJudge(provider llm.Provider) *LLMJudge {
	return &LLMJudge{provider: provider}
}

func judgeSchema() *llm.Schema {
	return &llm.Schema{
		Name:        "judgment",
		Description: "A correctness verdict with a coaching tip",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"correct": map[string]any{"type": "boolean"},
				"tip":     map[string]any{"type": "string"},
			},
			"required": []any{"correct"},
		},
	}
}

func (j *LLMJudge) Judge(ctx context.Context, q question.Question, sub question.Submission, deterministicCorrect bool) (*Judgment, error) {
	ctx = llm.WithPurpose(ctx, "judge")

	resp, err := j.provider.Generate(ctx, llm.Request{
		System:    buildJudgePrompt(q, sub, deterministicCorrect),
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Grade the submission above."}},
		Schema:    judgeSchema(),
		MaxTokens: 512,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Correct bool   `json:"correct"`
		Tip     string `json:"tip"`
	}
	if err := json.Unmarshal(resp.Content, &parsed); err != nil {
		return nil, fmt.Errorf("parse judgment: %w", err)
	}

	return &Judgment{
		Correct: parsed.Correct,
		Tip:     strings.TrimSpace(parsed.Tip),
	}, nil
}

func buildJudgePrompt(q question.Question, sub question.Submission, deterministicCorrect bool) string {
	var details []string
	if q.Answer.Exact != nil {
		details = append(details, fmt.Sprintf("Exact answer: %g", *q.Answer.Exact))
	}
	if len(q.Answer.Range) == 2 {
		details = append(details, fmt.Sprintf("Acceptable range: [%g, %g]", q.Answer.Range[0], q.Answer.Range[1]))
	}
	if len(q.Answer.Parts) > 0 {
		names := make([]string, 0, len(q.Answer.Parts))
		for name := range q.Answer.Parts {
			names = append(names, name)
		}
		sort.Strings(names)
		pairs := make([]string, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, fmt.Sprintf("%s:%g", name, q.Answer.Parts[name]))
		}
		details = append(details, "Required parts (name:value): "+strings.Join(pairs, ", "))
	}
	answerBlock := "No structured answer provided."
	if len(details) > 0 {
		answerBlock = strings.Join(details, "\n")
	}

	var contextLine string
	if q.Concept != "" {
		contextLine += fmt.Sprintf("Concept focus: %s. ", q.Concept)
	}
	if q.Difficulty != "" {
		contextLine += fmt.Sprintf("Target difficulty: %s.", q.Difficulty)
	}

	numeric := "none"
	if sub.Numeric != nil {
		numeric = fmt.Sprintf("%g", *sub.Numeric)
	}
	partsJSON, _ := json.Marshal(sub.Parts)

	verdictWord := "INCORRECT"
	if deterministicCorrect {
		verdictWord = "CORRECT"
	}

	submitted := sub.Raw
	if submitted == "" {
		submitted = sub.Text
	}

	return fmt.Sprintf(`You are grading a student's short math answer.
%s
Question type: %s.
Question prompt:
"""
%s
"""

Expected answer data:
%s

Student submission:
"""
%s
"""
Parsed numeric value (if available): %s
Parsed parts: %s
Deterministic check says the answer is %s. Treat that as a hint only; you
may override it when the student's reasoning is sound.

Return strict JSON with:
- correct: boolean
- tip: string (do NOT reveal the exact answer; give strategy advice)`,
		contextLine, q.Type, q.Prompt, answerBlock,
		submitted, numeric, partsJSON, verdictWord,
	)
}
