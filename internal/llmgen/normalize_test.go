package llmgen

import (
	"testing"

	"github.com/avikbasu/mathsprint/internal/question"
)

func defaultSlot() slotContext {
	return slotContext{
		topicPlan:  []string{"addition", "fractions"},
		difficulty: question.DifficultySame,
	}
}

func TestNormalizeNumeric(t *testing.T) {
	q, ok := normalize(Candidate{
		Prompt: "What is 3 + 4?",
		Type:   "numeric",
		Answer: map[string]any{"exact": 7.0},
		Hints:  []any{"Count up from 3."},
	}, 0, defaultSlot())
	if !ok {
		t.Fatal("expected candidate to normalize")
	}
	if q.Type != question.TypeNumeric {
		t.Errorf("type = %q, want numeric", q.Type)
	}
	if q.Answer.Exact == nil || *q.Answer.Exact != 7 {
		t.Errorf("exact = %v, want 7", q.Answer.Exact)
	}
	if q.ID != "llm-1" {
		t.Errorf("id = %q, want llm-1", q.ID)
	}
	if err := q.Validate(); err != nil {
		t.Errorf("normalized question invalid: %v", err)
	}
}

func TestNormalizeRejectsMissingPrompt(t *testing.T) {
	_, ok := normalize(Candidate{
		Type:   "numeric",
		Answer: map[string]any{"exact": 7.0},
	}, 0, defaultSlot())
	if ok {
		t.Error("expected rejection for missing prompt")
	}
}

func TestNormalizeAcceptsQuestionKey(t *testing.T) {
	q, ok := normalize(Candidate{
		Question: "What is 2 + 2?",
		Answer:   map[string]any{"exact": 4.0},
	}, 0, defaultSlot())
	if !ok {
		t.Fatal("expected candidate to normalize")
	}
	if q.Prompt != "What is 2 + 2?" {
		t.Errorf("prompt = %q", q.Prompt)
	}
}

func TestNormalizeDegradeChains(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		answer   map[string]any
		wantType question.Type
		wantOK   bool
	}{
		{
			name:     "numeric with range degrades to free_text",
			declared: "numeric",
			answer:   map[string]any{"range": []any{10.0, 20.0}},
			wantType: question.TypeFreeText,
			wantOK:   true,
		},
		{
			name:     "numeric with nothing rejects",
			declared: "numeric",
			answer:   map[string]any{},
			wantOK:   false,
		},
		{
			name:     "free_text with exact degrades to numeric",
			declared: "free_text",
			answer:   map[string]any{"exact": 42.0},
			wantType: question.TypeNumeric,
			wantOK:   true,
		},
		{
			name:     "free_text with bad range and no exact rejects",
			declared: "free_text",
			answer:   map[string]any{"range": []any{10.0}},
			wantOK:   false,
		},
		{
			name:     "multi_part with no numeric parts falls to free_text",
			declared: "multi_part",
			answer:   map[string]any{"parts": map[string]any{"a": "x"}, "range": []any{1.0, 5.0}},
			wantType: question.TypeFreeText,
			wantOK:   true,
		},
		{
			name:     "multi_part with no numeric parts falls to numeric",
			declared: "multi_part",
			answer:   map[string]any{"exact": 9.0},
			wantType: question.TypeNumeric,
			wantOK:   true,
		},
		{
			name:     "multi_part with nothing rejects",
			declared: "multi_part",
			answer:   map[string]any{},
			wantOK:   false,
		},
		{
			name:     "unknown type defaults to numeric",
			declared: "essay",
			answer:   map[string]any{"exact": 5.0},
			wantType: question.TypeNumeric,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := normalize(Candidate{
				Prompt: "placeholder prompt",
				Type:   tt.declared,
				Answer: tt.answer,
			}, 0, defaultSlot())
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if q.Type != tt.wantType {
				t.Errorf("type = %q, want %q", q.Type, tt.wantType)
			}
			if !q.Answer.Matches(q.Type) {
				t.Errorf("answer shape disagrees with type %q", q.Type)
			}
		})
	}
}

func TestNormalizeMultiPartKeepsFiniteParts(t *testing.T) {
	q, ok := normalize(Candidate{
		Prompt: "Round 127.",
		Type:   "multi_part",
		Answer: map[string]any{"parts": map[string]any{
			"nearest_ten":     130.0,
			"nearest_hundred": 100.0,
			"label":           "not a number",
		}},
	}, 0, defaultSlot())
	if !ok {
		t.Fatal("expected candidate to normalize")
	}
	if len(q.Answer.Parts) != 2 {
		t.Errorf("parts = %v, want 2 numeric entries", q.Answer.Parts)
	}
}

func TestNormalizeHints(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{"array", []any{" Think in tens. ", "", "Line up digits."}, []string{"Think in tens.", "Line up digits."}},
		{"single string", "Draw a picture.", []string{"Draw a picture."}},
		{"capped at three", []any{"a", "b", "c", "d"}, []string{"a", "b", "c"}},
		{"empty substitutes generics", []any{}, genericHints},
		{"nil substitutes generics", nil, genericHints},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeHints(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("hints = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("hint[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNormalizeConceptFallback(t *testing.T) {
	sc := defaultSlot()

	q, _ := normalize(Candidate{
		Prompt: "p", Concept: " fractions fun ",
		Answer: map[string]any{"exact": 1.0},
	}, 0, sc)
	if q.Concept != "fractions fun" {
		t.Errorf("concept = %q, want candidate's own", q.Concept)
	}

	q, _ = normalize(Candidate{
		Prompt: "p",
		Answer: map[string]any{"exact": 1.0},
	}, 1, sc)
	if q.Concept != "fractions" {
		t.Errorf("concept = %q, want slot topic", q.Concept)
	}

	q, _ = normalize(Candidate{
		Prompt: "p",
		Answer: map[string]any{"exact": 1.0},
	}, 5, sc)
	if q.Concept != "addition" {
		t.Errorf("concept = %q, want first planned topic", q.Concept)
	}

	q, _ = normalize(Candidate{
		Prompt: "p",
		Answer: map[string]any{"exact": 1.0},
	}, 0, slotContext{difficulty: question.DifficultySame})
	if q.Concept != DefaultConcept {
		t.Errorf("concept = %q, want %q", q.Concept, DefaultConcept)
	}
}
