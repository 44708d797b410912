package evaluate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/avikbasu/mathsprint/internal/question"
	"github.com/avikbasu/mathsprint/internal/telemetry"
)

func numericQuestion(exact float64) question.Question {
	return question.Question{
		ID:         "q-numeric",
		Concept:    "addition",
		Difficulty: question.DifficultySame,
		Type:       question.TypeNumeric,
		Prompt:     "What is 5 + 3?",
		Answer:     question.Exact(exact),
		Hints:      []string{"Count on from the bigger number."},
	}
}

func rawSubmission(raw string) question.Submission {
	return question.Submission{Raw: raw}
}

// stubJudge returns canned judgments, records calls, and can fail or panic.
type stubJudge struct {
	judgment *Judgment
	err      error
	panics   bool
	calls    int
}

func (s *stubJudge) Judge(_ context.Context, _ question.Question, _ question.Submission, _ bool) (*Judgment, error) {
	s.calls++
	if s.panics {
		panic("judge exploded")
	}
	return s.judgment, s.err
}

func newTestPipeline(j Judge) *Pipeline {
	return NewPipeline(j, NewJudgmentCache(10), telemetry.NopSink{}, zap.NewNop())
}

func TestNormalizeSubmission(t *testing.T) {
	q := numericQuestion(8)

	got := NormalizeSubmission(q, question.Submission{Raw: "about -12.5 apples"})
	if got.Text != "about -12.5 apples" {
		t.Errorf("text = %q, want raw passthrough", got.Text)
	}
	if got.Numeric == nil || *got.Numeric != -12.5 {
		t.Errorf("numeric = %v, want -12.5", got.Numeric)
	}

	got = NormalizeSubmission(q, question.Submission{Raw: "no numbers here"})
	if got.Numeric != nil {
		t.Errorf("numeric = %v, want nil", got.Numeric)
	}

	supplied := 9.0
	got = NormalizeSubmission(q, question.Submission{Raw: "7", Numeric: &supplied})
	if *got.Numeric != 9 {
		t.Errorf("numeric = %v, supplied value should win over raw", *got.Numeric)
	}
}

func roundingQuestion() question.Question {
	return question.Question{
		ID:      "q-round",
		Concept: "place value",
		Type:    question.TypeMultiPart,
		Prompt:  "Round 127 to the nearest ten and the nearest hundred.",
		Answer: question.Parts(map[string]float64{
			"nearest_ten":     130,
			"nearest_hundred": 100,
		}, "nearest_ten", "nearest_hundred"),
		Hints: []string{"Look at the digit to the right."},
	}
}

func TestNormalizeSubmissionSplitsMultiPart(t *testing.T) {
	q := roundingQuestion()

	tests := []struct {
		name string
		raw  string
		want map[string]float64
	}{
		{"comma separated", "130, 100", map[string]float64{"nearest_ten": 130, "nearest_hundred": 100}},
		{"labeled segments", "ten: 130, hundred: 100", map[string]float64{"nearest_ten": 130, "nearest_hundred": 100}},
		{"single value fills first part only", "130", map[string]float64{"nearest_ten": 130}},
		{"non-numeric segment skipped", "abc, 100", map[string]float64{"nearest_hundred": 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSubmission(q, question.Submission{Raw: tt.raw})
			if len(got.Parts) != len(tt.want) {
				t.Fatalf("parts = %v, want %v", got.Parts, tt.want)
			}
			for name, v := range tt.want {
				if got.Parts[name] != v {
					t.Errorf("parts[%s] = %v, want %v", name, got.Parts[name], v)
				}
			}
		})
	}

	// Structured parts win over the raw split.
	got := NormalizeSubmission(q, question.Submission{
		Raw:   "130, 100",
		Parts: map[string]float64{"nearest_ten": 999},
	})
	if got.Parts["nearest_ten"] != 999 || len(got.Parts) != 1 {
		t.Errorf("parts = %v, supplied parts should win over raw", got.Parts)
	}
}

func TestEvaluateMultiPartCommaAnswer(t *testing.T) {
	p := newTestPipeline(nil)

	v := p.Evaluate(context.Background(), roundingQuestion(), rawSubmission("130, 100"))
	if !v.Correct {
		t.Fatalf("verdict = %+v, want correct", v)
	}
	if v.Source != question.SourceDeterministic {
		t.Errorf("source = %q, want deterministic", v.Source)
	}

	v = p.Evaluate(context.Background(), roundingQuestion(), rawSubmission("120, 100"))
	if v.Correct {
		t.Errorf("verdict = %+v, want incorrect for a wrong part", v)
	}
}

func TestDeterministicTiers(t *testing.T) {
	exact := 8.0
	tests := []struct {
		name string
		q    question.Question
		sub  question.Submission
		want bool
	}{
		{"numeric exact match", numericQuestion(exact), rawSubmission("8"), true},
		{"numeric embedded in words", numericQuestion(exact), rawSubmission("it is 8!"), true},
		{"numeric mismatch", numericQuestion(exact), rawSubmission("9"), false},
		{"numeric no number", numericQuestion(exact), rawSubmission("eight"), false},
		{
			"free_text range membership",
			question.Question{Type: question.TypeFreeText, Answer: question.Range(90, 110)},
			rawSubmission("about 100"),
			true,
		},
		{
			"free_text below range",
			question.Question{Type: question.TypeFreeText, Answer: question.Range(90, 110)},
			rawSubmission("80"),
			false,
		},
		{
			"multi_part all parts equal",
			question.Question{Type: question.TypeMultiPart, Answer: question.Parts(map[string]float64{"nearest_ten": 130, "nearest_hundred": 100})},
			question.Submission{Parts: map[string]float64{"nearest_ten": 130, "nearest_hundred": 100}},
			true,
		},
		{
			"multi_part missing part",
			question.Question{Type: question.TypeMultiPart, Answer: question.Parts(map[string]float64{"nearest_ten": 130, "nearest_hundred": 100})},
			question.Submission{Parts: map[string]float64{"nearest_ten": 130}},
			false,
		},
		{
			"text answer case-insensitive",
			question.Question{Type: "text", Answer: question.AnswerKey{Text: "Triangle"}},
			rawSubmission("  triangle "),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluateDeterministic(tt.q, NormalizeSubmission(tt.q, tt.sub))
			if got != tt.want {
				t.Errorf("deterministic = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateDeterministicSkipsJudge(t *testing.T) {
	judge := &stubJudge{judgment: &Judgment{Correct: false, Tip: "should not be used"}}
	p := newTestPipeline(judge)

	v := p.Evaluate(context.Background(), numericQuestion(8), rawSubmission("8"))
	if !v.Correct {
		t.Error("expected correct verdict")
	}
	if v.Source != question.SourceDeterministic {
		t.Errorf("source = %q, want deterministic", v.Source)
	}
	if v.Feedback == "" {
		t.Error("expected a positive phrase")
	}
	if judge.calls != 0 {
		t.Errorf("judge called %d times, want 0", judge.calls)
	}
}

func TestEvaluateJudgeVerdictIsCached(t *testing.T) {
	judge := &stubJudge{judgment: &Judgment{Correct: true, Tip: "Good reasoning."}}
	p := newTestPipeline(judge)
	q := numericQuestion(8)

	v := p.Evaluate(context.Background(), q, rawSubmission("9"))
	if v.Source != question.SourceGenerative {
		t.Fatalf("source = %q, want generative", v.Source)
	}
	if !v.Correct || v.Feedback != "Good reasoning." {
		t.Errorf("verdict = %+v", v)
	}

	// Same submission again: served from cache, judge not re-invoked.
	v = p.Evaluate(context.Background(), q, rawSubmission("9"))
	if v.Source != question.SourceCache {
		t.Errorf("source = %q, want cache", v.Source)
	}
	if !v.Correct || v.Feedback != "Good reasoning." {
		t.Errorf("cached verdict changed: %+v", v)
	}
	if judge.calls != 1 {
		t.Errorf("judge called %d times, want 1", judge.calls)
	}
}

func TestEvaluateJudgeFailureFallsToHeuristic(t *testing.T) {
	judge := &stubJudge{err: errors.New("transport down")}
	p := newTestPipeline(judge)

	v := p.Evaluate(context.Background(), numericQuestion(8), rawSubmission("9"))
	if v.Correct {
		t.Error("expected incorrect verdict")
	}
	if v.Source != question.SourceHeuristic {
		t.Errorf("source = %q, want heuristic", v.Source)
	}
	if v.Feedback != "Count on from the bigger number." {
		t.Errorf("feedback = %q, want the question's own hint", v.Feedback)
	}
}

func TestEvaluateNoJudgeUsesHeuristic(t *testing.T) {
	p := newTestPipeline(nil)

	q := question.Question{
		ID:     "q-parts",
		Type:   question.TypeMultiPart,
		Prompt: "Round 127 to the nearest ten and hundred.",
		Answer: question.Parts(map[string]float64{"nearest_ten": 130, "nearest_hundred": 100}),
	}
	v := p.Evaluate(context.Background(), q, question.Submission{
		Parts: map[string]float64{"nearest_ten": 120},
	})
	if v.Source != question.SourceHeuristic {
		t.Fatalf("source = %q, want heuristic", v.Source)
	}
	if !strings.Contains(v.Feedback, "nearest_hundred") {
		t.Errorf("feedback = %q, should name the missing part", v.Feedback)
	}
}

func TestEvaluatePanicBecomesErrorVerdict(t *testing.T) {
	judge := &stubJudge{panics: true}
	p := newTestPipeline(judge)

	v := p.Evaluate(context.Background(), numericQuestion(8), rawSubmission("9"))
	if v.Source != question.SourceError {
		t.Errorf("source = %q, want error", v.Source)
	}
	if v.Feedback == "" {
		t.Error("error verdict must still carry feedback")
	}
}

func TestJudgmentCacheFIFO(t *testing.T) {
	const capacity = 5
	c := NewJudgmentCache(capacity)

	for i := 0; i <= capacity; i++ {
		c.Put(fmt.Sprintf("key-%d", i), question.Verdict{Feedback: fmt.Sprintf("v%d", i)})
	}

	if c.Len() != capacity {
		t.Errorf("len = %d, want %d", c.Len(), capacity)
	}
	if _, ok := c.Get("key-0"); ok {
		t.Error("oldest entry should be evicted")
	}
	for i := 1; i <= capacity; i++ {
		if _, ok := c.Get(fmt.Sprintf("key-%d", i)); !ok {
			t.Errorf("key-%d should be present", i)
		}
	}
}

func TestJudgmentCacheGetDoesNotRefresh(t *testing.T) {
	c := NewJudgmentCache(2)
	c.Put("a", question.Verdict{})
	c.Put("b", question.Verdict{})

	// FIFO, not LRU: a recent Get must not save "a" from eviction.
	c.Get("a")
	c.Put("c", question.Verdict{})

	if _, ok := c.Get("a"); ok {
		t.Error("entry a should be evicted despite recent access")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("entry b should survive")
	}
}

func TestCacheKeyStableAcrossPartOrder(t *testing.T) {
	q := numericQuestion(8)
	a := question.Submission{Parts: map[string]float64{"x": 1, "y": 2}}
	b := question.Submission{Parts: map[string]float64{"y": 2, "x": 1}}

	if CacheKey(q, a) != CacheKey(q, b) {
		t.Error("cache key should not depend on part iteration order")
	}
}

func TestCacheKeyFallsBackToPrompt(t *testing.T) {
	q := question.Question{Prompt: "What is 1 + 1?"}
	if !strings.Contains(CacheKey(q, question.Submission{}), "What is 1 + 1?") {
		t.Error("key should use the prompt when the id is empty")
	}
}
