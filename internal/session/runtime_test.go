package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/avikbasu/mathsprint/internal/evaluate"
	"github.com/avikbasu/mathsprint/internal/question"
	"github.com/avikbasu/mathsprint/internal/telemetry"
)

// stubSource serves queued batches and records every fetch.
type stubSource struct {
	mu      sync.Mutex
	batches [][]question.Question
	calls   int
	block   chan struct{} // when non-nil, fetches after the first wait here
}

func (s *stubSource) Fetch(_ context.Context, _ BatchRequest) []question.Question {
	s.mu.Lock()
	s.calls++
	call := s.calls
	var batch []question.Question
	if len(s.batches) > 0 {
		batch = s.batches[0]
		s.batches = s.batches[1:]
	}
	s.mu.Unlock()

	if s.block != nil && call > 1 {
		<-s.block
	}
	return batch
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// blockingEval parks inside Evaluate until released.
type blockingEval struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingEval) Evaluate(_ context.Context, _ question.Question, _ question.Submission) question.Verdict {
	b.entered <- struct{}{}
	<-b.release
	return question.Verdict{Correct: true, Source: question.SourceDeterministic, Feedback: "Nice!"}
}

// stubEval marks "right" correct, everything else incorrect.
type stubEval struct{}

func (stubEval) Evaluate(_ context.Context, _ question.Question, sub question.Submission) question.Verdict {
	if sub.Raw == "right" {
		return question.Verdict{Correct: true, Source: question.SourceDeterministic, Feedback: "Nice!"}
	}
	return question.Verdict{Correct: false, Source: question.SourceHeuristic, Feedback: "Try again."}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Duration = time.Hour
	cfg.TickInterval = time.Hour // tests drive transitions directly
	cfg.RefillCooldown = time.Hour
	return cfg
}

func waitDone(t *testing.T, e *Engine) {
	t.Helper()
	select {
	case <-e.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end in time")
	}
}

func waitNotice(t *testing.T, e *Engine, kind NoticeKind) Notice {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-e.Notices():
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("no %q notice in time", kind)
		}
	}
}

func TestEngineNoInitialQuestions(t *testing.T) {
	src := &stubSource{}
	_, err := NewEngine(context.Background(), testConfig(), src, stubEval{}, zap.NewNop())
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestEngineHardDeadline(t *testing.T) {
	cfg := testConfig()
	cfg.Duration = 10 * time.Millisecond
	cfg.TickInterval = 10 * time.Millisecond // one tick total

	src := &stubSource{batches: [][]question.Question{makeQuestions("q", 1)}}
	e, err := NewEngine(context.Background(), cfg, src, stubEval{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.Start(context.Background())

	waitDone(t, e)
	snap := e.Snapshot()
	if snap.Phase != PhaseEnded {
		t.Errorf("phase = %q, want ended with no submission", snap.Phase)
	}
	if snap.TimeRemaining != 0 {
		t.Errorf("remaining = %d, want 0", snap.TimeRemaining)
	}
}

func TestEngineRefillThresholdFiresOnce(t *testing.T) {
	src := &stubSource{batches: [][]question.Question{
		makeQuestions("q", 5),
		makeQuestions("r", 10),
	}}
	e, err := NewEngine(context.Background(), testConfig(), src, stubEval{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	// First correct answer: remaining drops to 3, at the threshold.
	if _, err := e.Submit(context.Background(), "right"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitNotice(t, e, NoticeRefilled)

	if got := src.callCount(); got != 2 {
		t.Fatalf("fetches = %d, want 2 (initial + one refill)", got)
	}
	if got := len(e.Snapshot().Questions); got != 15 {
		t.Errorf("buffered questions = %d, want 15", got)
	}

	// Buffer replenished well past the threshold: no second request.
	if _, err := e.Submit(context.Background(), "right"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := src.callCount(); got != 2 {
		t.Errorf("fetches = %d, want still 2 within cooldown", got)
	}
}

func TestEngineRefillRespectsCooldown(t *testing.T) {
	src := &stubSource{batches: [][]question.Question{
		makeQuestions("q", 5),
		makeQuestions("r", 1), // buffer stays low after this refill
	}}
	e, err := NewEngine(context.Background(), testConfig(), src, stubEval{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if _, err := e.Submit(context.Background(), "right"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitNotice(t, e, NoticeRefilled)

	// remaining is back at the threshold, but the cooldown has not
	// elapsed: no second request.
	if _, err := e.Submit(context.Background(), "right"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := src.callCount(); got != 2 {
		t.Errorf("fetches = %d, want 2 before the cooldown elapses", got)
	}
}

func TestEngineRefillRetagsDuplicates(t *testing.T) {
	src := &stubSource{batches: [][]question.Question{
		makeQuestions("q", 5),
		makeQuestions("q", 5), // identical ids: dedup empties, retag kicks in
	}}
	e, err := NewEngine(context.Background(), testConfig(), src, stubEval{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if _, err := e.Submit(context.Background(), "right"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitNotice(t, e, NoticeRefilled)

	snap := e.Snapshot()
	if len(snap.Questions) != 10 {
		t.Fatalf("questions = %d, want 10", len(snap.Questions))
	}
	for _, q := range snap.Questions[5:] {
		if !strings.HasPrefix(q.ID, "q-") || len(q.ID) <= len("q-1") {
			t.Errorf("id %q should carry a synthesized suffix", q.ID)
		}
	}
}

func TestEngineExhaustionEndsSession(t *testing.T) {
	src := &stubSource{batches: [][]question.Question{
		makeQuestions("q", 1),
		nil, // refill yields nothing new
	}}
	e, err := NewEngine(context.Background(), testConfig(), src, stubEval{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	v, err := e.Submit(context.Background(), "wrong")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if v.Correct {
		t.Fatal("expected incorrect verdict")
	}

	// Acknowledging feedback on the last question defers the advance;
	// the failed refill then ends the session.
	e.Dismiss(context.Background())
	waitDone(t, e)

	snap := e.Snapshot()
	if !snap.Exhausted {
		t.Error("exhausted flag should be set")
	}
	if snap.Phase != PhaseEnded {
		t.Errorf("phase = %q, want ended", snap.Phase)
	}
}

func TestEngineDismissGate(t *testing.T) {
	src := &stubSource{batches: [][]question.Question{makeQuestions("q", 5)}}
	e, err := NewEngine(context.Background(), testConfig(), src, stubEval{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if _, err := e.Submit(context.Background(), "wrong"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Feedback must be acknowledged before another answer is accepted.
	if _, err := e.Submit(context.Background(), "right"); !errors.Is(err, ErrAwaitingDismiss) {
		t.Fatalf("err = %v, want ErrAwaitingDismiss", err)
	}
	if e.Snapshot().Cursor != 0 {
		t.Error("cursor must not advance before dismiss")
	}

	e.Dismiss(context.Background())
	if e.Snapshot().Cursor != 1 {
		t.Error("dismiss should advance past the wrong answer")
	}
	if _, err := e.Submit(context.Background(), "right"); err != nil {
		t.Errorf("submit after dismiss: %v", err)
	}
}

func TestEnginePostEndRefillDiscarded(t *testing.T) {
	block := make(chan struct{})
	src := &stubSource{
		batches: [][]question.Question{
			makeQuestions("q", 4),
			makeQuestions("r", 10),
		},
		block: block,
	}
	e, err := NewEngine(context.Background(), testConfig(), src, stubEval{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	// remaining = 2 <= threshold: refill starts and parks on the block.
	if _, err := e.Submit(context.Background(), "right"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sum := e.End()
	close(block)
	time.Sleep(50 * time.Millisecond)

	if got := len(e.Snapshot().Questions); got != 4 {
		t.Errorf("questions = %d, want 4 (late refill discarded)", got)
	}
	if sum.Total != 1 || sum.Score != 1 {
		t.Errorf("summary = %+v", sum)
	}

	// A second End is a no-op.
	if again := e.End(); again != sum {
		t.Errorf("second End changed the summary: %+v vs %+v", again, sum)
	}
}

func TestEngineSubmitAfterEnd(t *testing.T) {
	src := &stubSource{batches: [][]question.Question{makeQuestions("q", 3)}}
	e, err := NewEngine(context.Background(), testConfig(), src, stubEval{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.End()

	if _, err := e.Submit(context.Background(), "right"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("err = %v, want ErrNotRunning", err)
	}
}

func TestEngineRejectsConcurrentSubmit(t *testing.T) {
	eval := &blockingEval{entered: make(chan struct{}, 1), release: make(chan struct{})}
	src := &stubSource{batches: [][]question.Question{makeQuestions("q", 5)}}
	e, err := NewEngine(context.Background(), testConfig(), src, eval, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	type result struct {
		verdict question.Verdict
		err     error
	}
	done := make(chan result, 1)
	go func() {
		v, err := e.Submit(context.Background(), "130")
		done <- result{v, err}
	}()

	// The second submission must be rejected while the first is still
	// being graded, not recorded against the same cursor.
	<-eval.entered
	if _, err := e.Submit(context.Background(), "131"); !errors.Is(err, ErrEvaluationInFlight) {
		t.Fatalf("err = %v, want ErrEvaluationInFlight", err)
	}

	close(eval.release)
	r := <-done
	if r.err != nil {
		t.Fatalf("first submit: %v", r.err)
	}
	if !r.verdict.Correct {
		t.Fatalf("verdict = %+v", r.verdict)
	}

	snap := e.Snapshot()
	if len(snap.Responses) != 1 {
		t.Errorf("responses = %d, want 1", len(snap.Responses))
	}
	if snap.Cursor != 1 {
		t.Errorf("cursor = %d, want 1", snap.Cursor)
	}

	// The guard clears once the verdict is applied.
	eval.release = make(chan struct{})
	go func() {
		_, err := e.Submit(context.Background(), "132")
		done <- result{err: err}
	}()
	<-eval.entered
	close(eval.release)
	if r := <-done; r.err != nil {
		t.Errorf("submit after release: %v", r.err)
	}
}

func TestEngineMultiPartCommaAnswer(t *testing.T) {
	source := NewCompositeSource(nil, telemetry.NopSink{}, zap.NewNop())
	pipeline := evaluate.NewPipeline(nil, evaluate.NewJudgmentCache(10), telemetry.NopSink{}, zap.NewNop())

	cfg := testConfig()
	cfg.Concepts = []string{"place value"}
	cfg.Seed = "rounding"
	e, err := NewEngine(context.Background(), cfg, source, pipeline, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	q, ok := e.Current()
	if !ok {
		t.Fatal("no current question")
	}
	if q.Type != question.TypeMultiPart || len(q.Answer.Parts) != 2 {
		t.Fatalf("unexpected question shape: %+v", q)
	}

	names := q.Answer.PartNames()
	raw := fmt.Sprintf("%g, %g", q.Answer.Parts[names[0]], q.Answer.Parts[names[1]])
	v, err := e.Submit(context.Background(), raw)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !v.Correct {
		t.Fatalf("verdict = %+v, the comma-separated answer should grade correct", v)
	}
	if v.Source != question.SourceDeterministic {
		t.Errorf("source = %q, want deterministic", v.Source)
	}
}

func TestEndToEndSeededFlow(t *testing.T) {
	source := NewCompositeSource(nil, telemetry.NopSink{}, zap.NewNop())
	batch := source.Fetch(context.Background(), BatchRequest{
		Concepts:   []string{"addition strategies"},
		Difficulty: question.DifficultySame,
		Count:      1,
		Seed:       "abc",
	})
	if len(batch) != 1 {
		t.Fatalf("got %d questions, want 1", len(batch))
	}
	q := batch[0]
	if q.Type != question.TypeNumeric || q.Answer.Exact == nil {
		t.Fatalf("unexpected question shape: %+v", q)
	}

	pipeline := evaluate.NewPipeline(nil, evaluate.NewJudgmentCache(10), telemetry.NopSink{}, zap.NewNop())
	v := pipeline.Evaluate(context.Background(), q, question.Submission{
		Raw: fmt.Sprintf("%g", *q.Answer.Exact),
	})
	if !v.Correct {
		t.Errorf("submitting the exact answer should be correct, got %+v", v)
	}
	if v.Source != question.SourceDeterministic {
		t.Errorf("source = %q, want deterministic", v.Source)
	}
}
