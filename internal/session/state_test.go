package session

import (
	"fmt"
	"testing"

	"github.com/avikbasu/mathsprint/internal/question"
)

func makeQuestions(prefix string, n int) []question.Question {
	out := make([]question.Question, n)
	for i := range out {
		out[i] = question.Question{
			ID:         fmt.Sprintf("%s-%d", prefix, i+1),
			Concept:    "addition",
			Difficulty: question.DifficultySame,
			Type:       question.TypeNumeric,
			Prompt:     fmt.Sprintf("What is %d + %d?", i, i),
			Answer:     question.Exact(float64(2 * i)),
			Hints:      []string{"Count it out."},
		}
	}
	return out
}

func testRetag(q question.Question) question.Question {
	q.ID = q.ID + "-retagged"
	return q
}

func TestAppendBatchFiltersSeenIDs(t *testing.T) {
	s := newState(60)
	s.appendBatch(makeQuestions("q", 3), testRetag)

	batch := append(makeQuestions("q", 3), makeQuestions("r", 2)...)
	added := s.appendBatch(batch, testRetag)

	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if len(s.Questions) != 5 {
		t.Errorf("questions = %d, want 5", len(s.Questions))
	}
}

func TestAppendBatchRetagsTotalCollision(t *testing.T) {
	s := newState(60)
	s.appendBatch(makeQuestions("q", 3), testRetag)

	added := s.appendBatch(makeQuestions("q", 3), testRetag)
	if added != 3 {
		t.Fatalf("added = %d, want 3 (retagged instead of discarded)", added)
	}
	if s.Questions[3].ID != "q-1-retagged" {
		t.Errorf("id = %q, want retagged", s.Questions[3].ID)
	}
}

func TestAppendBatchEmptyAddsNothing(t *testing.T) {
	s := newState(60)
	if added := s.appendBatch(nil, testRetag); added != 0 {
		t.Errorf("added = %d, want 0", added)
	}
}

func TestApplyTickHardDeadline(t *testing.T) {
	s := newState(2)
	s.appendBatch(makeQuestions("q", 1), testRetag)

	s.applyTick()
	if s.Phase != PhaseRunning || s.TimeRemaining != 1 {
		t.Fatalf("after first tick: phase=%q remaining=%d", s.Phase, s.TimeRemaining)
	}

	s.applyTick()
	if s.Phase != PhaseEnded {
		t.Error("session must end at zero even mid-question")
	}
	if s.TimeRemaining != 0 {
		t.Errorf("remaining = %d, want 0", s.TimeRemaining)
	}

	// Ticks after the terminal phase are no-ops.
	s.applyTick()
	if s.TimeRemaining != 0 {
		t.Error("ended state must not mutate")
	}
}

func TestAdvanceThroughBuffer(t *testing.T) {
	s := newState(60)
	s.appendBatch(makeQuestions("q", 2), testRetag)

	s.advance()
	if s.Cursor != 1 || s.Phase != PhaseRunning {
		t.Fatalf("cursor=%d phase=%q", s.Cursor, s.Phase)
	}

	// Buffer spent, source not known-exhausted: defer the advance.
	s.advance()
	if s.Phase != PhaseWaitingForMore || !s.PendingAdvance {
		t.Fatalf("phase=%q pending=%v, want waiting with pending advance", s.Phase, s.PendingAdvance)
	}
	if s.Cursor != 1 {
		t.Errorf("cursor = %d, deferred advance must not move it", s.Cursor)
	}

	// Refill lands: the deferred advance resolves.
	s.appendBatch(makeQuestions("r", 2), testRetag)
	s.resolveWaiting()
	if s.Phase != PhaseRunning || s.Cursor != 2 || s.PendingAdvance {
		t.Errorf("phase=%q cursor=%d pending=%v", s.Phase, s.Cursor, s.PendingAdvance)
	}
}

func TestAdvanceEndsWhenExhausted(t *testing.T) {
	s := newState(60)
	s.appendBatch(makeQuestions("q", 1), testRetag)
	s.Exhausted = true

	s.advance()
	if s.Phase != PhaseEnded {
		t.Errorf("phase = %q, want ended when buffer spent and source exhausted", s.Phase)
	}
}

func TestRecordVerdictScoring(t *testing.T) {
	s := newState(60)
	qs := makeQuestions("q", 2)
	s.appendBatch(qs, testRetag)

	s.recordVerdict(qs[0], "2", question.Verdict{Correct: true, Source: question.SourceDeterministic})
	s.recordVerdict(qs[1], "99", question.Verdict{Correct: false, Source: question.SourceHeuristic})

	if s.Score != 1 {
		t.Errorf("score = %d, want 1", s.Score)
	}
	sum := s.summary()
	if sum.Score != 1 || sum.Total != 2 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	s := newState(60)
	s.end()
	s.end()
	if s.Phase != PhaseEnded {
		t.Errorf("phase = %q", s.Phase)
	}
}
