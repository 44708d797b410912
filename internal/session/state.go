package session

import (
	"github.com/avikbasu/mathsprint/internal/question"
)

// Phase is the session lifecycle state.
type Phase string

const (
	// PhaseRunning accepts submissions.
	PhaseRunning Phase = "running"

	// PhaseWaitingForMore means the learner finished the buffer and an
	// advance is deferred until a refill lands.
	PhaseWaitingForMore Phase = "waiting_for_more"

	// PhaseEnded is terminal; no state mutates after it.
	PhaseEnded Phase = "ended"
)

// Response pairs a raw submission with the verdict it earned.
type Response struct {
	QuestionID string
	Raw        string
	Verdict    question.Verdict
}

// Summary is the final tally emitted at session end.
type Summary struct {
	Score     int
	Total     int
	Exhausted bool
}

// State holds all mutable session data. Transitions are plain methods with
// no I/O or locking so they can be unit-tested directly; the Engine
// serializes access.
type State struct {
	Cursor          int
	Score           int
	TimeRemaining   int // ticks
	Questions       []question.Question // append-only
	UsedIDs         map[string]bool
	Responses       []Response // ordered, append-only
	Phase           Phase
	AwaitingDismiss bool
	Exhausted       bool
	PendingAdvance  bool
}

func newState(durationTicks int) *State {
	return &State{
		TimeRemaining: durationTicks,
		UsedIDs:       make(map[string]bool),
		Phase:         PhaseRunning,
	}
}

// current returns the question under the cursor.
func (s *State) current() (question.Question, bool) {
	if s.Cursor < len(s.Questions) {
		return s.Questions[s.Cursor], true
	}
	return question.Question{}, false
}

// remaining is the number of buffered questions past the cursor.
func (s *State) remaining() int {
	return len(s.Questions) - s.Cursor - 1
}

// appendBatch adds new questions, filtering ids already seen. If filtering
// would empty a nonempty batch, every item is retagged with a fresh id
// instead — a nonempty source batch must always make progress. Returns the
// number of questions added.
func (s *State) appendBatch(batch []question.Question, retag func(question.Question) question.Question) int {
	if s.Phase == PhaseEnded {
		return 0
	}

	var fresh []question.Question
	for _, q := range batch {
		if !s.UsedIDs[q.ID] {
			fresh = append(fresh, q)
		}
	}

	if len(fresh) == 0 && len(batch) > 0 {
		for _, q := range batch {
			fresh = append(fresh, retag(q))
		}
	}

	for _, q := range fresh {
		s.UsedIDs[q.ID] = true
		s.Questions = append(s.Questions, q)
	}
	return len(fresh)
}

// applyTick burns one tick; at zero the session ends unconditionally.
func (s *State) applyTick() {
	if s.Phase == PhaseEnded {
		return
	}
	s.TimeRemaining--
	if s.TimeRemaining <= 0 {
		s.TimeRemaining = 0
		s.end()
	}
}

// end freezes the session. Idempotent: tick expiry and refill exhaustion
// may both reach it, whichever comes first wins.
func (s *State) end() {
	if s.Phase == PhaseEnded {
		return
	}
	s.Phase = PhaseEnded
}

// recordVerdict appends a response and updates the score.
func (s *State) recordVerdict(q question.Question, raw string, v question.Verdict) {
	s.Responses = append(s.Responses, Response{
		QuestionID: q.ID,
		Raw:        raw,
		Verdict:    v,
	})
	if v.Correct {
		s.Score++
	}
}

// advance moves to the next question, or defers when the buffer is spent:
// with the source known-exhausted the session ends, otherwise the state
// waits for a refill and the increment happens in resolveWaiting.
func (s *State) advance() {
	if s.Phase == PhaseEnded {
		return
	}
	s.AwaitingDismiss = false

	if s.Cursor+1 < len(s.Questions) {
		s.Cursor++
		return
	}
	if s.Exhausted {
		s.end()
		return
	}
	s.Phase = PhaseWaitingForMore
	s.PendingAdvance = true
}

// resolveWaiting performs the deferred advance once the buffer has grown
// past the cursor.
func (s *State) resolveWaiting() {
	if s.Phase != PhaseWaitingForMore || !s.PendingAdvance {
		return
	}
	if s.Cursor+1 < len(s.Questions) {
		s.Cursor++
		s.PendingAdvance = false
		s.Phase = PhaseRunning
	}
}

// summary returns the final tally.
func (s *State) summary() Summary {
	return Summary{
		Score:     s.Score,
		Total:     len(s.Responses),
		Exhausted: s.Exhausted,
	}
}
