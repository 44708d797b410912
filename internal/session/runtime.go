// Package session drives a timed practice run: it paces questions against
// a hard deadline, refills the buffer before it runs dry, and serializes
// the answer → feedback → advance progression.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avikbasu/mathsprint/internal/question"
)

const historyLimit = 12

var (
	// ErrNoQuestions means the initial fetch produced nothing to practice.
	ErrNoQuestions = errors.New("no questions available")

	// ErrNotRunning rejects submissions outside the Running phase.
	ErrNotRunning = errors.New("session is not accepting answers")

	// ErrAwaitingDismiss rejects submissions while feedback for the
	// previous answer is still on screen.
	ErrAwaitingDismiss = errors.New("dismiss the current feedback first")

	// ErrEvaluationInFlight rejects a submission while another one is
	// still being graded. Evaluations run strictly one at a time, in
	// cursor order.
	ErrEvaluationInFlight = errors.New("another answer is being graded")

	// ErrSessionEnded reports that the session reached its terminal phase
	// while an evaluation was in flight; the verdict is not recorded.
	ErrSessionEnded = errors.New("session ended")
)

// Evaluator grades one submission. The evaluation pipeline satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, q question.Question, sub question.Submission) question.Verdict
}

// NoticeKind classifies informational events.
type NoticeKind string

const (
	// NoticeRefilled reports more questions arriving in the buffer.
	NoticeRefilled NoticeKind = "refilled"

	// NoticeBuffering reports a non-fatal buffering problem, typically
	// source exhaustion.
	NoticeBuffering NoticeKind = "buffering"

	// NoticeEnded reports the terminal transition.
	NoticeEnded NoticeKind = "ended"
)

// Notice is a transient inline message for the caller, never a blocking
// error.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Engine runs one session. All state lives behind one mutex; the tick
// goroutine and refill completions apply their updates through it so no
// two mutations interleave.
type Engine struct {
	id     string
	cfg    Config
	source QuestionSource
	eval   Evaluator
	log    *zap.Logger

	mu             sync.Mutex
	state          *State
	evaluating     bool
	refillInFlight bool
	lastRefill     time.Time

	ticker  *time.Ticker
	done    chan struct{}
	endOnce sync.Once
	notices chan Notice
}

// NewEngine creates an engine and loads the initial batch. It returns
// ErrNoQuestions when the source yields nothing to start with.
func NewEngine(ctx context.Context, cfg Config, source QuestionSource, eval Evaluator, log *zap.Logger) (*Engine, error) {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.Duration <= 0 {
		cfg.Duration = def.Duration
	}
	if cfg.RefillThreshold <= 0 {
		cfg.RefillThreshold = def.RefillThreshold
	}
	if cfg.RefillCooldown <= 0 {
		cfg.RefillCooldown = def.RefillCooldown
	}
	if cfg.RefillBatchMin <= 0 {
		cfg.RefillBatchMin = def.RefillBatchMin
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = def.Difficulty
	}

	e := &Engine{
		id:      uuid.NewString(),
		cfg:     cfg,
		source:  source,
		eval:    eval,
		log:     log,
		state:   newState(cfg.ticks()),
		done:    make(chan struct{}),
		notices: make(chan Notice, 16),
	}

	req := e.batchRequestLocked()
	batch := source.Fetch(ctx, req)
	if e.state.appendBatch(batch, retag) == 0 {
		return nil, ErrNoQuestions
	}
	return e, nil
}

// ID returns the session identifier.
func (e *Engine) ID() string {
	return e.id
}

// Start begins the tick. The engine ends itself when the clock expires,
// the source is exhausted, or ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.ticker = time.NewTicker(e.cfg.TickInterval)
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer e.ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.End()
			return
		case <-e.done:
			return
		case <-e.ticker.C:
			e.mu.Lock()
			e.state.applyTick()
			ended := e.state.Phase == PhaseEnded
			e.mu.Unlock()
			if ended {
				e.finish()
				return
			}
			e.maybeRefill(ctx)
		}
	}
}

// Current returns the question under the cursor.
func (e *Engine) Current() (question.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.current()
}

// Submit grades the current question. Only one submission may be in flight
// at a time; a correct answer advances immediately, an incorrect one holds
// the cursor until Dismiss.
func (e *Engine) Submit(ctx context.Context, raw string) (question.Verdict, error) {
	e.mu.Lock()
	if e.state.Phase != PhaseRunning {
		e.mu.Unlock()
		return question.Verdict{}, ErrNotRunning
	}
	if e.state.AwaitingDismiss {
		e.mu.Unlock()
		return question.Verdict{}, ErrAwaitingDismiss
	}
	if e.evaluating {
		e.mu.Unlock()
		return question.Verdict{}, ErrEvaluationInFlight
	}
	q, ok := e.state.current()
	if !ok {
		e.mu.Unlock()
		return question.Verdict{}, ErrNotRunning
	}
	e.evaluating = true
	e.mu.Unlock()

	// Evaluation happens outside the lock; the tick keeps running and the
	// hard deadline may fire meanwhile, so the phase is re-checked before
	// the verdict is applied. The evaluating flag keeps a second Submit
	// from passing the phase check on the same cursor in the meantime.
	verdict := e.eval.Evaluate(ctx, q, question.Submission{Raw: raw})

	e.mu.Lock()
	e.evaluating = false
	if e.state.Phase == PhaseEnded {
		e.mu.Unlock()
		return verdict, ErrSessionEnded
	}
	e.state.recordVerdict(q, raw, verdict)
	if verdict.Correct {
		e.state.advance()
	} else {
		e.state.AwaitingDismiss = true
	}
	ended := e.state.Phase == PhaseEnded
	e.mu.Unlock()

	if ended {
		e.finish()
	} else {
		e.maybeRefill(ctx)
	}
	return verdict, nil
}

// Dismiss acknowledges feedback for an incorrect answer and advances.
func (e *Engine) Dismiss(ctx context.Context) {
	e.mu.Lock()
	if e.state.Phase != PhaseRunning || !e.state.AwaitingDismiss {
		e.mu.Unlock()
		return
	}
	e.state.advance()
	ended := e.state.Phase == PhaseEnded
	e.mu.Unlock()

	if ended {
		e.finish()
	} else {
		e.maybeRefill(ctx)
	}
}

// maybeRefill fires a background refill when the buffer is low, no refill
// is in flight, the source isn't known-exhausted, and the cooldown has
// elapsed. At most one request is ever in flight.
func (e *Engine) maybeRefill(ctx context.Context) {
	e.mu.Lock()
	s := e.state
	lowBuffer := s.remaining() <= e.cfg.RefillThreshold || s.Phase == PhaseWaitingForMore
	if s.Phase == PhaseEnded || s.Exhausted || e.refillInFlight || !lowBuffer ||
		time.Since(e.lastRefill) < e.cfg.RefillCooldown {
		e.mu.Unlock()
		return
	}
	e.refillInFlight = true
	e.lastRefill = time.Now()
	req := e.batchRequestLocked()
	e.mu.Unlock()

	go e.refill(ctx, req)
}

func (e *Engine) refill(ctx context.Context, req BatchRequest) {
	batch := e.source.Fetch(ctx, req)

	e.mu.Lock()
	e.refillInFlight = false
	if e.state.Phase == PhaseEnded {
		// Completions after the terminal phase are discarded.
		e.mu.Unlock()
		return
	}

	added := e.state.appendBatch(batch, retag)
	if added == 0 {
		e.state.Exhausted = true
		waiting := e.state.Phase == PhaseWaitingForMore
		if waiting {
			e.state.end()
		}
		e.mu.Unlock()
		e.log.Info("question source exhausted", zap.String("session_id", e.id))
		e.notify(NoticeBuffering, "No more new questions are available.")
		if waiting {
			e.finish()
		}
		return
	}

	e.state.resolveWaiting()
	e.mu.Unlock()
	e.log.Debug("buffer refilled", zap.String("session_id", e.id), zap.Int("added", added))
	e.notify(NoticeRefilled, fmt.Sprintf("Loaded %d more questions.", added))
}

// batchRequestLocked sizes a fetch to the remaining duration and collects
// the recent-prompt history for dedup hints. Caller holds e.mu, except in
// NewEngine before the engine is shared.
func (e *Engine) batchRequestLocked() BatchRequest {
	count := e.cfg.batchSize(e.state.TimeRemaining)

	seen := e.state.Cursor + 1
	if seen > len(e.state.Questions) {
		seen = len(e.state.Questions)
	}
	start := 0
	if seen > historyLimit {
		start = seen - historyLimit
	}
	var history []string
	for _, q := range e.state.Questions[start:seen] {
		history = append(history, q.Prompt)
	}

	return BatchRequest{
		Concepts:   e.cfg.Concepts,
		Difficulty: e.cfg.Difficulty,
		Count:      count,
		Grade:      e.cfg.Grade,
		Analysis:   e.cfg.Analysis,
		History:    history,
		Seed:       e.cfg.Seed,
	}
}

// End terminates the session and returns the final tally. Idempotent.
func (e *Engine) End() Summary {
	e.mu.Lock()
	e.state.end()
	sum := e.state.summary()
	e.mu.Unlock()
	e.finish()
	return sum
}

// Summary returns the tally so far.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.summary()
}

// Snapshot returns a copy of the session state for display.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := *e.state
	s.Questions = append([]question.Question(nil), e.state.Questions...)
	s.Responses = append([]Response(nil), e.state.Responses...)
	ids := make(map[string]bool, len(e.state.UsedIDs))
	for k, v := range e.state.UsedIDs {
		ids[k] = v
	}
	s.UsedIDs = ids
	return s
}

// Done is closed when the session reaches its terminal phase.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Notices delivers transient informational events. Slow consumers drop
// notices rather than block the engine.
func (e *Engine) Notices() <-chan Notice {
	return e.notices
}

func (e *Engine) finish() {
	e.endOnce.Do(func() {
		e.notify(NoticeEnded, "Session complete.")
		close(e.done)
	})
}

func (e *Engine) notify(kind NoticeKind, message string) {
	select {
	case e.notices <- Notice{Kind: kind, Message: message}:
	default:
	}
}

// retag synthesizes a fresh unique id for a duplicate question so a
// nonempty batch still makes progress.
func retag(q question.Question) question.Question {
	q.ID = fmt.Sprintf("%s-%s", q.ID, uuid.NewString()[:8])
	return q
}
