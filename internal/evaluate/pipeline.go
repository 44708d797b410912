// Package evaluate grades learner submissions through a tiered pipeline:
// deterministic rules, then the judgment cache, then the generative judge,
// then heuristic coaching. Every tier failure falls through to the next;
// the pipeline always produces a Verdict.
package evaluate

import (
	"context"

	"go.uber.org/zap"

	"github.com/avikbasu/mathsprint/internal/question"
	"github.com/avikbasu/mathsprint/internal/telemetry"
)

const errorFeedback = "Sorry—something went wrong while checking that one. Let's keep going!"

// Pipeline evaluates submissions. judge may be nil to disable the
// generative tier.
type Pipeline struct {
	judge Judge
	cache *JudgmentCache
	sink  telemetry.Sink
	log   *zap.Logger
}

// NewPipeline creates a Pipeline. cache, sink, and log must be non-nil;
// judge may be nil.
func NewPipeline(judge Judge, cache *JudgmentCache, sink telemetry.Sink, log *zap.Logger) *Pipeline {
	return &Pipeline{judge: judge, cache: cache, sink: sink, log: log}
}

// Evaluate grades one submission against a question. It never panics and
// never returns an error: any internal fault becomes a source=error
// Verdict so the learner always gets a response.
func (p *Pipeline) Evaluate(ctx context.Context, q question.Question, sub question.Submission) (verdict question.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("evaluation panicked", zap.Any("panic", r), zap.String("question_id", q.ID))
			p.sink.Increment("judge", string(question.SourceError))
			verdict = question.Verdict{
				Correct:  false,
				Source:   question.SourceError,
				Feedback: errorFeedback,
			}
		}
	}()

	normalized := NormalizeSubmission(q, sub)

	// Deterministic correctness is authoritative and skips every other tier.
	deterministicCorrect := evaluateDeterministic(q, normalized)
	if deterministicCorrect {
		p.sink.Increment("judge", string(question.SourceDeterministic))
		return question.Verdict{
			Correct:  true,
			Source:   question.SourceDeterministic,
			Feedback: positivePhrase(),
		}
	}

	key := CacheKey(q, normalized)
	if cached, ok := p.cache.Get(key); ok {
		p.sink.Increment("judge", string(question.SourceCache))
		cached.Source = question.SourceCache
		return cached
	}

	if p.judge != nil {
		judgment, err := p.judge.Judge(ctx, q, normalized, deterministicCorrect)
		if err != nil {
			// Judge failures are swallowed; the heuristic tier takes over.
			p.log.Warn("generative judge unavailable", zap.Error(err), zap.String("question_id", q.ID))
		} else if judgment != nil {
			v := question.Verdict{
				Correct:  judgment.Correct,
				Source:   question.SourceGenerative,
				Feedback: judgment.Tip,
			}
			if v.Feedback == "" {
				if v.Correct {
					v.Feedback = positivePhrase()
				} else {
					v.Feedback = heuristicFeedback(q, normalized)
				}
			}
			p.cache.Put(key, v)
			p.sink.Increment("judge", string(question.SourceGenerative))
			return v
		}
	}

	p.sink.Increment("judge", string(question.SourceHeuristic))
	return question.Verdict{
		Correct:  false,
		Source:   question.SourceHeuristic,
		Feedback: heuristicFeedback(q, normalized),
	}
}
