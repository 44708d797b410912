package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/avikbasu/mathsprint/internal/llmgen"
	"github.com/avikbasu/mathsprint/internal/question"
	"github.com/avikbasu/mathsprint/internal/seedgen"
	"github.com/avikbasu/mathsprint/internal/telemetry"
	"github.com/avikbasu/mathsprint/internal/worksheet"
)

// BatchRequest describes one fetch from a QuestionSource.
type BatchRequest struct {
	Concepts   []string
	Difficulty question.Difficulty
	Count      int
	Grade      string
	Analysis   *worksheet.Analysis
	History    []string // recent prompts, oldest first
	Seed       string
}

// QuestionSource supplies question batches to the runtime. Implementations
// must never fail: on total failure they return an empty slice and let the
// runtime's exhaustion logic take over.
type QuestionSource interface {
	Fetch(ctx context.Context, req BatchRequest) []question.Question
}

// CompositeSource asks the augmented generator first and falls back to the
// seeded generator, which cannot fail for well-formed input.
type CompositeSource struct {
	augmented *llmgen.Generator // nil means seeded-only
	sink      telemetry.Sink
	log       *zap.Logger
}

// NewCompositeSource creates a source. augmented may be nil when no
// collaborator is configured; sink and log must be non-nil.
func NewCompositeSource(augmented *llmgen.Generator, sink telemetry.Sink, log *zap.Logger) *CompositeSource {
	return &CompositeSource{augmented: augmented, sink: sink, log: log}
}

func (s *CompositeSource) Fetch(ctx context.Context, req BatchRequest) []question.Question {
	if s.augmented != nil {
		batch, err := s.augmented.Generate(ctx, llmgen.Request{
			Concepts:   req.Concepts,
			Difficulty: req.Difficulty,
			Count:      req.Count,
			Grade:      req.Grade,
			Analysis:   req.Analysis,
			History:    req.History,
			Seed:       req.Seed,
		})
		if err == nil {
			s.sink.Increment("question", "llm")
			return batch
		}
		s.log.Warn("augmented generation unavailable, using seeded generator", zap.Error(err))
	}

	s.sink.Increment("question", "seeded")
	return seedgen.Generate(req.Concepts, req.Difficulty, req.Count, req.Seed)
}
