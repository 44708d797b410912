// Package llmgen generates practice questions through the generative
// collaborator and normalizes its loosely-typed output into canonical
// Questions. Callers fall back to the seeded generator when it reports
// ErrNoUsableQuestions.
package llmgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/avikbasu/mathsprint/internal/llm"
	"github.com/avikbasu/mathsprint/internal/question"
	"github.com/avikbasu/mathsprint/internal/worksheet"
)

const (
	// MinCount and MaxCount bound the batch size; the cap bounds
	// collaborator cost per request.
	MinCount = 1
	MaxCount = 45

	// DefaultConcept fills in when no concepts are supplied.
	DefaultConcept = "mixed practice"

	maxResponseTokens = 4096
	batchTemperature  = 0.7
)

// ErrNoUsableQuestions reports that zero candidates survived normalization
// after both generation attempts. Callers should fall back to the seeded
// generator; an empty slice is never returned alongside a nil error.
var ErrNoUsableQuestions = errors.New("no usable questions from collaborator")

// Request describes one augmented generation call.
type Request struct {
	Concepts   []string
	Difficulty question.Difficulty
	Count      int
	Grade      string
	Analysis   *worksheet.Analysis
	History    []string // recent prompts, oldest first
	Seed       string
}

// Generator produces question batches via a Provider.
type Generator struct {
	provider llm.Provider
	log      *zap.Logger
}

// NewGenerator creates a Generator. log must be non-nil.
func NewGenerator(provider llm.Provider, log *zap.Logger) *Generator {
	return &Generator{provider: provider, log: log}
}

// Generate requests a batch of questions. If the first attempt yields
// nothing usable it retries exactly once with the analysis context
// dropped, then reports ErrNoUsableQuestions.
func (g *Generator) Generate(ctx context.Context, req Request) ([]question.Question, error) {
	ctx = llm.WithPurpose(ctx, "question-gen")

	req.Count = clampCount(req.Count)
	if len(req.Concepts) == 0 {
		req.Concepts = []string{DefaultConcept}
	}

	questions, err := g.attempt(ctx, req, true)
	if err == nil && len(questions) > 0 {
		return questions, nil
	}
	if err != nil {
		g.log.Warn("question generation attempt failed, retrying without analysis", zap.Error(err))
	} else {
		g.log.Warn("question generation produced no usable candidates, retrying without analysis")
	}

	questions, err = g.attempt(ctx, req, false)
	if err != nil {
		g.log.Warn("question generation retry failed", zap.Error(err))
		return nil, ErrNoUsableQuestions
	}
	if len(questions) == 0 {
		return nil, ErrNoUsableQuestions
	}
	return questions, nil
}

func (g *Generator) attempt(ctx context.Context, req Request, includeAnalysis bool) ([]question.Question, error) {
	system, user, topicPlan := buildPrompt(req, includeAnalysis)

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
		Schema:      batchSchema(),
		MaxTokens:   maxResponseTokens,
		Temperature: batchTemperature,
	})
	if err != nil {
		return nil, err
	}

	var batch struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(resp.Content, &batch); err != nil {
		return nil, fmt.Errorf("parse question batch: %w", err)
	}

	if len(batch.Questions) > req.Count {
		batch.Questions = batch.Questions[:req.Count]
	}

	sc := slotContext{topicPlan: topicPlan, difficulty: req.Difficulty}
	var questions []question.Question
	for i, raw := range batch.Questions {
		var c Candidate
		if err := json.Unmarshal(raw, &c); err != nil {
			g.log.Debug("dropping undecodable candidate", zap.Int("index", i), zap.Error(err))
			continue
		}
		q, ok := normalize(c, i, sc)
		if !ok {
			g.log.Debug("dropping unnormalizable candidate", zap.Int("index", i))
			continue
		}
		questions = append(questions, q)
	}

	return questions, nil
}

func clampCount(count int) int {
	if count < MinCount {
		return MinCount
	}
	if count > MaxCount {
		return MaxCount
	}
	return count
}
