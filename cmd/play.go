package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avikbasu/mathsprint/internal/evaluate"
	"github.com/avikbasu/mathsprint/internal/llm"
	"github.com/avikbasu/mathsprint/internal/llmgen"
	"github.com/avikbasu/mathsprint/internal/question"
	"github.com/avikbasu/mathsprint/internal/session"
	"github.com/avikbasu/mathsprint/internal/store"
	"github.com/avikbasu/mathsprint/internal/telemetry"
	"github.com/avikbasu/mathsprint/internal/worksheet"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run a timed practice session",
	Long: `Run a timed practice session in the terminal.

Questions come from the generative collaborator when an API key is
configured (OPENAI_API_KEY, ANTHROPIC_API_KEY, or GEMINI_API_KEY), and
from the built-in seeded generator otherwise. Answers are graded
immediately; wrong answers show a tip that must be acknowledged before
the next question.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringSlice("concepts", nil, "Concepts to practice (comma-separated)")
	playCmd.Flags().String("difficulty", "same", "Difficulty: less, same, or more")
	playCmd.Flags().Int("minutes", 5, "Session length in minutes")
	playCmd.Flags().String("grade", "", "Learner's grade level (guides question authoring)")
	playCmd.Flags().String("seed", "", "Seed for reproducible seeded batches")
	playCmd.Flags().String("analysis", "", "Path to a worksheet-analysis JSON file")
}

func runPlay(cmd *cobra.Command, args []string) error {
	concepts, _ := cmd.Flags().GetStringSlice("concepts")
	difficulty, _ := cmd.Flags().GetString("difficulty")
	minutes, _ := cmd.Flags().GetInt("minutes")
	grade, _ := cmd.Flags().GetString("grade")
	seed, _ := cmd.Flags().GetString("seed")
	analysisPath, _ := cmd.Flags().GetString("analysis")

	log, err := newLogger(cmd)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()
	events := s.Events()

	analysis, err := loadAnalysis(analysisPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	provider := discoverProvider(ctx, log, events)
	sink := telemetry.NewCounters()

	var augmented *llmgen.Generator
	var judge evaluate.Judge
	if provider != nil {
		augmented = llmgen.NewGenerator(provider, log)
		judge = evaluate.NewLLMJudge(provider)
	} else {
		fmt.Println("No API key found — running with the seeded generator only.")
	}

	source := session.NewCompositeSource(augmented, sink, log)
	pipeline := evaluate.NewPipeline(judge, evaluate.NewJudgmentCache(evaluate.DefaultCacheCapacity), sink, log)

	cfg := session.DefaultConfig()
	cfg.Duration = time.Duration(minutes) * time.Minute
	cfg.Concepts = concepts
	cfg.Difficulty = question.ParseDifficulty(difficulty)
	cfg.Grade = grade
	cfg.Analysis = analysis
	cfg.Seed = seed

	fmt.Println("Loading questions...")
	engine, err := session.NewEngine(ctx, cfg, source, pipeline, log)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	engine.Start(ctx)

	go printNotices(engine)

	runSessionLoop(ctx, engine, events, log)

	sum := engine.End()
	fmt.Printf("\n── Session over: %d/%d correct ──\n", sum.Score, sum.Total)
	if sum.Exhausted {
		fmt.Println("You worked through every available question — nice stamina!")
	}

	if err := events.AppendSessionEnd(ctx, store.SessionEvent{
		SessionID:       engine.ID(),
		DurationSeconds: minutes * 60,
		QuestionsSeen:   sum.Total,
		Correct:         sum.Score,
		Exhausted:       sum.Exhausted,
	}); err != nil {
		log.Warn("failed to record session event", zap.Error(err))
	}
	return nil
}

func runSessionLoop(ctx context.Context, engine *session.Engine, events store.EventRepo, log *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-engine.Done():
			return
		default:
		}

		snap := engine.Snapshot()
		if snap.Phase != session.PhaseRunning {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		q, ok := engine.Current()
		if !ok {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		fmt.Printf("\n[%s] %s\n", formatClock(snap.TimeRemaining), q.Prompt)
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println("\n(input closed)")
			return
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			continue
		}

		verdict, err := engine.Submit(ctx, answer)
		if err != nil {
			if errors.Is(err, session.ErrSessionEnded) {
				return
			}
			// Not accepting answers right now (buffering or just ended);
			// the loop re-checks on its next pass.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if appendErr := events.AppendAnswer(ctx, store.AnswerEvent{
			SessionID:     engine.ID(),
			QuestionID:    q.ID,
			Concept:       q.Concept,
			QuestionType:  string(q.Type),
			RawAnswer:     answer,
			Correct:       verdict.Correct,
			VerdictSource: string(verdict.Source),
		}); appendErr != nil {
			log.Warn("failed to record answer event", zap.Error(appendErr))
		}

		if verdict.Correct {
			fmt.Printf("\033[32m✓ %s\033[0m\n", verdict.Feedback)
		} else {
			fmt.Printf("\033[31m✗ Try this:\033[0m %s\n", verdict.Feedback)
			fmt.Print("Press Enter for the next question...")
			if !scanner.Scan() {
				return
			}
			engine.Dismiss(ctx)
		}
	}
}

// printNotices surfaces buffering and refill events as transient inline
// lines, never as blocking prompts.
func printNotices(engine *session.Engine) {
	for {
		select {
		case <-engine.Done():
			return
		case n := <-engine.Notices():
			if n.Kind == session.NoticeEnded {
				return
			}
			fmt.Printf("\n· %s\n", n.Message)
		}
	}
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// discoverProvider builds the collaborator client when an API key is
// available. A missing key is not an error: the session runs seeded-only.
func discoverProvider(ctx context.Context, log *zap.Logger, events store.EventRepo) llm.Provider {
	cfg, ok := llm.DiscoverConfig()
	if !ok {
		return nil
	}
	provider, err := llm.NewProvider(ctx, cfg, log, events)
	if err != nil {
		log.Warn("collaborator unavailable, running seeded-only", zap.Error(err))
		return nil
	}
	return provider
}

// loadAnalysis reads a worksheet-analysis JSON file produced by the
// upload/OCR service. An empty path means no analysis context.
func loadAnalysis(path string) (*worksheet.Analysis, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis file: %w", err)
	}
	var a worksheet.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse analysis file: %w", err)
	}
	return &a, nil
}
