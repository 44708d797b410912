package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avikbasu/mathsprint/internal/evaluate"
	"github.com/avikbasu/mathsprint/internal/question"
	"github.com/avikbasu/mathsprint/internal/seedgen"
	"github.com/avikbasu/mathsprint/internal/telemetry"
)

var judgeCmd = &cobra.Command{
	Use:   "judge",
	Short: "Evaluate one answer against a seeded question (no database)",
	Long: `Generate a single seeded question and run the supplied answer through
the full evaluation pipeline: deterministic check, then the generative
judge when an API key is configured, then heuristic coaching.

This is a stateless developer tool for checking judge quality — the
verdict's source field shows which tier settled it.`,
	RunE: runJudge,
}

func init() {
	judgeCmd.Flags().String("concept", "addition", "Concept for the generated question")
	judgeCmd.Flags().String("difficulty", "same", "Difficulty: less, same, or more")
	judgeCmd.Flags().String("seed", "judge-eval", "Seed for the generated question")
	judgeCmd.Flags().String("answer", "", "Answer to evaluate (required)")
	_ = judgeCmd.MarkFlagRequired("answer")
}

func runJudge(cmd *cobra.Command, args []string) error {
	concept, _ := cmd.Flags().GetString("concept")
	difficulty, _ := cmd.Flags().GetString("difficulty")
	seed, _ := cmd.Flags().GetString("seed")
	answer, _ := cmd.Flags().GetString("answer")

	log, err := newLogger(cmd)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	batch := seedgen.Generate([]string{concept}, question.ParseDifficulty(difficulty), 1, seed)
	q := batch[0]

	// No EventRepo — request logging skipped for this stateless tool.
	ctx := cmd.Context()
	var judge evaluate.Judge
	if provider := discoverProvider(ctx, log, nil); provider != nil {
		judge = evaluate.NewLLMJudge(provider)
	}

	pipeline := evaluate.NewPipeline(judge, evaluate.NewJudgmentCache(evaluate.DefaultCacheCapacity), telemetry.NopSink{}, log)
	verdict := pipeline.Evaluate(ctx, q, question.Submission{Raw: answer})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"question": q,
		"answer":   answer,
		"verdict":  verdict,
	})
}
