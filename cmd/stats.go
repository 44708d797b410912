package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avikbasu/mathsprint/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show practice and collaborator usage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := cmd.Context()
		repo := s.Events()
		sep := strings.Repeat("─", 48)

		sessions, err := repo.SessionStats(ctx)
		if err != nil {
			return fmt.Errorf("query session stats: %w", err)
		}
		fmt.Println("Sessions")
		fmt.Println(sep)
		fmt.Printf("%-24s  %d\n", "Completed sessions", sessions.Sessions)
		fmt.Printf("%-24s  %d\n", "Questions answered", sessions.QuestionsSeen)
		fmt.Printf("%-24s  %d\n", "Correct answers", sessions.Correct)

		answers, err := repo.AnswerStats(ctx)
		if err != nil {
			return fmt.Errorf("query answer stats: %w", err)
		}
		if answers.Total > 0 {
			fmt.Println()
			fmt.Println("Verdicts by source")
			fmt.Println(sep)
			for _, source := range []string{"deterministic", "cache", "generative", "heuristic", "error"} {
				if n, ok := answers.BySource[source]; ok {
					fmt.Printf("%-24s  %d\n", source, n)
				}
			}
		}

		llmStats, err := repo.LLMStats(ctx)
		if err != nil {
			return fmt.Errorf("query llm stats: %w", err)
		}
		if llmStats.Requests > 0 {
			fmt.Println()
			fmt.Println("Collaborator usage")
			fmt.Println(sep)
			fmt.Printf("%-24s  %d\n", "Requests", llmStats.Requests)
			fmt.Printf("%-24s  %d\n", "Failures", llmStats.Failures)
			fmt.Printf("%-24s  %d\n", "Input tokens", llmStats.InputTokens)
			fmt.Printf("%-24s  %d\n", "Output tokens", llmStats.OutputTokens)
		}

		return nil
	},
}
