package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avikbasu/mathsprint/internal/question"
	"github.com/avikbasu/mathsprint/internal/seedgen"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print a deterministic seeded question batch as JSON (no database)",
	Long: `Generate a batch from the seeded generator and print it as JSON.

The same concepts, difficulty, count, and seed always produce the same
batch, which makes this useful for inspecting question quality and for
smoke-checking generator changes.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringSlice("concepts", nil, "Concepts to practice (comma-separated)")
	previewCmd.Flags().String("difficulty", "same", "Difficulty: less, same, or more")
	previewCmd.Flags().Int("count", 5, "Number of questions to generate")
	previewCmd.Flags().String("seed", "", "Seed for reproducible output (defaults to one derived from the request)")
}

func runPreview(cmd *cobra.Command, args []string) error {
	concepts, _ := cmd.Flags().GetStringSlice("concepts")
	difficulty, _ := cmd.Flags().GetString("difficulty")
	count, _ := cmd.Flags().GetInt("count")
	seed, _ := cmd.Flags().GetString("seed")

	batch := seedgen.Generate(concepts, question.ParseDifficulty(difficulty), count, seed)

	for _, q := range batch {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("generated question failed validation: %w", err)
		}
		if q.HintsLeakAnswer() {
			fmt.Fprintf(os.Stderr, "warning: hints of %s leak the answer\n", q.ID)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"questions": batch})
}
