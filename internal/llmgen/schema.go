package llmgen

import "github.com/avikbasu/mathsprint/internal/llm"

// batchSchema is deliberately permissive: individual candidates are cleaned
// up or dropped by the normalizer, so the schema only pins the envelope.
func batchSchema() *llm.Schema {
	return &llm.Schema{
		Name:        "question-batch",
		Description: "A batch of generated practice questions",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"questions": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"prompt":  map[string]any{"type": "string"},
							"type":    map[string]any{"type": "string"},
							"answer":  map[string]any{"type": "object"},
							"concept": map[string]any{"type": "string"},
						},
					},
				},
			},
			"required": []any{"questions"},
		},
	}
}
