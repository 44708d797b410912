// Package worksheet carries analysis context extracted from an uploaded
// worksheet by an external collaborator. The engine never produces one of
// these; it only threads the bag through to prompt construction.
package worksheet

// NumberRange bounds the magnitudes observed in the source material.
type NumberRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Analysis is the opaque context bag attached to a generation request.
// All fields are optional; a zero Analysis contributes nothing to prompts.
type Analysis struct {
	Concepts        []string     `json:"concepts,omitempty"`
	DifficultyNotes string       `json:"difficultyNotes,omitempty"`
	NumberRange     *NumberRange `json:"numberRange,omitempty"`
	Observations    []string     `json:"observations,omitempty"`
	TextPreview     string       `json:"textPreview,omitempty"`
}

// Empty reports whether the analysis carries no usable signal.
func (a *Analysis) Empty() bool {
	if a == nil {
		return true
	}
	return len(a.Concepts) == 0 &&
		a.DifficultyNotes == "" &&
		a.NumberRange == nil &&
		len(a.Observations) == 0 &&
		a.TextPreview == ""
}
