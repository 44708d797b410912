package seedgen

import (
	"fmt"
	"strings"

	"github.com/avikbasu/mathsprint/internal/question"
)

// slotInput is everything a family generator needs to synthesize one
// question. The rng is the shared session stream; generators must draw in a
// fixed order so a seed reproduces the same set.
type slotInput struct {
	concept    string
	difficulty question.Difficulty
	index      int
	rng        *rng
}

// familyFunc synthesizes one question for a slot. The answer is always
// computed algebraically from the generated operands, never guessed.
type familyFunc func(in slotInput) question.Question

// family pairs a generator with the concept keywords that select it.
// Matching is a case-insensitive substring test over the concept string.
type family struct {
	keywords []string
	generate familyFunc
}

var families = []family{
	{[]string{"fraction"}, fractionQuestion},
	{[]string{"addition", "subtraction", "sum", "difference", "algebra", "equation"}, additionQuestion},
	{[]string{"geometry", "area", "perimeter", "volume"}, geometryQuestion},
	{[]string{"multiplication", "times", "product"}, multiplicationQuestion},
	{[]string{"division", "quotient"}, divisionQuestion},
	{[]string{"estimate", "round"}, estimationQuestion},
	{[]string{"place value"}, roundingQuestion},
	{[]string{"word", "story"}, wordProblemQuestion},
}

// defaultFamilies serves concepts with no keyword match.
var defaultFamilies = []familyFunc{additionQuestion, estimationQuestion, roundingQuestion}

// matchFamilies returns every family whose keyword list matches the
// concept, or the default set when nothing matches.
func matchFamilies(concept string) []familyFunc {
	if concept == "" {
		return defaultFamilies
	}
	lower := strings.ToLower(concept)
	var matches []familyFunc
	for _, f := range families {
		for _, kw := range f.keywords {
			if strings.Contains(lower, kw) {
				matches = append(matches, f.generate)
				break
			}
		}
	}
	if len(matches) == 0 {
		return defaultFamilies
	}
	return matches
}

func additionQuestion(in slotInput) question.Question {
	maxBase := 499
	switch in.difficulty {
	case question.DifficultyMore:
		maxBase = 999
	case question.DifficultyLess:
		maxBase = 199
	}
	a := in.rng.intn(12, maxBase)
	b := in.rng.intn(8, maxBase)
	subtract := in.rng.next() > 0.5

	var prompt string
	var exact int
	var strategy string
	if subtract {
		prompt = fmt.Sprintf("What is %d - %d?", maxInt(a, b), minInt(a, b))
		exact = absInt(a - b)
		strategy = "Borrow if the top digit is smaller, then subtract each place value."
	} else {
		prompt = fmt.Sprintf("What is %d + %d?", a, b)
		exact = a + b
		strategy = "Add ones, then tens, then hundreds. Carry if needed."
	}

	return question.Question{
		ID:         fmt.Sprintf("q-add-%d", in.index),
		Concept:    in.concept,
		Difficulty: in.difficulty,
		Type:       question.TypeNumeric,
		Prompt:     prompt,
		Answer:     question.Exact(float64(exact)),
		Hints: []string{
			"Stack the numbers so the ones place lines up.",
			strategy,
		},
	}
}

func multiplicationQuestion(in slotInput) question.Question {
	maxFactor := 12
	minB := 3
	switch in.difficulty {
	case question.DifficultyMore:
		maxFactor = 19
		minB = 10
	case question.DifficultyLess:
		maxFactor = 9
	}
	a := in.rng.intn(3, maxFactor)
	b := in.rng.intn(minB, maxFactor)

	return question.Question{
		ID:         fmt.Sprintf("q-mult-%d", in.index),
		Concept:    in.concept,
		Difficulty: in.difficulty,
		Type:       question.TypeNumeric,
		Prompt:     fmt.Sprintf("Compute %d x %d.", a, b),
		Answer:     question.Exact(float64(a * b)),
		Hints: []string{
			"Use a multiplication strategy you like: skip count or break into tens and ones.",
			fmt.Sprintf("If you split %d x %d, you can compute %d x %d and add the leftover.", a, b, a, (b/2)*2),
		},
	}
}

func divisionQuestion(in slotInput) question.Question {
	maxDivisor, maxQuotient := 9, 12
	if in.difficulty == question.DifficultyMore {
		maxDivisor, maxQuotient = 12, 25
	}
	divisor := in.rng.intn(2, maxDivisor)
	quotient := in.rng.intn(2, maxQuotient)
	dividend := divisor * quotient

	return question.Question{
		ID:         fmt.Sprintf("q-div-%d", in.index),
		Concept:    in.concept,
		Difficulty: in.difficulty,
		Type:       question.TypeNumeric,
		Prompt:     fmt.Sprintf("What is %d / %d?", dividend, divisor),
		Answer:     question.Exact(float64(quotient)),
		Hints: []string{
			`Think "how many groups" or "how many in each group."`,
			fmt.Sprintf("You can skip count by %d until you reach %d.", divisor, dividend),
		},
	}
}

var fractionDenominators = []int{2, 3, 4, 5, 8}

func fractionQuestion(in slotInput) question.Question {
	denominator := fractionDenominators[in.rng.intn(0, len(fractionDenominators)-1)]
	maxNumerator := 2
	if in.difficulty == question.DifficultyMore {
		maxNumerator = denominator - 1
	}
	numerator := clampInt(in.rng.intn(1, minInt(denominator-1, maxNumerator)), 1, denominator-1)
	maxGroups := 8
	if in.difficulty == question.DifficultyMore {
		maxGroups = 12
	}
	groups := in.rng.intn(2, maxGroups)
	whole := groups * denominator

	return question.Question{
		ID:         fmt.Sprintf("q-frac-%d", in.index),
		Concept:    in.concept,
		Difficulty: in.difficulty,
		Type:       question.TypeNumeric,
		Prompt:     fmt.Sprintf("A sheet has %d shapes. What is %d/%d of them?", whole, numerator, denominator),
		Answer:     question.Exact(float64(groups * numerator)),
		Hints: []string{
			fmt.Sprintf("Find %d out of every %d shapes.", numerator, denominator),
			fmt.Sprintf("There are %d groups of %d. Multiply %d x %d.", groups, denominator, groups, numerator),
		},
	}
}

func geometryQuestion(in slotInput) question.Question {
	maxLength, maxWidth := 12, 10
	if in.difficulty == question.DifficultyMore {
		maxLength, maxWidth = 18, 16
	}
	length := in.rng.intn(4, maxLength)
	width := in.rng.intn(3, maxWidth)
	height := in.rng.intn(3, 10)
	useVolume := in.difficulty == question.DifficultyMore && in.rng.next() > 0.5

	if useVolume {
		return question.Question{
			ID:         fmt.Sprintf("q-geom-vol-%d", in.index),
			Concept:    in.concept,
			Difficulty: in.difficulty,
			Type:       question.TypeNumeric,
			Prompt:     fmt.Sprintf("A box is %d cm long, %d cm wide, and %d cm tall. What is its volume?", length, width, height),
			Answer:     question.Exact(float64(length * width * height)),
			Hints: []string{
				"Volume of a rectangular prism is length x width x height.",
				fmt.Sprintf("Multiply %d x %d first, then multiply by %d.", length, width, height),
			},
		}
	}

	return question.Question{
		ID:         fmt.Sprintf("q-geom-%d", in.index),
		Concept:    in.concept,
		Difficulty: in.difficulty,
		Type:       question.TypeNumeric,
		Prompt:     fmt.Sprintf("What is the area of a rectangle with length %d cm and width %d cm?", length, width),
		Answer:     question.Exact(float64(length * width)),
		Hints: []string{
			"Area of a rectangle is length x width.",
			fmt.Sprintf("Count how many groups of %d fit into %d.", width, length),
		},
	}
}

func estimationQuestion(in slotInput) question.Question {
	a := in.rng.intn(120, 980)
	b := in.rng.intn(120, 980)
	roundedA := roundToNearest(a, 100)
	roundedB := roundToNearest(b, 100)
	center := roundedA + roundedB

	return question.Question{
		ID:         fmt.Sprintf("q-est-%d", in.index),
		Concept:    in.concept,
		Difficulty: in.difficulty,
		Type:       question.TypeFreeText,
		Prompt:     fmt.Sprintf("Estimate %d + %d. Round each number to the nearest hundred before you add.", a, b),
		Answer:     question.Range(float64(center-100), float64(center+100)),
		Hints: []string{
			fmt.Sprintf("Round %d to %d and %d to %d.", a, roundedA, b, roundedB),
			"Now add the rounded numbers to estimate the sum.",
		},
	}
}

func roundingQuestion(in slotInput) question.Question {
	number := in.rng.intn(120, 999)

	return question.Question{
		ID:         fmt.Sprintf("q-round-%d", in.index),
		Concept:    in.concept,
		Difficulty: in.difficulty,
		Type:       question.TypeMultiPart,
		Prompt:     fmt.Sprintf("Round %d to the nearest ten and the nearest hundred.", number),
		Answer: question.Parts(map[string]float64{
			"nearest_ten":     float64(roundToNearest(number, 10)),
			"nearest_hundred": float64(roundToNearest(number, 100)),
		}, "nearest_ten", "nearest_hundred"),
		Hints: []string{
			"Look at the digit to the right of the place you are rounding.",
			"If it is 5 or more, bump the place up. If it is 4 or less, keep it the same.",
		},
	}
}

func wordProblemQuestion(in slotInput) question.Question {
	bags := in.rng.intn(3, 8)
	perBag := in.rng.intn(4, 9)

	return question.Question{
		ID:         fmt.Sprintf("q-word-%d", in.index),
		Concept:    in.concept,
		Difficulty: in.difficulty,
		Type:       question.TypeNumeric,
		Prompt:     fmt.Sprintf("A class is making snack bags with %d chips each. They fill %d bags. How many chips do they need in all?", perBag, bags),
		Answer:     question.Exact(float64(bags * perBag)),
		Hints: []string{
			"Each bag has the same number of chips, so think multiplication.",
			fmt.Sprintf("Multiply %d x %d to find the total chips.", bags, perBag),
		},
	}
}

// roundToNearest rounds n to the nearest multiple of unit, halves up.
func roundToNearest(n, unit int) int {
	return ((n + unit/2) / unit) * unit
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
