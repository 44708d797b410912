package session

import (
	"time"

	"github.com/avikbasu/mathsprint/internal/question"
	"github.com/avikbasu/mathsprint/internal/worksheet"
)

// Config describes one practice session.
type Config struct {
	// Duration is the total session length; the tick at zero is a hard
	// deadline even mid-question.
	Duration time.Duration

	// TickInterval is the clock resolution. TimeRemaining is measured in
	// ticks, so at the default of one second it reads as seconds.
	TickInterval time.Duration

	// RefillThreshold triggers a proactive refill when the number of
	// unanswered buffered questions drops this low.
	RefillThreshold int

	// RefillCooldown is the minimum gap between refill requests.
	RefillCooldown time.Duration

	// RefillBatchMin is the smallest batch a refill asks for; longer
	// remaining durations scale the batch up.
	RefillBatchMin int

	Concepts   []string
	Difficulty question.Difficulty
	Grade      string
	Analysis   *worksheet.Analysis
	Seed       string
}

// DefaultConfig returns the standard session pacing.
func DefaultConfig() Config {
	return Config{
		Duration:        5 * time.Minute,
		TickInterval:    time.Second,
		RefillThreshold: 3,
		RefillCooldown:  4 * time.Second,
		RefillBatchMin:  10,
		Difficulty:      question.DifficultySame,
	}
}

// ticks converts the configured duration into tick units.
func (c Config) ticks() int {
	if c.TickInterval <= 0 {
		return int(c.Duration / time.Second)
	}
	return int(c.Duration / c.TickInterval)
}

// batchSize scales the refill request to cover the remaining duration:
// roughly two questions per remaining half-minute, never below the minimum.
func (c Config) batchSize(remainingTicks int) int {
	scaled := (remainingTicks + 29) / 30
	if scaled < c.RefillBatchMin {
		return c.RefillBatchMin
	}
	return scaled
}
