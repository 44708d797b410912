package seedgen

import (
	"crypto/sha256"
	"encoding/binary"
)

// rng is a linear-congruential generator seeded from a cryptographic hash
// of the seed string. Using a fixed LCG rather than math/rand keeps the
// draw sequence stable across Go releases, so a seed always reproduces the
// exact same question set.
type rng struct {
	state uint32
}

func newRNG(seed string) *rng {
	sum := sha256.Sum256([]byte(seed))
	return &rng{state: binary.LittleEndian.Uint32(sum[:4])}
}

// next returns the next draw in [0, 1).
func (r *rng) next() float64 {
	r.state = r.state*1664525 + 1013904223
	return float64(r.state) / (1 << 32)
}

// intn returns a uniformly distributed integer in [min, max].
func (r *rng) intn(min, max int) int {
	return int(r.next()*float64(max-min+1)) + min
}
