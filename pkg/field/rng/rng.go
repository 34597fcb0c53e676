// Package rng constructs the explicitly owned random sources used by the
// layout engine.
//
// Every sampler and selector takes a *rand.Rand from this package instead of
// reading process-wide random state, so two runs with the same seed and inputs
// are bit-for-bit identical and independent runs never interfere.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// New returns a PCG-backed generator for seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// Random returns a generator seeded from the operating system and the seed it
// used, so an unseeded run can still be reported and replayed.
func Random() (*rand.Rand, uint64) {
	seed := NewSeed()
	return New(seed), seed
}

// NewSeed draws a fresh seed from crypto/rand.
func NewSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("rng: crypto/rand unavailable: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}
