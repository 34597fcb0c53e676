// Package sampler draws entry labels from a pool in reshuffled passes.
//
// A [Cyclic] sampler holds a private permutation of its pool and a cursor.
// Each call to [Cyclic.Next] returns the element under the cursor; when the
// permutation is exhausted a fresh, independent shuffle of the full pool is
// drawn and the cursor starts over. Within one pass every pool slot is
// returned exactly once.
//
// Pass boundaries are not smoothed: the first label of a new pass may equal
// the last label of the previous one, so two consecutive draws can repeat.
// Use [Cyclic.Pass] to detect boundaries if that matters downstream.
//
// There is no teardown. A caller that stops calling Next simply stops.
package sampler

import (
	"math/rand/v2"
	"slices"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/pool"
)

// Sampler yields labels one at a time.
type Sampler interface {
	Next() string
}

// Cyclic is a reshuffle-on-exhaustion sampler over one pool.
// It is not safe for concurrent use.
type Cyclic struct {
	pool    pool.Pool
	rng     *rand.Rand
	perm    []string
	cursor  int
	pass    int
	current int // pass of the most recent Next, 0 before the first draw
}

// New creates a sampler over p drawing from rng. The first shuffle happens
// immediately. p must be non-empty and rng non-nil.
func New(p pool.Pool, rng *rand.Rand) (*Cyclic, error) {
	if len(p.Entries) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "cannot sample from empty pool %q", p.Name)
	}
	if rng == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "sampler for pool %q needs a random source", p.Name)
	}
	s := &Cyclic{
		pool: p,
		rng:  rng,
		perm: slices.Clone(p.Entries),
	}
	s.reshuffle()
	return s, nil
}

// Next returns the next label of the current pass, starting a new pass first
// when the current one is exhausted.
func (s *Cyclic) Next() string {
	if s.cursor == len(s.perm) {
		s.reshuffle()
	}
	label := s.perm[s.cursor]
	s.cursor++
	s.current = s.pass
	return label
}

// Pass returns the 1-based pass the most recent label came from, or 0 if Next
// has not been called yet.
func (s *Cyclic) Pass() int { return s.current }

// Pool returns the pool being sampled.
func (s *Cyclic) Pool() pool.Pool { return s.pool }

func (s *Cyclic) reshuffle() {
	copy(s.perm, s.pool.Entries)
	s.rng.Shuffle(len(s.perm), func(i, j int) {
		s.perm[i], s.perm[j] = s.perm[j], s.perm[i]
	})
	s.cursor = 0
	s.pass++
}

// Constant is a sampler that always returns the same label.
// It covers single-entry checks without a random source.
type Constant string

// Next returns the label.
func (c Constant) Next() string { return string(c) }

// Take draws n labels from s.
func Take(s Sampler, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}
