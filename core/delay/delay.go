// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package delay samples per-hop mixing delays.
package delay

import (
	mRand "math/rand"
	"sync"
	"time"

	"github.com/katzenpost/hpqc/rand"
)

// DefaultAverage is the average per-hop delay.
const DefaultAverage = 100 * time.Millisecond

// Generator samples exponentially distributed delays.
type Generator struct {
	sync.Mutex

	rng *mRand.Rand

	// MaxDelay, if positive, caps each sampled delay.
	MaxDelay time.Duration
}

// New returns a Generator drawing from rng, or from a freshly seeded
// source if rng is nil.
func New(rng *mRand.Rand) *Generator {
	if rng == nil {
		rng = rand.NewMath()
	}
	return &Generator{rng: rng}
}

// Generate returns hops independent delays, exponentially distributed with
// mean average. It panics if hops or average is not positive.
func (g *Generator) Generate(hops int, average time.Duration) []time.Duration {
	if hops <= 0 {
		panic("delay: non-positive hop count")
	}
	if average <= 0 {
		panic("delay: non-positive average delay")
	}

	lambda := 1 / float64(average)
	delays := make([]time.Duration, 0, hops)

	g.Lock()
	defer g.Unlock()
	for i := 0; i < hops; i++ {
		d := time.Duration(rand.Exp(g.rng, lambda))
		if g.MaxDelay > 0 && d > g.MaxDelay {
			d = g.MaxDelay
		}
		delays = append(delays, d)
	}
	return delays
}
