// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package delay

import (
	mRand "math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := New(nil)
	delays := g.Generate(4, DefaultAverage)
	require.Len(delays, 4)
	for _, d := range delays {
		require.True(d >= 0)
	}
}

func TestGenerateMean(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	const n = 100000
	g := New(mRand.New(mRand.NewSource(1)))
	var sum time.Duration
	for _, d := range g.Generate(n, DefaultAverage) {
		sum += d
	}
	mean := sum / n
	require.InDelta(float64(DefaultAverage), float64(mean), float64(DefaultAverage)/20)
}

func TestGenerateSeeded(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	a := New(mRand.New(mRand.NewSource(42))).Generate(8, time.Second)
	b := New(mRand.New(mRand.NewSource(42))).Generate(8, time.Second)
	require.Equal(a, b)
}

func TestGenerateMaxDelay(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := New(mRand.New(mRand.NewSource(1)))
	g.MaxDelay = 10 * time.Millisecond
	for _, d := range g.Generate(1000, time.Second) {
		require.True(d <= g.MaxDelay)
	}
}

func TestGeneratePanics(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := New(nil)
	require.Panics(func() { g.Generate(0, DefaultAverage) })
	require.Panics(func() { g.Generate(4, 0) })
	require.Panics(func() { g.Generate(4, -time.Second) })
}
