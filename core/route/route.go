// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package route provides routines for route selection.
package route

import (
	"context"
	"errors"
	"fmt"
	mRand "math/rand"
	"sync"

	"github.com/katzenpost/hpqc/rand"

	"github.com/mixframe/mixframe/core/node"
	"github.com/mixframe/mixframe/core/topology"
)

// HopCount is the length of a route through the default layers: one relay
// per mix layer followed by the provider.
const HopCount = 4

var (
	// ErrInsufficientRelays is the error returned when a required layer
	// has no relays.
	ErrInsufficientRelays = errors.New("route: insufficient relays")

	// ErrNoProviderAvailable is the error returned when no provider can
	// terminate the route.
	ErrNoProviderAvailable = errors.New("route: no provider available")
)

// DefaultLayers are the mix layers traversed, in order.
var DefaultLayers = []uint{1, 2, 3}

// Route is an ordered sequence of hops, entry relay first and the provider
// last.
type Route []node.Node

// Strategy is a relay selection strategy.
type Strategy int

const (
	// Deterministic selects the first relay listed at each layer.
	Deterministic Strategy = iota

	// Random selects a relay uniformly at random at each layer.
	Random

	// Weighted selects a relay at each layer with probability proportional
	// to its weight.
	Weighted
)

// String returns the strategy's configuration name.
func (s Strategy) String() string {
	switch s {
	case Deterministic:
		return "deterministic"
	case Random:
		return "random"
	case Weighted:
		return "weighted"
	default:
		return fmt.Sprintf("[unknown strategy: %d]", int(s))
	}
}

// ParseStrategy returns the Strategy named s.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "deterministic":
		return Deterministic, nil
	case "random":
		return Random, nil
	case "weighted":
		return Weighted, nil
	default:
		return 0, fmt.Errorf("route: unknown strategy: '%v'", s)
	}
}

// Weigher returns the relative selection weight of a mix node. Non-positive
// weights exclude the node from weighted selection.
type Weigher func(*topology.MixNode) float64

// UniformWeight gives every mix node the same weight.
func UniformWeight(*topology.MixNode) float64 {
	return 1
}

// Selector builds routes from topology snapshots.
type Selector struct {
	sync.Mutex

	codec    *node.Codec
	layers   []uint
	strategy Strategy
	weigh    Weigher
	rng      *mRand.Rand
}

// Option configures a Selector.
type Option func(*Selector)

// WithLayers overrides the mix layers traversed.
func WithLayers(layers []uint) Option {
	return func(s *Selector) {
		s.layers = append([]uint{}, layers...)
	}
}

// WithStrategy sets the relay selection strategy.
func WithStrategy(strategy Strategy) Option {
	return func(s *Selector) {
		s.strategy = strategy
	}
}

// WithWeigher sets the Weigher used by the Weighted strategy.
func WithWeigher(w Weigher) Option {
	return func(s *Selector) {
		s.weigh = w
	}
}

// WithRand sets the random source used by the Random and Weighted
// strategies.
func WithRand(rng *mRand.Rand) Option {
	return func(s *Selector) {
		s.rng = rng
	}
}

// New returns a Selector that decodes hops with codec.
func New(codec *node.Codec, opts ...Option) *Selector {
	s := &Selector{
		codec:  codec,
		layers: DefaultLayers,
		weigh:  UniformWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.NewMath()
	}
	return s
}

// Length returns the number of hops in every route built by the Selector.
func (s *Selector) Length() int {
	return len(s.layers) + 1
}

// SelectProvider returns the provider with the identity key pubKey, or the
// first provider listed if pubKey is empty.
func SelectProvider(snap *topology.Snapshot, pubKey string) (*topology.Provider, error) {
	if pubKey == "" {
		if p := snap.FirstProvider(); p != nil {
			return p, nil
		}
		return nil, ErrNoProviderAvailable
	}
	if p := snap.ProviderByKey(pubKey); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: '%v' not in topology", ErrNoProviderAvailable, pubKey)
}

// BuildRoute selects one relay from each layer in ascending order and
// terminates the route at provider. The returned Route always has Length()
// hops.
func (s *Selector) BuildRoute(ctx context.Context, snap *topology.Snapshot, provider *topology.Provider) (Route, error) {
	if provider == nil {
		return nil, ErrNoProviderAvailable
	}

	descs := make([]node.Descriptor, 0, s.Length())
	for _, layer := range s.layers {
		candidates := snap.NodesAtLayer(layer)
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w: layer %d is empty", ErrInsufficientRelays, layer)
		}
		n, err := s.pick(candidates)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrInsufficientRelays, layer, err)
		}
		descs = append(descs, n)
	}
	descs = append(descs, provider)

	r := make(Route, 0, len(descs))
	for _, d := range descs {
		n, err := s.codec.Decode(ctx, d)
		if err != nil {
			return nil, err
		}
		r = append(r, *n)
	}
	return r, nil
}

func (s *Selector) pick(candidates []*topology.MixNode) (*topology.MixNode, error) {
	switch s.strategy {
	case Deterministic:
		return candidates[0], nil
	case Random:
		s.Lock()
		defer s.Unlock()
		return candidates[s.rng.Intn(len(candidates))], nil
	case Weighted:
		return s.pickWeighted(candidates)
	default:
		return nil, fmt.Errorf("route: unknown strategy: %v", s.strategy)
	}
}

func (s *Selector) pickWeighted(candidates []*topology.MixNode) (*topology.MixNode, error) {
	weights := make([]float64, len(candidates))
	var total float64
	for i, n := range candidates {
		if w := s.weigh(n); w > 0 {
			weights[i] = w
			total += w
		}
	}
	if total <= 0 {
		return nil, errors.New("no relay with a positive weight")
	}

	s.Lock()
	x := s.rng.Float64() * total
	s.Unlock()

	var last *topology.MixNode
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = candidates[i]
		if x < w {
			return last, nil
		}
		x -= w
	}
	return last, nil
}
