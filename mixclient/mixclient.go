// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package mixclient builds gateway ready packets from a topology snapshot, a
// message and a destination identifier.
package mixclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	mRand "math/rand"
	"net"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/mixframe/mixframe/core/addr"
	"github.com/mixframe/mixframe/core/delay"
	"github.com/mixframe/mixframe/core/framer"
	"github.com/mixframe/mixframe/core/node"
	"github.com/mixframe/mixframe/core/payload"
	"github.com/mixframe/mixframe/core/route"
	"github.com/mixframe/mixframe/core/sphinx"
	"github.com/mixframe/mixframe/core/topology"
	"github.com/mixframe/mixframe/internal/instrument"
	"github.com/mixframe/mixframe/log"
	"github.com/mixframe/mixframe/mixclient/config"
)

// Packet is a framed packet along with how it was built.
type Packet struct {
	// Framed is the first hop's routing address followed by the onion
	// packet.
	Framed []byte

	// Route is the route the packet traverses.
	Route route.Route

	// Provider is the provider terminating the route.
	Provider *topology.Provider

	// Delays are the per-hop delays, in route order.
	Delays []time.Duration

	// Payload is the outcome of fitting the message into one block.
	Payload payload.Kind

	// Discarded is the number of message bytes that did not fit.
	Discarded int
}

// Client builds packets.
type Client struct {
	cfg        *config.Config
	log        *logging.Logger
	logBackend *log.Backend

	codec    *node.Codec
	selector *route.Selector
	delays   *delay.Generator
	sizer    *payload.Sizer
	framer   *framer.Framer
	secret   []byte

	topology topology.Holder
}

type options struct {
	rng         *mRand.Rand
	entropy     io.Reader
	constructor framer.Constructor
	keys        node.KeyDecoder
	resolver    addr.Resolver
	chunker     payload.Chunker
	logBackend  *log.Backend
	secret      []byte
}

// Option configures a Client.
type Option func(*options)

// WithRand seeds the random sources used for route selection and delays.
// rng is only drawn from while New runs, each component then owns a source
// seeded from it.
func WithRand(rng *mRand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithEntropy sets the entropy source of the default packet constructor.
func WithEntropy(r io.Reader) Option {
	return func(o *options) {
		o.entropy = r
	}
}

// WithConstructor replaces the default Sphinx packet constructor.
func WithConstructor(c framer.Constructor) Option {
	return func(o *options) {
		o.constructor = c
	}
}

// WithKeyDecoder replaces the default base58 key decoder.
func WithKeyDecoder(k node.KeyDecoder) Option {
	return func(o *options) {
		o.keys = k
	}
}

// WithResolver sets the resolver used for relay host names.
func WithResolver(r addr.Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithChunker replaces the default payload chunker.
func WithChunker(c payload.Chunker) Option {
	return func(o *options) {
		o.chunker = c
	}
}

// WithLogBackend sets the logging backend.
func WithLogBackend(b *log.Backend) Option {
	return func(o *options) {
		o.logBackend = b
	}
}

// WithInitialSecret sets the X25519 private key used as every packet's
// ephemeral key, instead of a fresh one per packet. All packets built by
// the client then carry the same group element, which lets the entry relay
// link them. It exists for reproducible tests only.
func WithInitialSecret(secret []byte) Option {
	return func(o *options) {
		o.secret = append([]byte{}, secret...)
	}
}

// New returns a Client configured by cfg.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := new(options)
	for _, opt := range opts {
		opt(o)
	}

	var ownedBackend *log.Backend
	if o.logBackend == nil {
		var err error
		if ownedBackend, err = log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable); err != nil {
			return nil, err
		}
		o.logBackend = ownedBackend
	}
	if o.resolver == nil && !cfg.Routing.DisableResolver {
		o.resolver = net.DefaultResolver
	}
	if o.constructor == nil {
		o.constructor = sphinx.New(o.entropy)
	}

	var delayRng, routeRng *mRand.Rand
	if o.rng != nil {
		delayRng = mRand.New(mRand.NewSource(o.rng.Int63()))
		routeRng = mRand.New(mRand.NewSource(o.rng.Int63()))
	}

	c := &Client{
		cfg:        cfg,
		log:        o.logBackend.GetLogger("mixclient"),
		logBackend: ownedBackend,
		codec:      node.NewCodec(o.keys, o.resolver),
		delays:     delay.New(delayRng),
		sizer:      payload.NewSizer(o.chunker),
		framer:     framer.New(o.constructor),
		secret:     o.secret,
	}
	c.delays.MaxDelay = cfg.Delays.Max()

	selectorOpts := []route.Option{
		route.WithLayers(cfg.Routing.Layers),
		route.WithStrategy(cfg.Routing.SelectionStrategy()),
	}
	if routeRng != nil {
		selectorOpts = append(selectorOpts, route.WithRand(routeRng))
	}
	c.selector = route.New(c.codec, selectorOpts...)

	return c, nil
}

// Close releases the log file opened by New, if any. A backend passed in
// with WithLogBackend is left to the caller.
func (c *Client) Close() error {
	if c.logBackend == nil {
		return nil
	}
	return c.logBackend.Close()
}

// PacketLength returns the length of every framed packet.
func (c *Client) PacketLength() int {
	return c.framer.Length()
}

// CreatePacket parses the topology document doc, and returns a framed
// packet carrying msg to destination.
func (c *Client) CreatePacket(ctx context.Context, doc []byte, msg []byte, destination string) ([]byte, error) {
	snap, err := topology.Parse(doc)
	if err != nil {
		c.failed(err)
		return nil, err
	}
	pkt, err := c.NewPacket(ctx, snap, msg, destination)
	if err != nil {
		return nil, err
	}
	return pkt.Framed, nil
}

// SetTopology publishes snap as the topology used by NewPacketFromCurrent.
// Snapshots older than the current one are ignored, and false is returned.
func (c *Client) SetTopology(snap *topology.Snapshot) bool {
	if !c.topology.Store(snap) {
		c.log.Warningf("Ignoring stale topology: %v", snap)
		return false
	}
	c.log.Infof("Topology updated: %v", snap)
	instrument.SnapshotImported()
	return true
}

// Topology returns the current topology, or nil.
func (c *Client) Topology() *topology.Snapshot {
	return c.topology.Load()
}

// NewPacketFromCurrent builds a packet from the topology last published
// with SetTopology.
func (c *Client) NewPacketFromCurrent(ctx context.Context, msg []byte, destination string) (*Packet, error) {
	snap := c.topology.Load()
	if snap == nil {
		err := fmt.Errorf("%w: no topology available", route.ErrInsufficientRelays)
		c.failed(err)
		return nil, err
	}
	return c.NewPacket(ctx, snap, msg, destination)
}

// Route selects the route a packet built from snap would traverse.
func (c *Client) Route(ctx context.Context, snap *topology.Snapshot) (route.Route, *topology.Provider, error) {
	provider, err := route.SelectProvider(snap, c.cfg.Routing.Provider)
	if err != nil {
		return nil, nil, err
	}
	r, err := c.selector.BuildRoute(ctx, snap, provider)
	if err != nil {
		return nil, nil, err
	}
	if len(r) != route.HopCount {
		panic(fmt.Sprintf("mixclient: BUG: route has %d hops, expected %d", len(r), route.HopCount))
	}
	instrument.RouteSelected(c.cfg.Routing.SelectionStrategy().String())
	return r, provider, nil
}

// NewPacket builds a framed packet carrying msg to destination through a
// route selected from snap.
func (c *Client) NewPacket(ctx context.Context, snap *topology.Snapshot, msg []byte, destination string) (*Packet, error) {
	pkt, err := c.newPacket(ctx, snap, msg, destination)
	if err != nil {
		c.failed(err)
		return nil, err
	}
	instrument.PacketCreated()
	return pkt, nil
}

func (c *Client) newPacket(ctx context.Context, snap *topology.Snapshot, msg []byte, destination string) (*Packet, error) {
	r, provider, err := c.Route(ctx, snap)
	if err != nil {
		return nil, err
	}
	c.log.Debugf("Route: %v", r)

	delays := c.delays.Generate(len(r), c.cfg.Delays.Average())

	dest, err := c.codec.DecodeDestination(destination, c.cfg.Destination.ID())
	if err != nil {
		return nil, err
	}

	block, err := c.sizer.ToSingleBlock(msg)
	if err != nil {
		return nil, err
	}
	if block.Kind() == payload.Truncated {
		c.log.Warningf("Message truncated to one packet, %d bytes discarded", block.Discarded)
		instrument.PayloadTruncated(block.Discarded)
	}

	framed, err := c.framer.Frame(block.Data, r, dest, delays, c.secret)
	if err != nil {
		return nil, err
	}

	return &Packet{
		Framed:    framed,
		Route:     r,
		Provider:  provider,
		Delays:    delays,
		Payload:   block.Kind(),
		Discarded: block.Discarded,
	}, nil
}

func (c *Client) failed(err error) {
	kind := Kind(err)
	c.log.Errorf("Failed to create packet (%s): %v", kind, err)
	instrument.PacketFailed(kind)
}

var kinds = []struct {
	err  error
	name string
}{
	{topology.ErrMalformedTopology, "MalformedTopology"},
	{route.ErrInsufficientRelays, "InsufficientRelays"},
	{route.ErrNoProviderAvailable, "NoProviderAvailable"},
	{addr.ErrInvalidAddress, "InvalidAddress"},
	{node.ErrInvalidPublicKey, "InvalidPublicKey"},
	{node.ErrInvalidDestination, "InvalidDestinationIdentifier"},
	{payload.ErrEmptyMessage, "EmptyMessage"},
	{framer.ErrPacketConstructionFailed, "PacketConstructionFailed"},
}

// Kind returns the name of the failure kind err belongs to.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Unknown"
}
