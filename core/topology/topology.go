// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package topology provides the in-memory model of a mix network topology
// snapshot as published by the directory server.
package topology

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/katzenpost/hpqc/hash"
	"github.com/ugorji/go/codec"
)

// ErrMalformedTopology is the error returned when a topology document is
// not syntactically valid or is missing required fields.
var ErrMalformedTopology = errors.New("topology: malformed topology document")

var jsonHandle = &codec.JsonHandle{}

// MixNode describes a mix node at a given layer.
type MixNode struct {
	Host     string
	PubKey   string
	Version  string
	Location string
	Layer    uint
	LastSeen int64
}

// NetworkAddress returns the node's mixnet listener address.
func (n *MixNode) NetworkAddress() string {
	return n.Host
}

// IdentityKey returns the node's encoded identity key.
func (n *MixNode) IdentityKey() string {
	return n.PubKey
}

// String returns a terse description of the node suitable for logging.
func (n *MixNode) String() string {
	return fmt.Sprintf("{layer %d %s %s}", n.Layer, n.Host, n.PubKey)
}

// RegisteredClient is a client registered with a provider.
type RegisteredClient struct {
	PubKey string
}

// Provider describes a provider (gateway) node.
type Provider struct {
	ClientListener    string
	MixnetListener    string
	PubKey            string
	Version           string
	Location          string
	RegisteredClients []RegisteredClient
	LastSeen          int64
}

// NetworkAddress returns the provider's mixnet listener address, which is
// the address other relays forward packets to.
func (p *Provider) NetworkAddress() string {
	return p.MixnetListener
}

// IdentityKey returns the provider's encoded identity key.
func (p *Provider) IdentityKey() string {
	return p.PubKey
}

// String returns a terse description of the provider suitable for logging.
func (p *Provider) String() string {
	return fmt.Sprintf("{provider %s %s}", p.MixnetListener, p.PubKey)
}

// CocoNode is a legacy directory entry that is carried but never routed
// through.
type CocoNode struct {
	Host     string
	PubKey   string
	Type     string
	Version  string
	Location string
	LastSeen int64
}

// Snapshot is an immutable view of the network. Callers MUST NOT modify a
// Snapshot or anything reachable from it once it has been handed out;
// refreshing the topology means building a new Snapshot.
type Snapshot struct {
	// Timestamp is when the snapshot was created.
	Timestamp time.Time

	// MixNodes are the mix nodes of every layer in document order.
	MixNodes []*MixNode

	// Providers are the providers in document order.
	Providers []*Provider

	// CocoNodes are carried for completeness and unused by routing.
	CocoNodes []*CocoNode
}

// NodesAtLayer returns the mix nodes at the given layer, in document order.
// Duplicate entries are preserved.
func (s *Snapshot) NodesAtLayer(layer uint) []*MixNode {
	var nodes []*MixNode
	for _, n := range s.MixNodes {
		if n.Layer == layer {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Layers returns the number of mix nodes at each layer.
func (s *Snapshot) Layers() map[uint]int {
	m := make(map[uint]int)
	for _, n := range s.MixNodes {
		m[n.Layer]++
	}
	return m
}

// FirstProvider returns the first available provider, or nil.
func (s *Snapshot) FirstProvider() *Provider {
	if len(s.Providers) == 0 {
		return nil
	}
	return s.Providers[0]
}

// ProviderByKey returns the provider with the given encoded identity key,
// or nil.
func (s *Snapshot) ProviderByKey(pubKey string) *Provider {
	for _, p := range s.Providers {
		if p.PubKey == pubKey {
			return p
		}
	}
	return nil
}

// Sum256 returns the digest of the snapshot's serialized form.
func (s *Snapshot) Sum256() [32]byte {
	b, err := s.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return hash.Sum256(b)
}

// String returns a terse summary of the snapshot.
func (s *Snapshot) String() string {
	return fmt.Sprintf("&{Timestamp: %v MixNodes: %d Providers: %d Layers: %v}",
		s.Timestamp.UTC().Format(time.RFC3339), len(s.MixNodes), len(s.Providers), s.Layers())
}

// The directory JSON schema. Pointers mark fields that are required.
type document struct {
	CocoNodes        []cocoNode      `codec:"cocoNodes"`
	MixNodes         *[]mixNode      `codec:"mixNodes"`
	MixProviderNodes *[]providerNode `codec:"mixProviderNodes"`
}

type mixNode struct {
	Host     *string `codec:"host"`
	PubKey   *string `codec:"pubKey"`
	Version  string  `codec:"version"`
	Location string  `codec:"location"`
	Layer    *uint   `codec:"layer"`
	LastSeen int64   `codec:"lastSeen"`
}

type registeredClient struct {
	PubKey string `codec:"pubKey"`
}

type providerNode struct {
	ClientListener    string             `codec:"clientListener"`
	MixnetListener    *string            `codec:"mixnetListener"`
	PubKey            *string            `codec:"pubKey"`
	Version           string             `codec:"version"`
	Location          string             `codec:"location"`
	RegisteredClients []registeredClient `codec:"registeredClients"`
	LastSeen          int64              `codec:"lastSeen"`
}

type cocoNode struct {
	Host     string `codec:"host"`
	PubKey   string `codec:"pubKey"`
	Type     string `codec:"type"`
	Version  string `codec:"version"`
	Location string `codec:"location"`
	LastSeen int64  `codec:"lastSeen"`
}

// Parse parses a directory topology document.
func Parse(b []byte) (*Snapshot, error) {
	return ParseAt(b, time.Now())
}

// ParseAt parses a directory topology document, stamping the resulting
// Snapshot with the time t.
func ParseAt(b []byte, t time.Time) (*Snapshot, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedTopology)
	}

	var raw interface{}
	dec := codec.NewDecoderBytes(b, jsonHandle)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTopology, err)
	}
	if rest := bytes.TrimSpace(b[min(dec.NumBytesRead(), len(b)):]); len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedTopology, len(rest))
	}
	if err := checkShape(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTopology, err)
	}

	var doc document
	if err := codec.NewDecoderBytes(b, jsonHandle).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTopology, err)
	}
	if doc.MixNodes == nil {
		return nil, fmt.Errorf("%w: missing mixNodes", ErrMalformedTopology)
	}
	if doc.MixProviderNodes == nil {
		return nil, fmt.Errorf("%w: missing mixProviderNodes", ErrMalformedTopology)
	}

	s := &Snapshot{
		Timestamp: t,
		MixNodes:  make([]*MixNode, 0, len(*doc.MixNodes)),
		Providers: make([]*Provider, 0, len(*doc.MixProviderNodes)),
	}
	for i, n := range *doc.MixNodes {
		switch {
		case n.Host == nil:
			return nil, fmt.Errorf("%w: mixNodes[%d] missing host", ErrMalformedTopology, i)
		case n.PubKey == nil:
			return nil, fmt.Errorf("%w: mixNodes[%d] missing pubKey", ErrMalformedTopology, i)
		case n.Layer == nil:
			return nil, fmt.Errorf("%w: mixNodes[%d] missing layer", ErrMalformedTopology, i)
		}
		s.MixNodes = append(s.MixNodes, &MixNode{
			Host:     *n.Host,
			PubKey:   *n.PubKey,
			Version:  n.Version,
			Location: n.Location,
			Layer:    *n.Layer,
			LastSeen: n.LastSeen,
		})
	}
	for i, p := range *doc.MixProviderNodes {
		switch {
		case p.MixnetListener == nil:
			return nil, fmt.Errorf("%w: mixProviderNodes[%d] missing mixnetListener", ErrMalformedTopology, i)
		case p.PubKey == nil:
			return nil, fmt.Errorf("%w: mixProviderNodes[%d] missing pubKey", ErrMalformedTopology, i)
		}
		provider := &Provider{
			ClientListener: p.ClientListener,
			MixnetListener: *p.MixnetListener,
			PubKey:         *p.PubKey,
			Version:        p.Version,
			Location:       p.Location,
			LastSeen:       p.LastSeen,
		}
		for _, c := range p.RegisteredClients {
			provider.RegisteredClients = append(provider.RegisteredClients, RegisteredClient{PubKey: c.PubKey})
		}
		s.Providers = append(s.Providers, provider)
	}
	for _, c := range doc.CocoNodes {
		s.CocoNodes = append(s.CocoNodes, &CocoNode{
			Host:     c.Host,
			PubKey:   c.PubKey,
			Type:     c.Type,
			Version:  c.Version,
			Location: c.Location,
			LastSeen: c.LastSeen,
		})
	}
	return s, nil
}

// Document returns the directory JSON form of the snapshot.
func (s *Snapshot) Document() ([]byte, error) {
	mixNodes := make([]mixNode, 0, len(s.MixNodes))
	for _, n := range s.MixNodes {
		n := n
		mixNodes = append(mixNodes, mixNode{
			Host:     &n.Host,
			PubKey:   &n.PubKey,
			Version:  n.Version,
			Location: n.Location,
			Layer:    &n.Layer,
			LastSeen: n.LastSeen,
		})
	}
	providers := make([]providerNode, 0, len(s.Providers))
	for _, p := range s.Providers {
		p := p
		clients := make([]registeredClient, 0, len(p.RegisteredClients))
		for _, c := range p.RegisteredClients {
			clients = append(clients, registeredClient{PubKey: c.PubKey})
		}
		providers = append(providers, providerNode{
			ClientListener:    p.ClientListener,
			MixnetListener:    &p.MixnetListener,
			PubKey:            &p.PubKey,
			Version:           p.Version,
			Location:          p.Location,
			RegisteredClients: clients,
			LastSeen:          p.LastSeen,
		})
	}
	doc := document{
		CocoNodes:        make([]cocoNode, 0, len(s.CocoNodes)),
		MixNodes:         &mixNodes,
		MixProviderNodes: &providers,
	}
	for _, c := range s.CocoNodes {
		doc.CocoNodes = append(doc.CocoNodes, cocoNode{
			Host:     c.Host,
			PubKey:   c.PubKey,
			Type:     c.Type,
			Version:  c.Version,
			Location: c.Location,
			LastSeen: c.LastSeen,
		})
	}

	var out []byte
	enc := codec.NewEncoderBytes(&out, jsonHandle)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	return out, nil
}
