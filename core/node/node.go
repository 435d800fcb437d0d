// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package node converts relay descriptors into the fixed width hop
// representation used to build Sphinx packets.
package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/katzenpost/hpqc/hash"
	"github.com/mr-tron/base58"

	"github.com/mixframe/mixframe/core/addr"
)

const (
	// PublicKeyLength is the length of a decoded relay public key.
	PublicKeyLength = 32

	// DestinationAddressLength is the length of a decoded destination address.
	DestinationAddressLength = 32

	// IdentifierLength is the length of the destination SURB identifier.
	IdentifierLength = 16
)

var (
	// ErrInvalidPublicKey is the error returned when a relay public key does
	// not decode to exactly PublicKeyLength bytes.
	ErrInvalidPublicKey = errors.New("node: invalid public key")

	// ErrInvalidDestination is the error returned when a destination
	// identifier is not valid base58 of the expected decoded length.
	ErrInvalidDestination = errors.New("node: invalid destination identifier")
)

// Descriptor is anything that carries a network address and an encoded
// identity key, e.g. a mix node or a provider from a topology snapshot.
type Descriptor interface {
	NetworkAddress() string
	IdentityKey() string
}

// KeyDecoder decodes the textual encoding of an identity key.
type KeyDecoder interface {
	Decode(s string) ([]byte, error)
}

// Base58 is the KeyDecoder for the base58 (Bitcoin alphabet) encoding used
// by the topology directory.
type Base58 struct{}

// Decode implements KeyDecoder.
func (Base58) Decode(s string) ([]byte, error) {
	return base58.Decode(s)
}

// Encode returns the base58 encoding of b.
func (Base58) Encode(b []byte) string {
	return base58.Encode(b)
}

// Node is a single decoded hop.
type Node struct {
	Address   addr.RoutingAddress
	PublicKey [PublicKeyLength]byte
}

// String returns a terse representation of the node suitable for logging.
func (n *Node) String() string {
	id := hash.Sum256(n.PublicKey[:])
	return fmt.Sprintf("%v (%x)", n.Address, id[:8])
}

// Destination is the final recipient of a packet.
type Destination struct {
	Address    [DestinationAddressLength]byte
	Identifier [IdentifierLength]byte
}

// Codec decodes descriptors into Nodes.
type Codec struct {
	keys     KeyDecoder
	resolver addr.Resolver
}

// NewCodec returns a Codec. A nil KeyDecoder selects Base58, a nil Resolver
// restricts relay addresses to IP literals.
func NewCodec(keys KeyDecoder, resolver addr.Resolver) *Codec {
	if keys == nil {
		keys = Base58{}
	}
	return &Codec{
		keys:     keys,
		resolver: resolver,
	}
}

// Decode converts the descriptor d into a Node.
func (c *Codec) Decode(ctx context.Context, d Descriptor) (*Node, error) {
	a, err := addr.Encode(ctx, c.resolver, d.NetworkAddress())
	if err != nil {
		return nil, err
	}
	raw, err := c.keys.Decode(d.IdentityKey())
	if err != nil {
		return nil, fmt.Errorf("%w: '%v': %v", ErrInvalidPublicKey, d.IdentityKey(), err)
	}
	if len(raw) != PublicKeyLength {
		return nil, fmt.Errorf("%w: '%v': decoded to %d bytes", ErrInvalidPublicKey, d.IdentityKey(), len(raw))
	}

	n := &Node{Address: a}
	copy(n.PublicKey[:], raw)
	return n, nil
}

// DecodeDestination decodes the destination identifier s and pairs it with
// the SURB identifier id.
func (c *Codec) DecodeDestination(s string, id [IdentifierLength]byte) (*Destination, error) {
	raw, err := c.keys.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: '%v': %v", ErrInvalidDestination, s, err)
	}
	if len(raw) != DestinationAddressLength {
		return nil, fmt.Errorf("%w: '%v': decoded to %d bytes", ErrInvalidDestination, s, len(raw))
	}

	dst := &Destination{Identifier: id}
	copy(dst.Address[:], raw)
	return dst, nil
}
