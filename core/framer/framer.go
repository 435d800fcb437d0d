// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package framer prefixes onion packets with the routing address of their
// first hop.
package framer

import (
	"errors"
	"fmt"
	"time"

	"github.com/mixframe/mixframe/core/addr"
	"github.com/mixframe/mixframe/core/node"
)

// ErrPacketConstructionFailed is the error returned when the onion packet
// could not be built.
var ErrPacketConstructionFailed = errors.New("framer: packet construction failed")

// Constructor builds fixed length onion packets.
type Constructor interface {
	// NewPacket encrypts payload for route, terminating at dest, with
	// delays[i] requested of route[i]. A non-nil secret seeds the packet's
	// ephemeral key.
	NewPacket(payload []byte, route []node.Node, dest *node.Destination, delays []time.Duration, secret []byte) ([]byte, error)

	// PacketLength returns the length of every packet built.
	PacketLength() int
}

// Framer frames packets built by a Constructor.
type Framer struct {
	constructor Constructor
}

// New returns a Framer around c.
func New(c Constructor) *Framer {
	return &Framer{constructor: c}
}

// Length returns the length of a framed packet.
func (f *Framer) Length() int {
	return addr.Length + f.constructor.PacketLength()
}

// Frame builds the onion packet and returns it prefixed with the routing
// address of route[0].
func (f *Framer) Frame(payload []byte, route []node.Node, dest *node.Destination, delays []time.Duration, secret []byte) ([]byte, error) {
	if len(route) == 0 {
		return nil, fmt.Errorf("%w: empty route", ErrPacketConstructionFailed)
	}

	pkt, err := f.constructor.NewPacket(payload, route, dest, delays, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPacketConstructionFailed, err)
	}
	if want := f.constructor.PacketLength(); len(pkt) != want {
		return nil, fmt.Errorf("%w: packet is %d bytes, expected %d", ErrPacketConstructionFailed, len(pkt), want)
	}

	framed := make([]byte, 0, addr.Length+len(pkt))
	framed = append(framed, route[0].Address[:]...)
	framed = append(framed, pkt...)
	return framed, nil
}
