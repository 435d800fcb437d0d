// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package sphinx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/mixframe/mixframe/core/addr"
	"github.com/mixframe/mixframe/core/node"
	"github.com/mixframe/mixframe/core/sphinx/internal/crypto"
)

const (
	forwardHop byte = 0x01
	finalHop   byte = 0x02

	flagLength    = 1
	versionLength = 3
	delayLength   = 8

	forwardHopLength = flagLength + versionLength + delayLength + addr.Length + crypto.MACLength
	finalHopLength   = flagLength + versionLength + delayLength + node.DestinationAddressLength + node.IdentifierLength

	// PerHopRoutingInfoLength is the length of the routing information for
	// one hop.
	PerHopRoutingInfoLength = forwardHopLength
)

// Version is the routing information version.
var Version = [versionLength]byte{0, 1, 0}

var errInvalidCommand = errors.New("sphinx: invalid per-hop routing information")

type routingCommand struct {
	delay time.Duration

	next *addr.RoutingAddress
	mac  [crypto.MACLength]byte

	dest *node.Destination
}

func putHeader(b []byte, flag byte, delay time.Duration) ([]byte, error) {
	if delay < 0 {
		return nil, fmt.Errorf("sphinx: negative delay: %v", delay)
	}
	b[0] = flag
	copy(b[flagLength:], Version[:])
	binary.BigEndian.PutUint64(b[flagLength+versionLength:], uint64(delay))
	return b[flagLength+versionLength+delayLength:], nil
}

func encodeForwardHop(b []byte, delay time.Duration, next *node.Node, mac []byte) error {
	b, err := putHeader(b, forwardHop, delay)
	if err != nil {
		return err
	}
	b = b[copy(b, next.Address[:]):]
	copy(b, mac)
	return nil
}

func encodeFinalHop(b []byte, delay time.Duration, dest *node.Destination) error {
	b, err := putHeader(b, finalHop, delay)
	if err != nil {
		return err
	}
	b = b[copy(b, dest.Address[:]):]
	copy(b, dest.Identifier[:])
	return nil
}

func decodeRoutingInfo(b []byte) (*routingCommand, error) {
	if len(b) != PerHopRoutingInfoLength {
		return nil, errInvalidCommand
	}
	flag := b[0]
	if [versionLength]byte(b[flagLength:flagLength+versionLength]) != Version {
		return nil, fmt.Errorf("%w: unknown version %x", errInvalidCommand, b[flagLength:flagLength+versionLength])
	}
	b = b[flagLength+versionLength:]

	delay := binary.BigEndian.Uint64(b[:delayLength])
	if delay > 1<<63-1 {
		return nil, fmt.Errorf("%w: delay out of range", errInvalidCommand)
	}
	cmd := &routingCommand{delay: time.Duration(delay)}
	b = b[delayLength:]

	switch flag {
	case forwardHop:
		next, err := addr.FromBytes(b[:addr.Length])
		if err != nil {
			return nil, err
		}
		cmd.next = &next
		copy(cmd.mac[:], b[addr.Length:])
	case finalHop:
		cmd.dest = new(node.Destination)
		copy(cmd.dest.Address[:], b[:node.DestinationAddressLength])
		copy(cmd.dest.Identifier[:], b[node.DestinationAddressLength:finalHopLength-flagLength-versionLength-delayLength])
	default:
		return nil, fmt.Errorf("%w: unknown flag 0x%02x", errInvalidCommand, flag)
	}
	return cmd, nil
}

func init() {
	if forwardHopLength != finalHopLength {
		panic("sphinx: BUG: forward and final hop lengths differ")
	}
}
