// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package framer

import (
	"bytes"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mixframe/mixframe/core/addr"
	"github.com/mixframe/mixframe/core/node"
)

type fakeConstructor struct {
	length int
	out    []byte
	err    error

	gotSecret []byte
}

func (c *fakeConstructor) NewPacket(payload []byte, route []node.Node, dest *node.Destination, delays []time.Duration, secret []byte) ([]byte, error) {
	c.gotSecret = secret
	if c.err != nil {
		return nil, c.err
	}
	if c.out != nil {
		return c.out, nil
	}
	return bytes.Repeat([]byte{0xee}, c.length), nil
}

func (c *fakeConstructor) PacketLength() int {
	return c.length
}

func testRoute(t *testing.T) []node.Node {
	route := make([]node.Node, 4)
	for i, s := range []string{"185.144.83.134:1789", "[2a0a:e5c0:2:2:0:c8ff:fe68:bf6b]:1789", "78.46.164.112:1789", "139.162.246.48:1789"} {
		a, err := addr.FromEndpoint(netip.MustParseAddrPort(s))
		require.NoError(t, err)
		route[i].Address = a
	}
	return route
}

func TestFrame(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	c := &fakeConstructor{length: 1372}
	f := New(c)
	require.Equal(1404, f.Length())

	route := testRoute(t)
	secret := []byte("secret")
	out, err := f.Frame([]byte("block"), route, new(node.Destination), make([]time.Duration, 4), secret)
	require.NoError(err)
	require.Len(out, 1404)
	require.Equal(route[0].Address[:], out[:addr.Length])
	require.Equal(bytes.Repeat([]byte{0xee}, 1372), out[addr.Length:])
	require.Equal(secret, c.gotSecret)

	ep, err := route[0].Address.Endpoint()
	require.NoError(err)
	first, err := addr.FromBytes(out[:addr.Length])
	require.NoError(err)
	decoded, err := first.Endpoint()
	require.NoError(err)
	require.Equal(ep, decoded)
}

func TestFrameFailures(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	route := testRoute(t)
	dest := new(node.Destination)
	delays := make([]time.Duration, 4)

	_, err := New(&fakeConstructor{length: 1372}).Frame([]byte("block"), nil, dest, nil, nil)
	require.ErrorIs(err, ErrPacketConstructionFailed)

	_, err = New(&fakeConstructor{length: 1372, err: errors.New("boom")}).Frame([]byte("block"), route, dest, delays, nil)
	require.ErrorIs(err, ErrPacketConstructionFailed)
	require.Contains(err.Error(), "boom")

	_, err = New(&fakeConstructor{length: 1372, out: make([]byte, 1371)}).Frame([]byte("block"), route, dest, delays, nil)
	require.ErrorIs(err, ErrPacketConstructionFailed)
}
