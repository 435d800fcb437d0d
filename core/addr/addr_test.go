// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package addr

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingAddressRoundTrip(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	for _, s := range []string{
		"185.144.83.134:1789",
		"127.0.0.1:9000",
		"[2a0a:e5c0:2:2:0:c8ff:fe68:bf6b]:1789",
		"[::1]:65535",
	} {
		ep, err := Parse(context.Background(), nil, s)
		require.NoError(err, s)

		a, err := FromEndpoint(ep)
		require.NoError(err, s)

		decoded, err := a.Endpoint()
		require.NoError(err, s)
		require.Equal(ep, decoded, s)
		require.Equal(netip.MustParseAddrPort(s), decoded, s)

		fromBytes, err := FromBytes(a.Bytes())
		require.NoError(err)
		require.Equal(a, fromBytes)
	}
}

func TestRoutingAddressLayout(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	a, err := FromEndpoint(netip.MustParseAddrPort("10.1.2.3:1789"))
	assert.NoError(err)
	assert.Equal(byte(flagIPv4), a[0])
	assert.Equal([]byte{10, 1, 2, 3}, a[1:5])
	assert.Equal([]byte{0x06, 0xfd}, a[5:7])
	assert.Equal(make([]byte, Length-7), a[7:])

	// IPv4 mapped IPv6 addresses are encoded as IPv4.
	a, err = FromEndpoint(netip.MustParseAddrPort("[::ffff:10.1.2.3]:1789"))
	assert.NoError(err)
	assert.Equal(byte(flagIPv4), a[0])
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	for _, s := range []string{
		"",
		"185.144.83.134",
		"185.144.83.134:",
		"185.144.83.134:99999",
		"185.144.83.134:port",
		":1789",
		"[2a0a:e5c0:2:2:0:c8ff:fe68:bf6b:1789",
		"2a0a:e5c0:2:2:0:c8ff:fe68:bf6b]:1789",
		"[2a0a:zzzz::1]:1789",
		"nym.300baud.de:1789",
		"[1.2.3.4]:80",
		"[nym.300baud.de]:1789",
	} {
		_, err := Parse(context.Background(), nil, s)
		assert.True(errors.Is(err, ErrInvalidAddress), "'%v': %v", s, err)
	}
}

func TestParseHostname(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	r := StaticResolver{
		"nym.300baud.de":                      []net.IP{net.ParseIP("78.46.164.112")},
		"testnet_nymmixnode.roussel-zeter.eu": []net.IP{net.ParseIP("2001:db8::53")},
		"xn--bcher-kva.example":               []net.IP{net.ParseIP("192.0.2.7")},
	}
	ep, err := Parse(context.Background(), r, "nym.300baud.de:1789")
	require.NoError(err)
	require.Equal(netip.MustParseAddrPort("78.46.164.112:1789"), ep)

	ep, err = Parse(context.Background(), r, "testnet_nymmixnode.roussel-zeter.eu:1789")
	require.NoError(err)
	require.Equal(netip.MustParseAddrPort("[2001:db8::53]:1789"), ep)

	// Host names are mapped before lookup.
	ep, err = Parse(context.Background(), r, "Bücher.example:1789")
	require.NoError(err)
	require.Equal(netip.MustParseAddrPort("192.0.2.7:1789"), ep)

	_, err = Parse(context.Background(), r, "unknown.example:1789")
	require.ErrorIs(err, ErrInvalidAddress)
}

func TestParseHostnameInvalid(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	r := StaticResolver{}
	for _, host := range []string{
		"host name",
		"bad..host",
		"-lead.example",
		"trail-.example",
		"a*b.example",
		"semi;colon.example",
	} {
		r[host] = []net.IP{net.ParseIP("192.0.2.1")}
	}
	for host := range r {
		_, err := Parse(context.Background(), r, host+":1789")
		assert.ErrorIs(err, ErrInvalidAddress, host)
	}

	_, err := Parse(context.Background(), StaticResolver{"1.2.3.4": []net.IP{net.ParseIP("192.0.2.1")}}, "[1.2.3.4]:80")
	assert.ErrorIs(err, ErrInvalidAddress)
}

func TestEndpointInvalid(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	var a RoutingAddress
	_, err := a.Endpoint()
	assert.ErrorIs(err, ErrInvalidAddress)

	a, err = FromEndpoint(netip.MustParseAddrPort("10.1.2.3:1789"))
	assert.NoError(err)
	a[Length-1] = 0xff
	_, err = a.Endpoint()
	assert.ErrorIs(err, ErrInvalidAddress)

	_, err = FromBytes([]byte{flagIPv4, 1, 2, 3})
	assert.ErrorIs(err, ErrInvalidAddress)
}
