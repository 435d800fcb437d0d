// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package addr implements the fixed width routing address that a Sphinx
// packet carries for every hop, and the parsing of relay listener addresses
// into the network endpoints it encodes.
package addr

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

const (
	// Length is the length of a routing address in bytes.
	Length = 32

	flagIPv4 = 4
	flagIPv6 = 6

	portLength = 2
)

// hostProfile maps host names for lookup. Underscores are permitted as
// deployed relays use them.
var hostProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false))

// ErrInvalidAddress is the error returned when a relay address can not be
// turned into a routing address, or a routing address can not be turned
// back into an endpoint.
var ErrInvalidAddress = errors.New("addr: invalid address")

// Resolver looks up the IP addresses of a host name. *net.Resolver
// satisfies this interface.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// RoutingAddress is the binary encoding of a relay endpoint:
//
//	[flag][ip (4 or 16 bytes)][port (big endian)][zero padding]
//
// The flag is 4 for IPv4 endpoints and 6 for IPv6 endpoints.
type RoutingAddress [Length]byte

// FromEndpoint encodes an endpoint into a RoutingAddress.
func FromEndpoint(ep netip.AddrPort) (RoutingAddress, error) {
	var a RoutingAddress
	ip := ep.Addr().Unmap()
	if !ip.IsValid() {
		return a, fmt.Errorf("%w: no IP address", ErrInvalidAddress)
	}
	if ip.Zone() != "" {
		return a, fmt.Errorf("%w: zoned address '%v'", ErrInvalidAddress, ip)
	}

	var off int
	if ip.Is4() {
		a[0] = flagIPv4
		b := ip.As4()
		off = 1 + copy(a[1:], b[:])
	} else {
		a[0] = flagIPv6
		b := ip.As16()
		off = 1 + copy(a[1:], b[:])
	}
	binary.BigEndian.PutUint16(a[off:], ep.Port())
	return a, nil
}

// Endpoint decodes the RoutingAddress back into the endpoint it was
// created from.
func (a *RoutingAddress) Endpoint() (netip.AddrPort, error) {
	var (
		ip  netip.Addr
		off int
	)
	switch a[0] {
	case flagIPv4:
		ip = netip.AddrFrom4([4]byte(a[1:5]))
		off = 5
	case flagIPv6:
		ip = netip.AddrFrom16([16]byte(a[1:17]))
		off = 17
	default:
		return netip.AddrPort{}, fmt.Errorf("%w: unknown address flag 0x%02x", ErrInvalidAddress, a[0])
	}
	port := binary.BigEndian.Uint16(a[off:])
	for _, b := range a[off+portLength:] {
		if b != 0 {
			return netip.AddrPort{}, fmt.Errorf("%w: non-zero padding", ErrInvalidAddress)
		}
	}
	return netip.AddrPortFrom(ip, port), nil
}

// Bytes returns the routing address as a byte slice.
func (a *RoutingAddress) Bytes() []byte {
	return a[:]
}

// String returns the endpoint the address encodes, or a hex dump if the
// address is not decodable.
func (a RoutingAddress) String() string {
	ep, err := a.Endpoint()
	if err != nil {
		return fmt.Sprintf("%x", a[:])
	}
	return ep.String()
}

// FromBytes loads a routing address from a byte slice, validating that it
// decodes to an endpoint.
func FromBytes(b []byte) (RoutingAddress, error) {
	var a RoutingAddress
	if len(b) != Length {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, Length, len(b))
	}
	copy(a[:], b)
	if _, err := a.Endpoint(); err != nil {
		return a, err
	}
	return a, nil
}

// Parse parses a "host:port" string, including bracketed IPv6 forms, into an
// endpoint. Host names are looked up with r; a nil Resolver only accepts
// literal IP addresses.
func Parse(ctx context.Context, r Resolver, s string) (netip.AddrPort, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: '%v': %v", ErrInvalidAddress, s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: '%v': invalid port", ErrInvalidAddress, s)
	}
	if host == "" {
		return netip.AddrPort{}, fmt.Errorf("%w: '%v': missing host", ErrInvalidAddress, s)
	}

	ip, err := netip.ParseAddr(host)
	if strings.HasPrefix(s, "[") && (err != nil || !ip.Is6()) {
		return netip.AddrPort{}, fmt.Errorf("%w: '%v': brackets around a non IPv6 host", ErrInvalidAddress, s)
	}
	if err == nil {
		if ip.Zone() != "" {
			return netip.AddrPort{}, fmt.Errorf("%w: '%v': zoned address", ErrInvalidAddress, s)
		}
		return netip.AddrPortFrom(ip.Unmap(), uint16(port)), nil
	}

	if r == nil || strings.ContainsAny(host, ":%") {
		return netip.AddrPort{}, fmt.Errorf("%w: '%v': host is not an IP address", ErrInvalidAddress, s)
	}
	if host, err = hostProfile.ToASCII(host); err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: '%v': %v", ErrInvalidAddress, s, err)
	}
	if err = validateHostname(host); err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: '%v': %v", ErrInvalidAddress, s, err)
	}
	addrs, err := r.LookupIPAddr(ctx, host)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: '%v': %v", ErrInvalidAddress, s, err)
	}
	for _, a := range addrs {
		if ip, ok := netip.AddrFromSlice(a.IP); ok {
			return netip.AddrPortFrom(ip.Unmap(), uint16(port)), nil
		}
	}
	return netip.AddrPort{}, fmt.Errorf("%w: '%v': no addresses for host", ErrInvalidAddress, s)
}

// validateHostname applies the STD3 host name rules to a mapped host name,
// with the exception that underscores are permitted.
func validateHostname(host string) error {
	host = strings.TrimSuffix(host, ".")
	if len(host) == 0 || len(host) > 253 {
		return errors.New("invalid host name length")
	}
	for _, label := range strings.Split(host, ".") {
		if len(label) == 0 || len(label) > 63 {
			return errors.New("invalid label length in host name")
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return fmt.Errorf("label '%v' begins or ends with a hyphen", label)
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			default:
				return fmt.Errorf("invalid character %q in host name", c)
			}
		}
	}
	return nil
}

// Encode parses s and returns its RoutingAddress.
func Encode(ctx context.Context, r Resolver, s string) (RoutingAddress, error) {
	ep, err := Parse(ctx, r, s)
	if err != nil {
		return RoutingAddress{}, err
	}
	return FromEndpoint(ep)
}

// StaticResolver resolves host names from a fixed table.
type StaticResolver map[string][]net.IP

// LookupIPAddr implements Resolver.
func (s StaticResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := s[host]
	if !ok || len(ips) == 0 {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	ret := make([]net.IPAddr, 0, len(ips))
	for _, ip := range ips {
		ret = append(ret, net.IPAddr{IP: ip})
	}
	return ret, nil
}
