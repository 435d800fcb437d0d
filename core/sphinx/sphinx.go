// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package sphinx implements the fixed geometry Sphinx packet format used on
// the mix network.
package sphinx

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/katzenpost/hpqc/hash"
	ecdh "github.com/katzenpost/hpqc/nike/x25519"
	"github.com/katzenpost/hpqc/rand"
	"github.com/katzenpost/hpqc/util"
	"golang.org/x/crypto/curve25519"

	"github.com/mixframe/mixframe/core/addr"
	"github.com/mixframe/mixframe/core/node"
	"github.com/mixframe/mixframe/core/sphinx/internal/crypto"
)

const (
	// GroupElementLength is the length of the header group element.
	GroupElementLength = crypto.GroupElementLength

	// MaxHops is the maximum number of hops a packet can traverse.
	MaxHops = 5

	// RoutingInfoLength is the length of the header routing information.
	RoutingInfoLength = PerHopRoutingInfoLength * MaxHops

	// HeaderLength is the length of a packet header.
	HeaderLength = GroupElementLength + RoutingInfoLength + crypto.MACLength

	// PayloadTagLength is the length of the payload authentication tag.
	PayloadTagLength = 16

	// PayloadBlockLength is the maximum length of the user payload.
	PayloadBlockLength = 1008

	// PayloadLength is the length of the encrypted packet payload.
	PayloadLength = PayloadTagLength + PayloadBlockLength

	// PacketLength is the length of a packet.
	PacketLength = HeaderLength + PayloadLength

	// SecretLength is the length of an initial secret.
	SecretLength = ecdh.PrivateKeySize
)

var (
	errInvalidPacket = errors.New("sphinx: invalid packet")
	errMACMismatch   = errors.New("sphinx: invalid packet, MAC mismatch")
	errInvalidTag    = errors.New("sphinx: payload auth failed")

	zeroTag [PayloadTagLength]byte
)

// Sphinx builds packets.
type Sphinx struct {
	rng io.Reader
}

// New returns a Sphinx drawing ephemeral keys and padding from r, or from
// the system entropy source if r is nil.
func New(r io.Reader) *Sphinx {
	if r == nil {
		r = rand.Reader
	}
	return &Sphinx{rng: r}
}

// PacketLength returns the length of every packet built.
func (s *Sphinx) PacketLength() int {
	return PacketLength
}

// NewPacket builds a packet carrying payload along route to dest, with
// delays[i] being the delay requested of route[i]. If secret is non-nil it
// is used as the ephemeral private key instead of a fresh one.
func (s *Sphinx) NewPacket(payload []byte, route []node.Node, dest *node.Destination, delays []time.Duration, secret []byte) ([]byte, error) {
	if len(payload) > PayloadBlockLength {
		return nil, fmt.Errorf("sphinx: oversized payload: %d bytes, max %d", len(payload), PayloadBlockLength)
	}
	if dest == nil {
		return nil, errors.New("sphinx: missing destination")
	}

	hdr, keys, err := s.createHeader(route, dest, delays, secret)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		defer k.Reset()
	}

	// Assemble the packet, the tag and any payload padding are zero.
	pkt := make([]byte, PacketLength)
	copy(pkt, hdr)
	copy(pkt[HeaderLength+PayloadTagLength:], payload)

	// Encrypt the payload.
	b := pkt[HeaderLength:]
	for i := len(keys) - 1; i >= 0; i-- {
		b = crypto.SPRPEncrypt(&keys[i].PayloadEncryption, &keys[i].HeaderEncryptionIV, b)
	}
	copy(pkt[HeaderLength:], b)

	return pkt, nil
}

func (s *Sphinx) ephemeralKey(secret []byte) (*ecdh.PrivateKey, error) {
	if secret == nil {
		return ecdh.NewKeypair(s.rng)
	}
	if len(secret) != SecretLength {
		return nil, fmt.Errorf("sphinx: invalid initial secret length: %d", len(secret))
	}
	k := new(ecdh.PrivateKey)
	if err := k.FromBytes(secret); err != nil {
		return nil, err
	}
	return k, nil
}

func (s *Sphinx) createHeader(route []node.Node, dest *node.Destination, delays []time.Duration, secret []byte) ([]byte, []*crypto.PacketKeys, error) {
	nrHops := len(route)
	if nrHops == 0 || nrHops > MaxHops {
		return nil, nil, fmt.Errorf("sphinx: invalid route length: %d", nrHops)
	}
	if len(delays) != nrHops {
		return nil, nil, fmt.Errorf("sphinx: %d delays for %d hops", len(delays), nrHops)
	}

	// Derive the key material for each hop.
	clientPrivateKey, err := s.ephemeralKey(secret)
	if err != nil {
		return nil, nil, err
	}
	defer clientPrivateKey.Reset()
	x := clientPrivateKey.Bytes()
	defer util.ExplicitBzero(x)

	groupElements := make([][]byte, nrHops)
	keys := make([]*crypto.PacketKeys, 0, nrHops)
	resetKeys := func() {
		for _, k := range keys {
			k.Reset()
		}
	}

	groupElements[0] = clientPrivateKey.Public().Bytes()
	for i := 0; i < nrHops; i++ {
		sharedSecret, err := curve25519.X25519(x, route[i].PublicKey[:])
		if err != nil {
			resetKeys()
			return nil, nil, fmt.Errorf("sphinx: hop %d: %v", i, err)
		}
		for j := 0; j < i; j++ {
			blinded, err := curve25519.X25519(keys[j].BlindingFactor[:], sharedSecret)
			util.ExplicitBzero(sharedSecret)
			if err != nil {
				resetKeys()
				return nil, nil, fmt.Errorf("sphinx: hop %d: %v", i, err)
			}
			sharedSecret = blinded
		}

		var ikm [GroupElementLength]byte
		copy(ikm[:], sharedSecret)
		util.ExplicitBzero(sharedSecret)
		keys = append(keys, crypto.KDF(&ikm))
		util.ExplicitBzero(ikm[:])

		if i > 0 {
			groupElements[i], err = curve25519.X25519(keys[i-1].BlindingFactor[:], groupElements[i-1])
			if err != nil {
				resetKeys()
				return nil, nil, err
			}
		}
	}

	// Derive the routing information keystream and encrypted padding for
	// each hop.
	riKeyStream := make([][]byte, nrHops)
	riPadding := make([][]byte, nrHops)

	for i := 0; i < nrHops; i++ {
		keyStream := make([]byte, RoutingInfoLength+PerHopRoutingInfoLength)
		defer util.ExplicitBzero(keyStream)

		streamCipher := crypto.NewStream(&keys[i].HeaderEncryption, &keys[i].HeaderEncryptionIV)
		streamCipher.KeyStream(keyStream)
		streamCipher.Reset()

		ksLen := len(keyStream) - (i+1)*PerHopRoutingInfoLength
		riKeyStream[i] = keyStream[:ksLen]
		riPadding[i] = keyStream[ksLen:]
		if i > 0 {
			prevPadLen := len(riPadding[i-1])
			xorBytes(riPadding[i][:prevPadLen], riPadding[i][:prevPadLen], riPadding[i-1])
		}
	}

	// Create the routing information block, from the terminal hop back.
	var mac []byte
	var routingInfo []byte
	if skippedHops := MaxHops - nrHops; skippedHops > 0 {
		routingInfo = make([]byte, skippedHops*PerHopRoutingInfoLength)
		if _, err := io.ReadFull(s.rng, routingInfo); err != nil {
			resetKeys()
			return nil, nil, err
		}
	}
	for i := nrHops - 1; i >= 0; i-- {
		riFragment := make([]byte, PerHopRoutingInfoLength)
		if i == nrHops-1 {
			err = encodeFinalHop(riFragment, delays[i], dest)
		} else {
			err = encodeForwardHop(riFragment, delays[i], &route[i+1], mac)
		}
		if err != nil {
			resetKeys()
			return nil, nil, err
		}

		routingInfo = append(riFragment, routingInfo...) // Prepend
		xorBytes(routingInfo, routingInfo, riKeyStream[i])

		m := crypto.NewMAC(&keys[i].HeaderMAC)
		m.Write(groupElements[i])
		m.Write(routingInfo)
		if i > 0 {
			m.Write(riPadding[i-1])
		}
		mac = m.Sum(nil)
		m.Reset()
	}

	hdr := make([]byte, 0, HeaderLength)
	hdr = append(hdr, groupElements[0]...)
	hdr = append(hdr, routingInfo...)
	hdr = append(hdr, mac...)

	return hdr, keys, nil
}

// Hop is the result of processing a packet at one hop.
type Hop struct {
	// Delay is the delay requested of the hop.
	Delay time.Duration

	// NextHop is the hop the packet is forwarded to, and Packet is the
	// packet to forward. Both are nil at the terminal hop.
	NextHop *addr.RoutingAddress
	Packet  []byte

	// Destination and Payload are set at the terminal hop only.
	Destination *node.Destination
	Payload     []byte

	// ReplayTag identifies the packet at this hop.
	ReplayTag [32]byte
}

// IsTerminal returns true iff the packet reached its last hop.
func (h *Hop) IsTerminal() bool {
	return h.Destination != nil
}

// Unwrap processes the packet pkt with the hop's private key. The returned
// forward packet reuses, and overwrites, the buffer pkt.
func Unwrap(privKey *ecdh.PrivateKey, pkt []byte) (*Hop, error) {
	const (
		riOff      = GroupElementLength
		macOff     = riOff + RoutingInfoLength
		payloadOff = macOff + crypto.MACLength
	)

	if len(pkt) != PacketLength {
		return nil, fmt.Errorf("%w: length %d", errInvalidPacket, len(pkt))
	}

	priv := privKey.Bytes()
	defer util.ExplicitBzero(priv)
	groupElement := pkt[:riOff]
	sharedSecret, err := curve25519.X25519(priv, groupElement)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidPacket, err)
	}

	h := &Hop{ReplayTag: hash.Sum256(groupElement)}

	// Derive the various keys required for packet processing.
	var ikm [GroupElementLength]byte
	copy(ikm[:], sharedSecret)
	util.ExplicitBzero(sharedSecret)
	keys := crypto.KDF(&ikm)
	util.ExplicitBzero(ikm[:])
	defer keys.Reset()

	// Validate the header.
	m := crypto.NewMAC(&keys.HeaderMAC)
	m.Write(pkt[:macOff])
	mac := m.Sum(nil)
	m.Reset()
	if subtle.ConstantTimeCompare(pkt[macOff:payloadOff], mac) != 1 {
		return nil, errMACMismatch
	}

	// Append padding to preserve length invariance, decrypt the (padded)
	// routing information, and extract the section for the current hop.
	b := make([]byte, RoutingInfoLength+PerHopRoutingInfoLength)
	copy(b, pkt[riOff:macOff])
	stream := crypto.NewStream(&keys.HeaderEncryption, &keys.HeaderEncryptionIV)
	stream.XORKeyStream(b, b)
	stream.Reset()

	cmd, err := decodeRoutingInfo(b[:PerHopRoutingInfoLength])
	if err != nil {
		return nil, err
	}
	h.Delay = cmd.delay

	payload := crypto.SPRPDecrypt(&keys.PayloadEncryption, &keys.HeaderEncryptionIV, pkt[payloadOff:])

	if cmd.next != nil {
		blinded, err := curve25519.X25519(keys.BlindingFactor[:], groupElement)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidPacket, err)
		}
		copy(pkt[:riOff], blinded)
		copy(pkt[riOff:macOff], b[PerHopRoutingInfoLength:])
		copy(pkt[macOff:payloadOff], cmd.mac[:])
		copy(pkt[payloadOff:], payload)
		h.NextHop = cmd.next
		h.Packet = pkt
		return h, nil
	}

	if subtle.ConstantTimeCompare(payload[:PayloadTagLength], zeroTag[:]) != 1 {
		return nil, errInvalidTag
	}
	h.Destination = cmd.dest
	h.Payload = payload[PayloadTagLength:]
	return h, nil
}

func xorBytes(dst, a, b []byte) {
	if len(a) != len(b) || len(a) != len(dst) {
		panic(fmt.Sprintf("sphinx: BUG: xorBytes called with mismatched buffer sizes, got 'len(a)' %d and 'len(b)' %d", len(a), len(b)))
	}

	for i, v := range a {
		dst[i] = v ^ b[i]
	}
}
