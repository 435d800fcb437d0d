// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"io"
	"testing"

	"github.com/katzenpost/hpqc/rand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/hkdf"
)

func TestMAC(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	var key [MACKeyLength]byte
	_, err := io.ReadFull(rand.Reader, key[:])
	require.NoError(err)

	var src [1024]byte
	_, err = io.ReadFull(rand.Reader, src[:])
	require.NoError(err)

	eM := hmac.New(sha256.New, key[:])
	eM.Write(src[:])
	expected := eM.Sum(nil)[:MACLength]

	m := NewMAC(&key)
	n, err := m.Write(src[:])
	assert.NoError(err)
	assert.Equal(len(src), n)
	actual := m.Sum(nil)
	assert.Len(actual, MACLength)
	assert.Equal(expected, actual, "Sum() mismatch against HMAC-SHA256-128")

	prefix := []byte("prefix")
	assert.Equal(append(append([]byte{}, prefix...), expected...), m.Sum(prefix))
}

func TestStream(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	var key [StreamKeyLength]byte
	_, err := io.ReadFull(rand.Reader, key[:])
	require.NoError(err)

	var iv [StreamIVLength]byte
	_, err = io.ReadFull(rand.Reader, iv[:])
	require.NoError(err)

	s := NewStream(&key, &iv)
	defer s.Reset()

	blk, err := aes.NewCipher(key[:])
	require.NoError(err)
	ctr := cipher.NewCTR(blk, iv[:])

	var expected, actual [300]byte
	ctr.XORKeyStream(expected[:], expected[:])
	for i := range actual {
		actual[i] = 0xff
	}
	s.KeyStream(actual[:])
	assert.Equal(expected, actual, "KeyStream() mismatch against CTR-AES128")

	ctr.XORKeyStream(expected[:], expected[:])
	s.XORKeyStream(actual[:], actual[:])
	assert.Equal(expected, actual, "XORKeyStream() mismatch against CTR-AES128")
}

func TestSPRP(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	var key [SPRPKeyLength]byte
	_, err := io.ReadFull(rand.Reader, key[:])
	require.NoError(err)

	var iv [SPRPIVLength]byte
	_, err = io.ReadFull(rand.Reader, iv[:])
	require.NoError(err)

	var src [1024]byte
	_, err = io.ReadFull(rand.Reader, src[:])
	require.NoError(err)

	dst := SPRPEncrypt(&key, &iv, src[:])
	assert.Len(dst, len(src))
	assert.NotEqual(src[:], dst, "SPRPEncrypt() did not encrypt")

	dst = SPRPDecrypt(&key, &iv, dst)
	assert.Equal(src[:], dst, "SPRPDecrypt() did not decrypt")
}

func TestKDF(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	var ikm [GroupElementLength]byte
	for i := range ikm {
		ikm[i] = byte(i)
	}

	okm := make([]byte, okmLength)
	_, err := io.ReadFull(hkdf.Expand(sha256.New, ikm[:], []byte(kdfInfo)), okm)
	require.NoError(err)

	k := KDF(&ikm)
	assert.Equal(okm[:MACKeyLength], k.HeaderMAC[:])
	okm = okm[MACKeyLength:]
	assert.Equal(okm[:StreamKeyLength], k.HeaderEncryption[:])
	okm = okm[StreamKeyLength:]
	assert.Equal(okm[:StreamIVLength], k.HeaderEncryptionIV[:])
	okm = okm[StreamIVLength:]
	assert.Equal(okm[:SPRPKeyLength], k.PayloadEncryption[:])
	okm = okm[SPRPKeyLength:]
	assert.Equal(okm, k.BlindingFactor[:])

	k.Reset()
	assert.Zero(k.HeaderMAC)
	assert.Zero(k.HeaderEncryption)
	assert.Zero(k.HeaderEncryptionIV)
	assert.Zero(k.PayloadEncryption)
	assert.Zero(k.BlindingFactor)
}
