// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ecdh "github.com/katzenpost/hpqc/nike/x25519"
	"github.com/katzenpost/hpqc/rand"
	"github.com/stretchr/testify/require"

	"github.com/mixframe/mixframe/core/addr"
	"github.com/mixframe/mixframe/core/node"
	"github.com/mixframe/mixframe/core/payload"
	"github.com/mixframe/mixframe/core/sphinx"
	"github.com/mixframe/mixframe/internal/fixture"
	"github.com/mixframe/mixframe/log"
	"github.com/mixframe/mixframe/mixclient"
)

func run(t *testing.T, args ...string) (string, error) {
	backend, err := log.NewWriter(io.Discard, "DEBUG")
	require.NoError(t, err)

	cmd := newRootCommand(
		mixclient.WithResolver(addr.StaticResolver(fixture.Hostnames)),
		mixclient.WithLogBackend(backend),
	)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	f := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(f, []byte(body), 0600))
	return f
}

func TestNewPacketCommand(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	topo := writeFile(t, "topology.json", fixture.Topology)
	out, err := run(t, "newpacket", "-t", topo, "-m", "foomp", "-d", fixture.Destination)
	require.NoError(err)

	pkt, err := hex.DecodeString(strings.TrimSpace(out))
	require.NoError(err)
	require.Len(pkt, 1404)

	first, err := addr.FromBytes(pkt[:addr.Length])
	require.NoError(err)
	require.Equal("185.144.83.134:1789", first.String())

	outFile := filepath.Join(t.TempDir(), "packet.bin")
	_, err = run(t, "newpacket", "-t", topo, "-m", "foomp", "-d", fixture.Destination, "-o", outFile)
	require.NoError(err)
	b, err := os.ReadFile(outFile)
	require.NoError(err)
	require.Len(b, 1404)
}

func TestNewPacketCommandErrors(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	topo := writeFile(t, "topology.json", fixture.Topology)

	_, err := run(t, "newpacket", "-t", topo, "-m", "foomp")
	require.ErrorContains(err, "required flag")

	_, err = run(t, "newpacket", "-t", topo, "-m", "foomp", "-f", topo, "-d", fixture.Destination)
	require.ErrorContains(err, "invalid argument")

	_, err = run(t, "newpacket", "-t", topo, "-d", fixture.Destination)
	require.ErrorContains(err, "EmptyMessage")

	_, err = run(t, "newpacket", "-t", writeFile(t, "bad.json", "{"), "-m", "foomp", "-d", fixture.Destination)
	require.ErrorContains(err, "MalformedTopology")

	_, err = run(t, "newpacket", "-m", "foomp", "-d", fixture.Destination)
	require.ErrorContains(err, "no topology cache configured")

	_, err = run(t, "-c", writeFile(t, "bad.toml", "Bogus = 1\n"), "route", "-t", topo)
	require.ErrorContains(err, "failed to load config file")
}

func TestRouteAndInspectCommands(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	topo := writeFile(t, "topology.json", fixture.Topology)

	out, err := run(t, "route", "-t", topo)
	require.NoError(err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(lines, 5)
	require.True(strings.HasPrefix(lines[0], "hop 0: 185.144.83.134:1789"), lines[0])
	require.True(strings.HasPrefix(lines[3], "hop 3: 139.162.246.48:1789"), lines[3])
	require.True(strings.HasPrefix(lines[4], "provider: "), lines[4])

	out, err = run(t, "inspect", "-t", topo)
	require.NoError(err)
	require.Contains(out, "digest: ")
	require.Equal(2, strings.Count(out, "provider: "))
	require.Equal(6, strings.Count(out, "mix: "))
}

func TestImportCommand(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	cfg := writeFile(t, "mixframe.toml", fmt.Sprintf("[Logging]\nDisable = true\n\n[Cache]\nFile = %q\n", filepath.Join(dir, "topology.db")))
	topo := writeFile(t, "topology.json", fixture.Topology)

	_, err := run(t, "-c", cfg, "inspect")
	require.Error(err)

	out, err := run(t, "-c", cfg, "import", "-t", topo)
	require.NoError(err)
	require.Contains(out, "1 snapshots cached")

	out, err = run(t, "-c", cfg, "newpacket", "-m", "foomp", "-d", fixture.Destination)
	require.NoError(err)
	pkt, err := hex.DecodeString(strings.TrimSpace(out))
	require.NoError(err)
	require.Len(pkt, 1404)

	out, err = run(t, "-c", cfg, "inspect")
	require.NoError(err)
	require.Equal(2, strings.Count(out, "provider: "))
}

func TestGenKeyCommand(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	out, err := run(t, "genkey")
	require.NoError(err)
	lines := strings.Split(out, "\n")
	require.Equal("Public key:", lines[0])
	require.Equal("Private key (keep secret):", lines[3])

	var enc node.Base58
	pub, err := enc.Decode(lines[1])
	require.NoError(err)
	priv, err := enc.Decode(lines[4])
	require.NoError(err)

	k := new(ecdh.PrivateKey)
	require.NoError(k.FromBytes(priv))
	require.Equal(pub, k.Public().Bytes())
}

func TestUnwrapCommand(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	var enc node.Base58
	keys := make([]*ecdh.PrivateKey, 2)
	route := make([]node.Node, 2)
	for i := range route {
		k, err := ecdh.NewKeypair(rand.Reader)
		require.NoError(err)
		keys[i] = k
		route[i].Address, err = addr.FromEndpoint(netip.MustParseAddrPort(fmt.Sprintf("10.0.0.%d:1789", i+1)))
		require.NoError(err)
		copy(route[i].PublicKey[:], k.Public().Bytes())
	}
	dest := &node.Destination{Identifier: [node.IdentifierLength]byte{4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4}}
	dest.Address[0] = 0x2a

	block, err := payload.NewSizer(nil).ToSingleBlock([]byte("hello"))
	require.NoError(err)
	pkt, err := sphinx.New(nil).NewPacket(block.Data, route, dest, []time.Duration{time.Second, 2 * time.Second}, nil)
	require.NoError(err)
	first := writeFile(t, "first.bin", string(append(route[0].Address.Bytes(), pkt...)))

	next := filepath.Join(t.TempDir(), "next.bin")
	out, err := run(t, "unwrap", "-k", enc.Encode(keys[0].Bytes()), "-p", first, "-o", next)
	require.NoError(err)
	require.Contains(out, "delay: 1s")
	require.Contains(out, "next hop: 10.0.0.2:1789")

	out, err = run(t, "unwrap", "-k", enc.Encode(keys[1].Bytes()), "-p", next)
	require.NoError(err)
	require.Contains(out, "delay: 2s")
	require.Contains(out, "destination: "+enc.Encode(dest.Address[:]))
	require.Contains(out, "identifier: 04040404040404040404040404040404")
	require.Contains(out, `message: "hello"`)

	_, err = run(t, "unwrap", "-k", enc.Encode(keys[1].Bytes()), "-p", first)
	require.Error(err)
}
