// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package instrument

import (
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	require := require.New(t)

	before := testutil.ToFloat64(packetsCreated)
	PacketCreated()
	require.Equal(before+1, testutil.ToFloat64(packetsCreated))

	failures := packetFailures.WithLabelValues("InsufficientRelays")
	before = testutil.ToFloat64(failures)
	PacketFailed("InsufficientRelays")
	require.Equal(before+1, testutil.ToFloat64(failures))

	before = testutil.ToFloat64(payloadDiscardedBytes)
	truncations := testutil.ToFloat64(payloadTruncations)
	PayloadTruncated(42)
	require.Equal(before+42, testutil.ToFloat64(payloadDiscardedBytes))
	require.Equal(truncations+1, testutil.ToFloat64(payloadTruncations))

	RouteSelected("deterministic")
	require.Equal(1.0, testutil.ToFloat64(routesSelected.WithLabelValues("deterministic")))
}

func TestListener(t *testing.T) {
	require := require.New(t)

	l, err := StartListener("127.0.0.1:0")
	require.NoError(err)
	defer l.Close()

	// Registering twice is harmless.
	Init()

	SnapshotImported()
	resp, err := http.Get("http://" + l.Addr().String() + "/metrics")
	require.NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.Contains(string(body), "mixframe_topology_snapshots_imported_total")
}
