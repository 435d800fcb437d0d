// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package instrument exposes packet construction metrics to Prometheus.
package instrument

import (
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	packetsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mixframe_packets_created_total",
			Help: "Number of framed packets created",
		},
	)
	packetFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixframe_packet_failures_total",
			Help: "Number of failed packet constructions by failure kind",
		},
		[]string{"kind"},
	)
	routesSelected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixframe_routes_selected_total",
			Help: "Number of routes selected by selection strategy",
		},
		[]string{"strategy"},
	)
	payloadTruncations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mixframe_payload_truncations_total",
			Help: "Number of messages truncated to a single payload block",
		},
	)
	payloadDiscardedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mixframe_payload_discarded_bytes_total",
			Help: "Number of message bytes discarded by truncation",
		},
	)
	snapshotsImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mixframe_topology_snapshots_imported_total",
			Help: "Number of topology snapshots imported",
		},
	)

	initOnce sync.Once
)

// Init registers the metrics with the default Prometheus registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(packetsCreated)
		prometheus.MustRegister(packetFailures)
		prometheus.MustRegister(routesSelected)
		prometheus.MustRegister(payloadTruncations)
		prometheus.MustRegister(payloadDiscardedBytes)
		prometheus.MustRegister(snapshotsImported)
	})
}

// StartListener registers the metrics and serves them at /metrics on addr.
// The returned listener is closed to stop serving.
func StartListener(addr string) (net.Listener, error) {
	Init()

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go http.Serve(l, mux)
	return l, nil
}

// PacketCreated records a framed packet.
func PacketCreated() {
	packetsCreated.Inc()
}

// PacketFailed records a failed packet construction of the given kind.
func PacketFailed(kind string) {
	packetFailures.With(prometheus.Labels{"kind": kind}).Inc()
}

// RouteSelected records a route selected with strategy.
func RouteSelected(strategy string) {
	routesSelected.With(prometheus.Labels{"strategy": strategy}).Inc()
}

// PayloadTruncated records a message truncated by discarded bytes.
func PayloadTruncated(discarded int) {
	payloadTruncations.Inc()
	payloadDiscardedBytes.Add(float64(discarded))
}

// SnapshotImported records an imported topology snapshot.
func SnapshotImported() {
	snapshotsImported.Inc()
}
