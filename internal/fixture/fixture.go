// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package fixture holds the directory snapshot shared by the tests.
package fixture

import "net"

// Destination is a valid base58 destination identifier.
const Destination = "AetTDvynUNB2N35rvCVDxkPR593Cx4PCe4QQKrMgm5RR"

// Hostnames maps the host names used by Topology to addresses, for use with
// a static resolver.
var Hostnames = map[string][]net.IP{
	"nym.300baud.de":                      {net.ParseIP("78.46.164.112")},
	"testnet_nymmixnode.roussel-zeter.eu": {net.ParseIP("2001:db8::53")},
}

// Topology is a directory snapshot with two layer 3 nodes, two layer 1
// nodes, a duplicated layer 2 node and two providers.
const Topology = `
{
  "cocoNodes": [],
  "mixNodes": [
    {
      "host": "nym.300baud.de:1789",
      "pubKey": "AetTDvynUNB2N35rvCVDxkPR593Cx4PCe4QQKrMgm5RR",
      "version": "0.6.0",
      "location": "Falkenstein, DE",
      "layer": 3,
      "lastSeen": 1587572945877713700
    },
    {
      "host": "testnet_nymmixnode.roussel-zeter.eu:1789",
      "pubKey": "9wJ3zLoyat41e4ZgT1AWeueExv5c6uwnjvkRepj8Ebis",
      "version": "0.6.0",
      "location": "Geneva, CH",
      "layer": 3,
      "lastSeen": 1587572945907250400
    },
    {
      "host": "185.144.83.134:1789",
      "pubKey": "59tCzpCYsiKXz89rtvNiEYwQDdkseSShPEkifQXhsCgA",
      "version": "0.6.0",
      "location": "Bucharest",
      "layer": 1,
      "lastSeen": 1587572946007431400
    },
    {
      "host": "[2a0a:e5c0:2:2:0:c8ff:fe68:bf6b]:1789",
      "pubKey": "J9f9uS1hN8iwcN2STqH55fPRYqt7McEPyhNzpTYsxNdG",
      "version": "0.6.0",
      "location": "Glarus",
      "layer": 1,
      "lastSeen": 1587572945920982000
    },
    {
      "host": "[2a0a:e5c0:2:2:0:c8ff:fe68:bf6b]:1789",
      "pubKey": "J9f9uS1hN8iwcN2STqH55fPRYqt7McEPyhNzpTYsxNdG",
      "version": "0.6.0",
      "location": "Glarus",
      "layer": 2,
      "lastSeen": 1587572945920982000
    },
    {
      "host": "[2a0a:e5c0:2:2:0:c8ff:fe68:bf6b]:1789",
      "pubKey": "J9f9uS1hN8iwcN2STqH55fPRYqt7McEPyhNzpTYsxNdG",
      "version": "0.6.0",
      "location": "Glarus",
      "layer": 2,
      "lastSeen": 1587572945920982000
    }
  ],
  "mixProviderNodes": [
    {
      "clientListener": "139.162.246.48:9000",
      "mixnetListener": "139.162.246.48:1789",
      "pubKey": "7vhgER4Gz789QHNTSu4apMpTcpTuUaRiLxJnbz1g2HFh",
      "version": "0.6.0",
      "location": "London, UK",
      "registeredClients": [
        {
          "pubKey": "5pgrc4gPHP2tBQgfezcdJ2ZAjipoAsy6evrqHdxBbVXq"
        }
      ],
      "lastSeen": 1587572946261865200
    },
    {
      "clientListener": "127.0.0.1:9000",
      "mixnetListener": "127.0.0.1:1789",
      "pubKey": "2XK8RDcUTRcJLUWoDfoXc2uP4YViscMLEM5NSzhSi87M",
      "version": "0.6.0",
      "location": "unknown",
      "registeredClients": [],
      "lastSeen": 1587572946304564700
    }
  ]
}
`
