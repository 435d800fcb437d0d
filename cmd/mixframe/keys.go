// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"encoding/hex"
	"fmt"
	"os"

	ecdh "github.com/katzenpost/hpqc/nike/x25519"
	"github.com/katzenpost/hpqc/rand"
	"github.com/spf13/cobra"

	"github.com/mixframe/mixframe/core/addr"
	"github.com/mixframe/mixframe/core/node"
	"github.com/mixframe/mixframe/core/payload"
	"github.com/mixframe/mixframe/core/sphinx"
)

func newGenKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a new relay keypair",
		Long: `Generate a new X25519 keypair and print both keys base58 encoded.

The public key is what a relay publishes in the topology document, the
private key is what unwrap uses to process packets addressed to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := ecdh.NewKeypair(rand.Reader)
			if err != nil {
				return fmt.Errorf("failed to generate keypair: %w", err)
			}
			defer k.Reset()

			var enc node.Base58
			fmt.Fprintf(cmd.OutOrStdout(), "Public key:\n%s\n\n", enc.Encode(k.Public().Bytes()))
			fmt.Fprintf(cmd.OutOrStdout(), "Private key (keep secret):\n%s\n", enc.Encode(k.Bytes()))
			return nil
		},
	}
	return cmd
}

func newUnwrapCommand() *cobra.Command {
	var privateKey string
	var packetFile string
	var outputFile string

	cmd := &cobra.Command{
		Use:   "unwrap",
		Short: "Unwrap one layer of a packet",
		Long: `Unwrap one layer of a packet with a relay's private key, revealing the
per-hop routing information. This simulates what a relay does with a
packet addressed to it.

The packet may be framed, as written by newpacket, or bare.`,
		Example: `  mixframe unwrap -k <private key> -p packet.bin -o next.bin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var enc node.Base58
			b, err := enc.Decode(privateKey)
			if err != nil {
				return fmt.Errorf("invalid argument: private key: %w", err)
			}
			k := new(ecdh.PrivateKey)
			if err = k.FromBytes(b); err != nil {
				return fmt.Errorf("invalid argument: private key: %w", err)
			}
			defer k.Reset()

			pkt, err := readInput(cmd.InOrStdin(), packetFile)
			if err != nil {
				return fmt.Errorf("failed to read packet: %w", err)
			}
			if len(pkt) == addr.Length+sphinx.PacketLength {
				pkt = pkt[addr.Length:]
			}

			h, err := sphinx.Unwrap(k, pkt)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "delay: %v\n", h.Delay)
			if !h.IsTerminal() {
				fmt.Fprintf(w, "next hop: %v\n", h.NextHop)
				if outputFile == "" {
					return nil
				}
				framed := append(h.NextHop.Bytes(), h.Packet...)
				return os.WriteFile(outputFile, framed, 0600)
			}

			fmt.Fprintf(w, "destination: %s\n", enc.Encode(h.Destination.Address[:]))
			fmt.Fprintf(w, "identifier: %s\n", hex.EncodeToString(h.Destination.Identifier[:]))
			msg, err := payload.Unpad(h.Payload)
			if err != nil {
				return err
			}
			if outputFile != "" {
				return os.WriteFile(outputFile, msg, 0600)
			}
			fmt.Fprintf(w, "message: %q\n", msg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&privateKey, "private-key", "k", "", "base58 private key (required)")
	cmd.Flags().StringVarP(&packetFile, "packet", "p", "", "packet file, - for stdin (required)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file for the next packet, or the message at the last hop")
	cmd.MarkFlagRequired("private-key")
	cmd.MarkFlagRequired("packet")

	return cmd
}
