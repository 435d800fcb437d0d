// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mixframe/mixframe/mixclient"
)

func (a *app) newPacketCommand() *cobra.Command {
	var topologyFile string
	var message string
	var messageFile string
	var destination string
	var outputFile string

	cmd := &cobra.Command{
		Use:   "newpacket",
		Short: "Create a new framed packet",
		Long: `Create a new framed packet carrying a message to a destination.

The topology is read from the named file, or from the topology cache
if no file is given. The packet is written in binary to the output file,
or hex encoded to stdout.`,
		Example: `  # Build a packet from a topology document
  mixframe newpacket -t topology.json -m "hello" -d <destination>

  # Build a packet from the cached topology, message read from stdin
  echo hello | mixframe newpacket -c mixframe.toml -f - -d <destination> -o packet.bin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var msg []byte
			switch {
			case message != "" && messageFile != "":
				return errors.New("invalid argument: both --message and --message-file specified")
			case messageFile != "":
				var err error
				if msg, err = readInput(cmd.InOrStdin(), messageFile); err != nil {
					return fmt.Errorf("failed to read message: %w", err)
				}
			default:
				msg = []byte(message)
			}

			doc, snap, err := a.loadTopology(cmd, topologyFile)
			if err != nil {
				return err
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			var pkt []byte
			if snap == nil {
				pkt, err = c.CreatePacket(cmd.Context(), doc, msg, destination)
			} else {
				c.SetTopology(snap)
				p, perr := c.NewPacketFromCurrent(cmd.Context(), msg, destination)
				if p != nil {
					pkt = p.Framed
				}
				err = perr
			}
			if err != nil {
				return fmt.Errorf("%s: %w", mixclient.Kind(err), err)
			}

			if outputFile != "" {
				return os.WriteFile(outputFile, pkt, 0600)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(pkt))
			return err
		},
	}

	cmd.Flags().StringVarP(&topologyFile, "topology", "t", "", "topology document (default: cached topology)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message")
	cmd.Flags().StringVarP(&messageFile, "message-file", "f", "", "message file, - for stdin")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "base58 destination address (required)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: hex to stdout)")
	cmd.MarkFlagRequired("destination")

	return cmd
}

func (a *app) newRouteCommand() *cobra.Command {
	var topologyFile string

	cmd := &cobra.Command{
		Use:     "route",
		Short:   "Show the route a packet would traverse",
		Example: `  mixframe route -t topology.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.loadSnapshot(cmd, topologyFile)
			if err != nil {
				return err
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			defer c.Close()
			r, provider, err := c.Route(cmd.Context(), snap)
			if err != nil {
				return fmt.Errorf("%s: %w", mixclient.Kind(err), err)
			}

			w := cmd.OutOrStdout()
			for i := range r {
				fmt.Fprintf(w, "hop %d: %v\n", i, &r[i])
			}
			fmt.Fprintf(w, "provider: %v\n", provider)
			return nil
		},
	}

	cmd.Flags().StringVarP(&topologyFile, "topology", "t", "", "topology document (default: cached topology)")

	return cmd
}
