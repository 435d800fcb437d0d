// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// mixframe - A CLI tool for building gateway ready mixnet packets
//
// mixframe reads a directory topology document, selects a route through the
// mix layers and a provider, and writes a fixed size framed Sphinx packet.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/mixframe/mixframe/common"
	"github.com/mixframe/mixframe/core/topology"
	"github.com/mixframe/mixframe/core/topology/cache"
	"github.com/mixframe/mixframe/internal/instrument"
	"github.com/mixframe/mixframe/mixclient"
	"github.com/mixframe/mixframe/mixclient/config"
)

func main() {
	if err := common.ExecuteWithFang(context.Background(), newRootCommand()); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configFile string

	cfg     *config.Config
	opts    []mixclient.Option
	metrics net.Listener
}

func newRootCommand(opts ...mixclient.Option) *cobra.Command {
	a := &app{opts: opts}

	cmd := &cobra.Command{
		Use:   "mixframe",
		Short: "Mixnet packet builder",
		Long: `A CLI tool for building fixed size Sphinx packets for a layered mixnet.

The route traverses one mix node of each layer and terminates at a
provider. The packet is prefixed with the routing address of the first
hop, ready to be handed to the gateway.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.metrics != nil {
				return a.metrics.Close()
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "configuration file")

	cmd.AddCommand(a.newPacketCommand())
	cmd.AddCommand(a.newRouteCommand())
	cmd.AddCommand(a.newInspectCommand())
	cmd.AddCommand(a.newImportCommand())
	cmd.AddCommand(newGenKeyCommand())
	cmd.AddCommand(newUnwrapCommand())

	return cmd
}

func (a *app) setup() error {
	if a.configFile == "" {
		a.cfg = config.Default()
	} else {
		cfg, err := config.LoadFile(a.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config file '%v': %w", a.configFile, err)
		}
		a.cfg = cfg
	}

	if addr := a.cfg.Metrics.Address; addr != "" {
		l, err := instrument.StartListener(addr)
		if err != nil {
			return fmt.Errorf("failed to start metrics listener: %w", err)
		}
		a.metrics = l
	}
	return nil
}

func (a *app) newClient() (*mixclient.Client, error) {
	return mixclient.New(a.cfg, a.opts...)
}

func (a *app) openCache(f string) (*cache.Store, error) {
	if f == "" {
		f = a.cfg.Cache.File
	}
	if f == "" {
		return nil, fmt.Errorf("no topology cache configured")
	}
	return cache.New(f, a.cfg.Cache.MaxSnapshots)
}

// readInput reads the named file, or r if the name is "-".
func readInput(r io.Reader, f string) ([]byte, error) {
	if f == "-" {
		return io.ReadAll(r)
	}
	return os.ReadFile(f)
}

// loadTopology returns the raw topology document f if one was named, and
// the latest cached snapshot otherwise.
func (a *app) loadTopology(cmd *cobra.Command, f string) ([]byte, *topology.Snapshot, error) {
	if f != "" {
		b, err := readInput(cmd.InOrStdin(), f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read topology: %w", err)
		}
		return b, nil, nil
	}

	s, err := a.openCache("")
	if err != nil {
		return nil, nil, fmt.Errorf("no topology specified and %w", err)
	}
	defer s.Close()
	snap, err := s.Latest()
	if err != nil {
		return nil, nil, err
	}
	return nil, snap, nil
}

// loadSnapshot is loadTopology with the document parsed.
func (a *app) loadSnapshot(cmd *cobra.Command, f string) (*topology.Snapshot, error) {
	doc, snap, err := a.loadTopology(cmd, f)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return snap, nil
	}
	return topology.Parse(doc)
}
