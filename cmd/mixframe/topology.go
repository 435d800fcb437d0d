// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mixframe/mixframe/core/topology"
	"github.com/mixframe/mixframe/internal/instrument"
)

func (a *app) newInspectCommand() *cobra.Command {
	var topologyFile string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a topology",
		Example: `  mixframe inspect -t topology.json
  mixframe inspect -c mixframe.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.loadSnapshot(cmd, topologyFile)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			sum := snap.Sum256()
			fmt.Fprintf(w, "snapshot: %v\n", snap)
			fmt.Fprintf(w, "digest: %x\n", sum[:])

			layers := snap.Layers()
			ids := make([]uint, 0, len(layers))
			for l := range layers {
				ids = append(ids, l)
			}
			slices.Sort(ids)
			for _, l := range ids {
				for _, n := range snap.NodesAtLayer(l) {
					fmt.Fprintf(w, "mix: %v\n", n)
				}
			}
			for _, p := range snap.Providers {
				fmt.Fprintf(w, "provider: %v\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&topologyFile, "topology", "t", "", "topology document (default: cached topology)")

	return cmd
}

func (a *app) newImportCommand() *cobra.Command {
	var topologyFile string
	var cacheFile string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a topology document into the topology cache",
		Long: `Parse a topology document and store it in the topology cache, where
newpacket, route and inspect pick it up when no document is named.`,
		Example: `  mixframe import -c mixframe.toml -t topology.json
  curl -s $DIRECTORY | mixframe import --cache topology.db -t -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := readInput(cmd.InOrStdin(), topologyFile)
			if err != nil {
				return fmt.Errorf("failed to read topology: %w", err)
			}
			snap, err := topology.Parse(b)
			if err != nil {
				return err
			}

			s, err := a.openCache(cacheFile)
			if err != nil {
				return err
			}
			defer s.Close()
			if err = s.Put(snap); err != nil {
				return err
			}
			instrument.SnapshotImported()

			fmt.Fprintf(cmd.OutOrStdout(), "imported %v, %d snapshots cached\n", snap, s.Count())
			return nil
		},
	}

	cmd.Flags().StringVarP(&topologyFile, "topology", "t", "", "topology document, - for stdin (required)")
	cmd.Flags().StringVar(&cacheFile, "cache", "", "topology cache file (default: from config)")
	cmd.MarkFlagRequired("topology")

	return cmd
}
