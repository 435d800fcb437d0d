// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package topology

import (
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// SnapshotVersion identifies the serialized snapshot format.
const SnapshotVersion = "mixframe-snapshot-v0"

var (
	ccbor cbor.EncMode

	errSnapshotVersion = errors.New("topology: invalid snapshot version")
)

type snapshot struct {
	Version   string
	Timestamp int64
	MixNodes  []*MixNode
	Providers []*Provider
	CocoNodes []*CocoNode `cbor:",omitempty"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	return ccbor.Marshal(&snapshot{
		Version:   SnapshotVersion,
		Timestamp: s.Timestamp.UnixNano(),
		MixNodes:  s.MixNodes,
		Providers: s.Providers,
		CocoNodes: s.CocoNodes,
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Snapshot) UnmarshalBinary(data []byte) error {
	var w snapshot
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Version != SnapshotVersion {
		return errSnapshotVersion
	}
	s.Timestamp = time.Unix(0, w.Timestamp)
	s.MixNodes = w.MixNodes
	s.Providers = w.Providers
	s.CocoNodes = w.CocoNodes
	return nil
}

func init() {
	var err error
	opts := cbor.CanonicalEncOptions()
	ccbor, err = opts.EncMode()
	if err != nil {
		panic(err)
	}
}
