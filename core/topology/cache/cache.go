// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package cache implements a BoltDB backed store of topology snapshots, so
// that packets can be built from the last imported directory snapshot.
package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/mixframe/mixframe/core/topology"
)

const (
	metadataBucket  = "metadata"
	snapshotsBucket = "snapshots"
	versionKey      = "version"
	latestKey       = "latest"

	cacheVersion = 0
)

// ErrNoSnapshot is the error returned when the store holds no snapshot.
var ErrNoSnapshot = errors.New("cache: no snapshot")

// Store is a persistent snapshot store.
type Store struct {
	db       *bolt.DB
	maxCount int
}

// New creates (or loads) a snapshot store with the given file name f,
// retaining at most maxCount snapshots (0 keeps everything).
func New(f string, maxCount int) (*Store, error) {
	db, err := bolt.Open(f, 0600, nil)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:       db,
		maxCount: maxCount,
	}

	if err = s.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if b := bkt.Get([]byte(versionKey)); b != nil {
			// Loading an existing database.
			if len(b) != 1 || b[0] != cacheVersion {
				return fmt.Errorf("cache: incompatible version: %d", uint(b[0]))
			}
		} else if err = bkt.Put([]byte(versionKey), []byte{cacheVersion}); err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists([]byte(snapshotsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Put stores the snapshot and marks it as the latest.
func (s *Store) Put(snap *topology.Snapshot) error {
	blob, err := snap.MarshalBinary()
	if err != nil {
		return err
	}
	key := timestampKey(snap)

	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(snapshotsBucket))
		if err := bkt.Put(key, blob); err != nil {
			return err
		}
		meta := tx.Bucket([]byte(metadataBucket))
		if err := meta.Put([]byte(latestKey), key); err != nil {
			return err
		}
		return s.prune(bkt, key)
	})
}

// Latest returns the most recently stored snapshot.
func (s *Store) Latest() (*topology.Snapshot, error) {
	snap := new(topology.Snapshot)
	err := s.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket([]byte(metadataBucket)).Get([]byte(latestKey))
		if key == nil {
			return ErrNoSnapshot
		}
		blob := tx.Bucket([]byte(snapshotsBucket)).Get(key)
		if blob == nil {
			return ErrNoSnapshot
		}
		// UnmarshalBinary copies what it needs out of blob, which is only
		// valid for the lifetime of the transaction.
		return snap.UnmarshalBinary(blob)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Count returns the number of snapshots held.
func (s *Store) Count() int {
	var n int
	s.db.View(func(tx *bolt.Tx) error {
		n = len(keys(tx.Bucket([]byte(snapshotsBucket))))
		return nil
	})
	return n
}

// Close closes the store.
func (s *Store) Close() error {
	s.db.Sync()
	return s.db.Close()
}

func (s *Store) prune(bkt *bolt.Bucket, latest []byte) error {
	if s.maxCount <= 0 {
		return nil
	}
	all := keys(bkt)
	excess := len(all) - s.maxCount
	for _, k := range all {
		if excess <= 0 {
			break
		}
		if bytes.Equal(k, latest) {
			continue
		}
		if err := bkt.Delete(k); err != nil {
			return err
		}
		excess--
	}
	return nil
}

// keys returns copies of the bucket's keys, oldest first.
func keys(bkt *bolt.Bucket) [][]byte {
	var ret [][]byte
	bkt.ForEach(func(k, _ []byte) error {
		ret = append(ret, append([]byte{}, k...))
		return nil
	})
	return ret
}

func timestampKey(snap *topology.Snapshot) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(snap.Timestamp.UnixNano()))
	return key[:]
}
