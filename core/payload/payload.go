// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package payload converts messages into fixed size payload blocks.
package payload

import (
	"errors"
	"fmt"
)

const (
	// BlockLength is the length of a payload block carried by one packet.
	BlockLength = 1008

	// Terminator marks the end of the message bytes within a block.
	Terminator = 0x01
)

// ErrEmptyMessage is the error returned when a message yields no payload
// blocks.
var ErrEmptyMessage = errors.New("payload: empty message")

// Chunker splits a message into fixed size blocks.
type Chunker interface {
	// Split returns the message as a sequence of blocks, each exactly
	// BlockLength() bytes long.
	Split(msg []byte) [][]byte

	// BlockLength returns the length of each block.
	BlockLength() int

	// Capacity returns the number of message bytes each block carries.
	Capacity() int
}

// FixedChunker splits messages into blocks of Length bytes. Each block
// carries at most Length-1 message bytes followed by Terminator and zero
// padding. An empty message yields no blocks.
type FixedChunker struct {
	Length int
}

// BlockLength implements Chunker.
func (c *FixedChunker) BlockLength() int {
	return c.Length
}

// Capacity implements Chunker.
func (c *FixedChunker) Capacity() int {
	return c.Length - 1
}

// Split implements Chunker.
func (c *FixedChunker) Split(msg []byte) [][]byte {
	if c.Length < 2 {
		panic(fmt.Sprintf("payload: invalid block length: %d", c.Length))
	}

	var blocks [][]byte
	for len(msg) > 0 {
		n := min(len(msg), c.Capacity())
		b := make([]byte, c.Length)
		copy(b, msg[:n])
		b[n] = Terminator
		blocks = append(blocks, b)
		msg = msg[n:]
	}
	return blocks
}

// Unpad returns the message bytes carried by a block produced by
// FixedChunker.
func Unpad(b []byte) ([]byte, error) {
	for i := len(b) - 1; i >= 0; i-- {
		switch b[i] {
		case 0x00:
		case Terminator:
			return b[:i], nil
		default:
			return nil, errors.New("payload: invalid block padding")
		}
	}
	return nil, errors.New("payload: missing block terminator")
}

// Kind is the outcome of fitting a message into one block.
type Kind int

const (
	// Fits indicates the whole message is carried by the block.
	Fits Kind = iota

	// Truncated indicates message bytes beyond the first block were
	// discarded.
	Truncated
)

// String returns the name of the outcome.
func (k Kind) String() string {
	switch k {
	case Fits:
		return "fits"
	case Truncated:
		return "truncated"
	default:
		return fmt.Sprintf("[unknown kind: %d]", int(k))
	}
}

// Block is a single payload block.
type Block struct {
	// Data is the block, exactly the chunker's BlockLength bytes.
	Data []byte

	// Discarded is the number of message bytes that did not fit.
	Discarded int
}

// Kind returns whether the message was truncated.
func (b *Block) Kind() Kind {
	if b.Discarded > 0 {
		return Truncated
	}
	return Fits
}

// Sizer fits messages into a single payload block.
type Sizer struct {
	chunker Chunker
}

// NewSizer returns a Sizer using c, or a FixedChunker of BlockLength if c
// is nil.
func NewSizer(c Chunker) *Sizer {
	if c == nil {
		c = &FixedChunker{Length: BlockLength}
	}
	return &Sizer{chunker: c}
}

// BlockLength returns the length of the blocks produced.
func (s *Sizer) BlockLength() int {
	return s.chunker.BlockLength()
}

// ToSingleBlock returns the first block of msg. Message bytes carried by
// any further blocks are discarded and counted in Block.Discarded.
func (s *Sizer) ToSingleBlock(msg []byte) (*Block, error) {
	blocks := s.chunker.Split(msg)
	if len(blocks) == 0 {
		return nil, ErrEmptyMessage
	}

	b := &Block{Data: blocks[0]}
	if len(blocks) > 1 {
		b.Discarded = max(len(msg)-s.chunker.Capacity(), 0)
	}
	return b, nil
}
