// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/bchcore/bchd/chainhash"
)

// MaxBlockHeaderPayload is the number of bytes a block header occupies on
// the wire: 4 (version) + 32*2 (prev, merkle root) + 4 (time) + 4 (bits) + 4
// (nonce).
const MaxBlockHeaderPayload = 4 + (chainhash.HashSize * 2) + 4 + 4 + 4

// BlockHeader defines the header for the block described in spec.md §3.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  int64
	Bits       uint32
	Nonce      uint32
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bytes.Buffer
	buf.Grow(MaxBlockHeaderPayload)
	_ = writeBlockHeader(&buf, h)
	return chainhash.HashH(buf.Bytes())
}

// Serialize encodes the header to w in the canonical 80-byte wire format.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Deserialize decodes a header from r in the canonical 80-byte wire format.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	ver, err := readInt32LE(r)
	if err != nil {
		return err
	}
	h.Version = ver
	if _, err := io.ReadFull(r, h.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, h.MerkleRoot[:]); err != nil {
		return err
	}
	ts, err := readUint32LE(r)
	if err != nil {
		return err
	}
	h.Timestamp = int64(ts)
	bits, err := readUint32LE(r)
	if err != nil {
		return err
	}
	h.Bits = bits
	nonce, err := readUint32LE(r)
	if err != nil {
		return err
	}
	h.Nonce = nonce
	return nil
}

func writeBlockHeader(w io.Writer, h *BlockHeader) error {
	if err := writeInt32LE(w, h.Version); err != nil {
		return err
	}
	if _, err := w.Write(h.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.MerkleRoot[:]); err != nil {
		return err
	}
	if err := writeUint32LE(w, uint32(h.Timestamp)); err != nil {
		return err
	}
	if err := writeUint32LE(w, h.Bits); err != nil {
		return err
	}
	return writeUint32LE(w, h.Nonce)
}

// NewBlockHeader returns a new BlockHeader using the provided fields.
func NewBlockHeader(version int32, prevBlock, merkleRootHash *chainhash.Hash, bits uint32, nonce uint32) *BlockHeader {
	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevBlock,
		MerkleRoot: *merkleRootHash,
		Bits:       bits,
		Nonce:      nonce,
	}
}
