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

// MaxForkBlockSize is the maximum serialized size of a block, per spec.md
// §3.
const MaxForkBlockSize = 32_000_000

// MaxTxPerBlock bounds the transaction count relative to the block's
// serialized size, per spec.md §3 ("txs.len() <= size/10").
func MaxTxPerBlock(serializedSize int) int {
	return serializedSize / 10
}

// MsgBlock defines the block described in spec.md §3: an 80-byte header
// followed by a varint-prefixed transaction list.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// AddTransaction adds a transaction to the message.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

// BlockHash computes the block identifier hash for this block.
func (msg *MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

// SerializeSize returns the number of bytes it would take to serialize the
// block.
func (msg *MsgBlock) SerializeSize() int {
	n := MaxBlockHeaderPayload + VarIntSerializeSize(uint64(len(msg.Transactions)))
	for _, tx := range msg.Transactions {
		n += tx.SerializeSize()
	}
	return n
}

// Serialize encodes the block to w using the canonical wire encoding.
func (msg *MsgBlock) Serialize(w io.Writer) error {
	if err := msg.Header.Serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.Transactions))); err != nil {
		return err
	}
	for _, tx := range msg.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the canonical serialization of the block.
func (msg *MsgBlock) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(msg.SerializeSize())
	_ = msg.Serialize(&buf)
	return buf.Bytes()
}

// Deserialize decodes a block from r using the canonical wire encoding.
// A declared transaction count above MaxForkBlockSize/minTxPayload is
// rejected before the slice is allocated.
func (msg *MsgBlock) Deserialize(r io.Reader) error {
	if err := msg.Header.Deserialize(r); err != nil {
		return err
	}

	txCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if txCount > uint64(MaxForkBlockSize/minTxPayload) {
		return messageError("MsgBlock.Deserialize", "too many transactions to fit into max block size")
	}

	msg.Transactions = make([]*MsgTx, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx := new(MsgTx)
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		msg.Transactions = append(msg.Transactions, tx)
	}
	return nil
}

// minTxPayload is the minimum possible serialized size of a transaction (a
// 1-in/1-out transaction with empty scripts), used only to cheaply bound the
// transaction count declared in a block header before allocating memory for
// it.
const minTxPayload = 10 + 36 + 1 + 4 + 8 + 1

// NewMsgBlock returns a new bitcoin block message with the given header and
// no transactions.  See MsgBlock for details.
func NewMsgBlock(blockHeader *BlockHeader) *MsgBlock {
	return &MsgBlock{
		Header:       *blockHeader,
		Transactions: make([]*MsgTx, 0, 1),
	}
}
