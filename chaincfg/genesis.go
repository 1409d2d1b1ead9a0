// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
)

// genesisCoinbaseScript is the signature script used by the genesis block's
// lone coinbase input, in the style of Satoshi's original "Times" headline.
var genesisCoinbaseScript = []byte{
	0x04, 0xff, 0xff, 0x00, 0x1d, 0x01, 0x04, 0x45,
}

// genesisCoinbaseTx is the coinbase transaction for every network's genesis
// block in this package; only the block header (time/bits/nonce) and the
// network's ledger-funding outputs differ.
func genesisCoinbaseTx() *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
			SignatureScript:  genesisCoinbaseScript,
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{
			Value:    baseSubsidy,
			PkScript: []byte{0x6a}, // OP_RETURN; the genesis coinbase output is unspendable.
		}},
		LockTime: 0,
	}
}

// newGenesisBlock builds a single-transaction genesis block with the given
// header fields.  The merkle root of a one-transaction block is simply that
// transaction's hash.
func newGenesisBlock(version int32, timestamp int64, bits, nonce uint32) *wire.MsgBlock {
	coinbase := genesisCoinbaseTx()
	coinbase.Finalize()
	root := coinbase.TxHash()

	return &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    version,
			PrevBlock:  chainhash.Hash{},
			MerkleRoot: root,
			Timestamp:  timestamp,
			Bits:       bits,
			Nonce:      nonce,
		},
		Transactions: []*wire.MsgTx{coinbase},
	}
}
