// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mining implements the block assembly ("mining template")
// pipeline described in spec.md §4.F: a dependency-graph walk over a
// mempool snapshot that selects transactions in a priority phase followed
// by a fee-rate phase, canonically reorders them once magnetic anomaly is
// active, and emits a coinbase with the BIP-34 height push.
package mining

import (
	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
)

// Policy bundles the assembler's tunable limits, mirroring the teacher's
// mining policy struct (internal/mining's Policy) but narrowed to what
// spec.md §4.F actually calls out.
type Policy struct {
	// BlockMaxSize is the maximum serialized size the assembled block may
	// reach, always itself bounded by wire.MaxForkBlockSize.
	BlockMaxSize uint32

	// BlockPrioritySize is the byte budget the priority phase may consume
	// before the assembler switches to the fee-rate phase.  Zero disables
	// the priority phase entirely.
	BlockPrioritySize uint32

	// PriorityThreshold is the minimum priority score (coin-age-weighted
	// value / size) an entry must have to be considered during the
	// priority phase.
	PriorityThreshold float64

	// CoinbaseFlags is appended to the coinbase scriptSig after the
	// BIP-34 height push, capped at 20 bytes per spec.md §4.F.
	CoinbaseFlags []byte

	// BlockMaxSigOps bounds the signature operations the assembled block
	// may contain.  Zero defers to blockchain.MaxBlockSigOps(BlockMaxSize).
	BlockMaxSigOps int64
}

// TxDesc describes one mempool entry as the assembler's dependency graph
// needs it: its transaction, its fee and serialized size, a priority score,
// and the txids of any other mempool entries it spends from (its
// "in-mempool parents").
type TxDesc struct {
	Tx        *wire.MsgTx
	Fee       int64
	Size      int
	SigOps    int
	Priority  float64
	ParentTxs []chainhash.Hash

	// DescendantRate is the best fee rate (satoshis per byte) paid by any
	// unconfirmed descendant package built on top of this entry, the
	// "entry.descRate" spec.md §4.F's fee-rate phase orders by alongside
	// the entry's own rate (a child-pays-for-parent hint the mempool
	// computes; zero if this entry has no in-mempool descendants).
	DescendantRate float64
}

// TxSource is the external mempool hook spec.md §4.F's "mempool snapshot
// pinned to the current tip" describes.  An implementation must return a
// consistent snapshot: every entry's ParentTxs either names another entry
// in the same slice or is absent from the mempool entirely (already
// confirmed), so the assembler's dependency graph is well-formed.
type TxSource interface {
	MiningDescs() []*TxDesc
}

// feeRate returns the fee rate (satoshis per byte) spec.md §4.F's fee-rate
// phase orders by.
func feeRate(desc *TxDesc) float64 {
	if desc.Size == 0 {
		return 0
	}
	return float64(desc.Fee) / float64(desc.Size)
}
