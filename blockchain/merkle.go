// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
	"github.com/decred/dcrd/container/apbf"
)

// duplicateTxFilterFalsePositiveRate bounds how often the approximate
// partitioned bloom filter in HasDuplicateInputs falsely reports a
// possible duplicate, forcing the fallback exact check; a block's
// transaction count is always small enough that the fallback path never
// matters for throughput, only for the filter's own memory footprint.
const duplicateTxFilterFalsePositiveRate = 0.0001

// nextPowerOfTwo returns the next highest power of two from a given number if
// it is not already a power of two, used to size the merkle tree array.
func nextPowerOfTwo(n int) int {
	if n&(n-1) == 0 {
		return n
	}
	exponent := 1
	for n != 1 {
		n >>= 1
		exponent++
	}
	return 1 << uint(exponent)
}

// hashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the hash of their concatenation, per spec.md §3's
// "double-SHA-256 binary tree with odd-sibling duplication".
func hashMerkleBranches(left, right *chainhash.Hash) *chainhash.Hash {
	var buf [chainhash.HashSize * 2]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])
	newHash := chainhash.HashH(buf[:])
	return &newHash
}

// BuildMerkleTreeStore creates a merkle tree from a slice of transactions,
// stored using a linear array as opposed to a tree structure, and returns a
// slice of the backing array.  When an odd number of nodes is encountered at
// a level, the last node is duplicated, per spec.md §3.
//
// The duplicate flag returned alongside the root reports whether two
// distinct sibling nodes at any level hash identically -- the
// "non-malleated" clause of spec.md §3's Block invariant. Pairing a lone odd
// node with itself is the ordinary construction and does not set the flag;
// identical distinct siblings are the CVE-2012-2459 style malleability
// defect and must be rejected.
func BuildMerkleTreeStore(transactions []*wire.MsgTx) (nodes []*chainhash.Hash, duplicatedAnyNonPadding bool) {
	nextPoT := nextPowerOfTwo(len(transactions))
	arraySize := nextPoT*2 - 1
	merkles := make([]*chainhash.Hash, arraySize)

	for i, tx := range transactions {
		txHash := tx.TxHash()
		merkles[i] = &txHash
	}

	offset := nextPoT
	for i := 0; i < arraySize-1; i += 2 {
		switch {
		case merkles[i] == nil:
			merkles[offset] = nil
		case merkles[i+1] == nil:
			// A lone odd node is paired with itself; this padding is the
			// ordinary construction and is not flagged.
			newHash := hashMerkleBranches(merkles[i], merkles[i])
			merkles[offset] = newHash
		default:
			if *merkles[i] == *merkles[i+1] {
				// Two distinct sibling nodes hash identically.
				duplicatedAnyNonPadding = true
			}
			newHash := hashMerkleBranches(merkles[i], merkles[i+1])
			merkles[offset] = newHash
		}
		offset++
	}

	return merkles, duplicatedAnyNonPadding
}

// CalcMerkleRoot returns the merkle root computed over transactions per the
// algorithm in spec.md §3.  A single-transaction block's root is that
// transaction's own hash.
func CalcMerkleRoot(transactions []*wire.MsgTx) chainhash.Hash {
	if len(transactions) == 0 {
		return chainhash.Hash{}
	}
	merkles, _ := BuildMerkleTreeStore(transactions)
	return *merkles[len(merkles)-1]
}

// HasDuplicateInputs reports whether any two transactions in txs hash to the
// same txid, the "duplicate-tx merkle defence" spec.md §4.E's block
// connection pipeline requires alongside the plain merkle root check: two
// distinct blocks may coincidentally share a merkle root with a duplicated
// transaction inside them (the historical BIP30/CVE-2012-2459 class of
// defect).
//
// A block's transactions are run through an approximate partitioned bloom
// filter first: a miss proves the txid hasn't been seen and the loop moves
// on without touching the exact set at all; a hit only means "maybe seen",
// so it falls through to the exact map-based check before concluding a
// duplicate exists. This mirrors dcrd mempool's own use of
// github.com/decred/dcrd/container/apbf as a cheap negative pre-filter
// ahead of an exact lookup.
func HasDuplicateInputs(txs []*wire.MsgTx) bool {
	if len(txs) == 0 {
		return false
	}
	filter := apbf.NewFilter(uint32(len(txs)), duplicateTxFilterFalsePositiveRate)
	seen := make(map[chainhash.Hash]struct{}, len(txs))
	for _, tx := range txs {
		h := tx.TxHash()
		if filter.Contains(h[:]) {
			if _, ok := seen[h]; ok {
				return true
			}
		}
		filter.Add(h[:])
		seen[h] = struct{}{}
	}
	return false
}
