// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"testing"

	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
)

// TestHashByHeightKeyOrdersNumerically checks that the big-endian encoding
// hashByHeightKey uses makes leveldb's natural lexicographic key ordering
// match ascending height order, so a range scan over prefixHashByHeight
// walks the chain in height order without any extra sort step.
func TestHashByHeightKeyOrdersNumerically(t *testing.T) {
	heights := []int64{0, 1, 2, 255, 256, 65535, 65536, 1 << 40}
	for i := 1; i < len(heights); i++ {
		prev := hashByHeightKey(heights[i-1])
		next := hashByHeightKey(heights[i])
		if bytes.Compare(prev, next) >= 0 {
			t.Fatalf("hashByHeightKey(%d) = %x must sort before hashByHeightKey(%d) = %x",
				heights[i-1], prev, heights[i], next)
		}
	}
}

// TestKeyPrefixesAreDistinct checks that every key-building helper tags its
// output with a distinct single-byte prefix, so namespaces never collide
// inside the single flat leveldb keyspace.
func TestKeyPrefixesAreDistinct(t *testing.T) {
	var h chainhash.Hash
	h[0] = 0xAB

	keys := map[string][]byte{
		"tip":          tipKey(),
		"version":      versionKey(),
		"heightByHash": heightByHashKey(&h),
		"hashByHeight": hashByHeightKey(7),
		"next":         nextKey(&h),
		"branchTip":    branchTipKey(&h),
		"block":        blockKey(&h),
		"undo":         undoKey(&h),
		"utxo":         utxoKey(wire.OutPoint{Hash: h, Index: 0}),
	}

	seen := make(map[byte]string)
	for name, key := range keys {
		if len(key) == 0 {
			t.Fatalf("%s key is empty", name)
		}
		if owner, ok := seen[key[0]]; ok {
			t.Fatalf("%s and %s share prefix byte 0x%02x", name, owner, key[0])
		}
		seen[key[0]] = name
	}
}

// TestUtxoKeyDistinguishesIndex checks that two outpoints differing only in
// output index produce distinct keys, since a single transaction's outputs
// are independently spendable UTXOs.
func TestUtxoKeyDistinguishesIndex(t *testing.T) {
	var h chainhash.Hash
	key0 := utxoKey(wire.OutPoint{Hash: h, Index: 0})
	key1 := utxoKey(wire.OutPoint{Hash: h, Index: 1})
	if bytes.Equal(key0, key1) {
		t.Fatal("utxoKey must distinguish output index")
	}
}
