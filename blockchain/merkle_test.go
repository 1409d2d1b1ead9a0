// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/bchcore/bchd/wire"
)

func txWithLockTime(lockTime uint32) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.LockTime = lockTime
	tx.TxOut = append(tx.TxOut, wire.NewTxOut(1, []byte{0x51}))
	return tx
}

// TestCalcMerkleRootSingleTx checks that a one-transaction block's merkle
// root is simply that transaction's own hash, per spec.md §3.
func TestCalcMerkleRootSingleTx(t *testing.T) {
	tx := txWithLockTime(0)
	root := CalcMerkleRoot([]*wire.MsgTx{tx})
	if root != tx.TxHash() {
		t.Fatalf("root = %v, want %v", root, tx.TxHash())
	}
}

// TestCalcMerkleRootOddCountDuplicatesLast checks that an odd number of
// distinct transactions causes the last one to be duplicated as padding,
// without tripping the non-malleated-duplicate flag.
func TestCalcMerkleRootOddCountDuplicatesLast(t *testing.T) {
	txs := []*wire.MsgTx{txWithLockTime(1), txWithLockTime(2), txWithLockTime(3)}
	_, duplicated := BuildMerkleTreeStore(txs)
	if duplicated {
		t.Fatal("padding a lone odd leaf must not be reported as a malleated duplicate")
	}
}

// TestHasDuplicateInputs checks the direct txid-collision scan used
// alongside the merkle root check.
func TestHasDuplicateInputs(t *testing.T) {
	distinct := []*wire.MsgTx{txWithLockTime(1), txWithLockTime(2)}
	if HasDuplicateInputs(distinct) {
		t.Fatal("distinct transactions must not be reported as duplicates")
	}

	dup := []*wire.MsgTx{txWithLockTime(1), txWithLockTime(1)}
	if !HasDuplicateInputs(dup) {
		t.Fatal("two identical transactions must be reported as duplicates")
	}

	if HasDuplicateInputs(nil) {
		t.Fatal("an empty transaction set must not be reported as a duplicate")
	}

	many := make([]*wire.MsgTx, 0, 256)
	for i := uint32(0); i < 256; i++ {
		many = append(many, txWithLockTime(i))
	}
	if HasDuplicateInputs(many) {
		t.Fatal("256 distinct transactions must not be reported as duplicates")
	}
	many[200] = txWithLockTime(5)
	if !HasDuplicateInputs(many) {
		t.Fatal("a duplicate introduced late in a large set must still be detected")
	}
}
