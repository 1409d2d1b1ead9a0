// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/bchcore/bchd/chainhash"
)

func sampleTx() *MsgTx {
	tx := NewMsgTx(1)
	prevHash := chainhash.Hash{1, 2, 3, 4}
	tx.TxIn = append(tx.TxIn, NewTxIn(NewOutPoint(&prevHash, 0), []byte{0x51}))
	tx.TxOut = append(tx.TxOut, NewTxOut(5000000000, []byte{0x76, 0xa9, 0x14}))
	tx.LockTime = 0
	return tx
}

// TestMsgTxSerializeRoundTrip checks that a transaction deserialized from
// its own serialization is byte-for-byte and hash-for-hash identical,
// exercising the codec spec.md §4.A describes as stable.
func TestMsgTxSerializeRoundTrip(t *testing.T) {
	tx := sampleTx()

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != tx.SerializeSize() {
		t.Fatalf("SerializeSize() = %d, want %d", tx.SerializeSize(), buf.Len())
	}

	got, err := NewMsgTxFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("NewMsgTxFromBytes: %v", err)
	}
	if got.TxHash() != tx.TxHash() {
		t.Fatalf("round-tripped tx hash = %v, want %v", got.TxHash(), tx.TxHash())
	}
}

// TestMsgTxFinalizeCachesHash checks that Finalize enables hash caching:
// mutating the TxOut slice after Finalize must not change the value TxHash
// returns, since the cached hash is authoritative once immutable.
func TestMsgTxFinalizeCachesHash(t *testing.T) {
	tx := sampleTx()
	tx.Finalize()
	hash := tx.TxHash()

	tx.TxOut[0].Value = 1

	if got := tx.TxHash(); got != hash {
		t.Fatalf("cached TxHash changed after finalize: got %v, want %v", got, hash)
	}
}

// TestMsgTxIsCoinBase checks the null-previous-outpoint coinbase predicate.
func TestMsgTxIsCoinBase(t *testing.T) {
	tx := NewMsgTx(1)
	tx.TxIn = append(tx.TxIn, &TxIn{
		PreviousOutPoint: OutPoint{Index: MaxPrevOutIndex},
	})
	if !tx.IsCoinBase() {
		t.Fatal("expected a single null-prevout input to be a coinbase")
	}

	notCoinbase := sampleTx()
	if notCoinbase.IsCoinBase() {
		t.Fatal("did not expect a transaction spending a real outpoint to be a coinbase")
	}
}

// TestMsgTxIsFinal covers the locktime/sequence final-transaction predicate.
func TestMsgTxIsFinal(t *testing.T) {
	tx := sampleTx()
	if !tx.IsFinal(100, 0) {
		t.Fatal("a transaction with LockTime 0 must always be final")
	}

	tx.LockTime = 200
	tx.TxIn[0].Sequence = MaxTxInSequenceNum - 1
	if tx.IsFinal(100, 0) {
		t.Fatal("a transaction whose height-based locktime has not yet arrived must not be final")
	}
	if tx.IsFinal(201, 0) {
		t.Fatal("a transaction with a non-max sequence number must not be final even once its locktime has passed")
	}

	tx.TxIn[0].Sequence = MaxTxInSequenceNum
	if !tx.IsFinal(201, 0) {
		t.Fatal("a transaction whose height-based locktime has passed, with max sequence inputs, must be final")
	}
}
