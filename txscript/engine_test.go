// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
)

func engineTestTx(sigScript []byte) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.TxIn = append(tx.TxIn, &wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0},
		SignatureScript:  sigScript,
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.TxOut = append(tx.TxOut, wire.NewTxOut(1000, nil))
	return tx
}

// TestEngineArithmetic checks that 1 + 2 == 3 evaluates true through the
// interpreter, exercising opBinaryNum's OP_ADD path.
func TestEngineArithmetic(t *testing.T) {
	sigScript, err := NewScriptBuilder().AddInt64(1).AddInt64(2).Script()
	if err != nil {
		t.Fatal(err)
	}
	pkScript, err := NewScriptBuilder().AddOp(OP_ADD).AddInt64(3).AddOp(OP_EQUAL).Script()
	if err != nil {
		t.Fatal(err)
	}

	tx := engineTestTx(sigScript)
	vm, err := NewEngine(pkScript, tx, 0, NewScriptFlags(), 1000, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

// TestEngineBitwiseOps checks OP_AND/OP_OR/OP_XOR over equal-length operands,
// the Bitcoin-Cash-only bitwise opcodes spec.md §4.C adds to the classic
// opcode set.
func TestEngineBitwiseOps(t *testing.T) {
	tests := []struct {
		name string
		op   Opcode
		a, b byte
		want byte
	}{
		{"and", OP_AND, 0xf0, 0x3c, 0x30},
		{"or", OP_OR, 0xf0, 0x0f, 0xff},
		{"xor", OP_XOR, 0xff, 0x0f, 0xf0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sigScript, err := NewScriptBuilder().
				AddData([]byte{test.a}).
				AddData([]byte{test.b}).
				Script()
			if err != nil {
				t.Fatal(err)
			}
			pkScript, err := NewScriptBuilder().
				AddOp(test.op).
				AddData([]byte{test.want}).
				AddOp(OP_EQUAL).
				Script()
			if err != nil {
				t.Fatal(err)
			}

			tx := engineTestTx(sigScript)
			vm, err := NewEngine(pkScript, tx, 0, NewScriptFlags(), 1000, nil, nil)
			if err != nil {
				t.Fatalf("NewEngine: %v", err)
			}
			if err := vm.Execute(); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	}
}

// TestEngineCatSplit checks OP_CAT followed by OP_SPLIT recovers the
// original two pieces.
func TestEngineCatSplit(t *testing.T) {
	sigScript, err := NewScriptBuilder().
		AddData([]byte("abc")).
		AddData([]byte("def")).
		Script()
	if err != nil {
		t.Fatal(err)
	}
	pkScript, err := NewScriptBuilder().
		AddOp(OP_CAT).
		AddInt64(3).
		AddOp(OP_SPLIT).
		AddData([]byte("def")).
		AddOp(OP_EQUALVERIFY).
		AddData([]byte("abc")).
		AddOp(OP_EQUAL).
		Script()
	if err != nil {
		t.Fatal(err)
	}

	tx := engineTestTx(sigScript)
	vm, err := NewEngine(pkScript, tx, 0, NewScriptFlags(), 1000, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

// TestEngineDivModByZero checks that OP_DIV/OP_MOD by zero fail closed
// rather than panicking.
func TestEngineDivModByZero(t *testing.T) {
	for _, op := range []Opcode{OP_DIV, OP_MOD} {
		sigScript, err := NewScriptBuilder().AddInt64(4).AddInt64(0).Script()
		if err != nil {
			t.Fatal(err)
		}
		pkScript, err := NewScriptBuilder().AddOp(op).Script()
		if err != nil {
			t.Fatal(err)
		}

		tx := engineTestTx(sigScript)
		vm, err := NewEngine(pkScript, tx, 0, NewScriptFlags(), 1000, nil, nil)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		if err := vm.Execute(); err == nil {
			t.Fatalf("expected %v by zero to fail", op)
		}
	}
}
