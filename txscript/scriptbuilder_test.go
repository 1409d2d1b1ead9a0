// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"
)

// TestScriptBuilderAddOp checks that opcodes are appended verbatim.
func TestScriptBuilderAddOp(t *testing.T) {
	script, err := NewScriptBuilder().AddOp(OP_DUP).AddOp(OP_HASH160).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	want := []byte{byte(OP_DUP), byte(OP_HASH160)}
	if !bytes.Equal(script, want) {
		t.Fatalf("got %x, want %x", script, want)
	}
}

// TestScriptBuilderAddData checks that AddData selects the canonical push
// opcode for a variety of data lengths, per spec.md §4.C's minimality rule.
func TestScriptBuilderAddData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []byte
	}{
		{"empty", nil, []byte{byte(OP_0)}},
		{"small int", []byte{5}, []byte{byte(OP_1) + 4}},
		{"one negate", []byte{0x81}, []byte{byte(OP_1NEGATE)}},
		{"direct push", []byte{1, 2, 3}, []byte{3, 1, 2, 3}},
		{"pushdata1", bytes.Repeat([]byte{0xaa}, 0x4c), append([]byte{byte(OP_PUSHDATA1), 0x4c}, bytes.Repeat([]byte{0xaa}, 0x4c)...)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			script, err := NewScriptBuilder().AddData(test.data).Script()
			if err != nil {
				t.Fatalf("Script: %v", err)
			}
			if !bytes.Equal(script, test.want) {
				t.Fatalf("got %x, want %x", script, test.want)
			}
		})
	}
}

// TestScriptBuilderAddDataTooLarge checks that a data push beyond
// maxScriptElementSize is rejected rather than silently truncated.
func TestScriptBuilderAddDataTooLarge(t *testing.T) {
	data := make([]byte, maxScriptElementSize+1)
	_, err := NewScriptBuilder().AddData(data).Script()
	if err == nil {
		t.Fatal("expected an error pushing an over-long data element")
	}
}

// TestScriptBuilderAddInt64 checks the small-int / OP_1NEGATE / ScriptNum
// fallback selection AddInt64 performs.
func TestScriptBuilderAddInt64(t *testing.T) {
	tests := []struct {
		val  int64
		want []byte
	}{
		{0, []byte{byte(OP_0)}},
		{1, []byte{byte(OP_1)}},
		{16, []byte{byte(OP_16)}},
		{-1, []byte{byte(OP_1NEGATE)}},
		{17, []byte{1, 17}},
		{-2, []byte{1, 0x82}},
	}
	for _, test := range tests {
		script, err := NewScriptBuilder().AddInt64(test.val).Script()
		if err != nil {
			t.Fatalf("AddInt64(%d): %v", test.val, err)
		}
		if !bytes.Equal(script, test.want) {
			t.Fatalf("AddInt64(%d) = %x, want %x", test.val, script, test.want)
		}
	}
}
