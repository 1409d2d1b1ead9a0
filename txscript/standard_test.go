// Copyright (c) 2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/bchcore/bchd/bchutil"
)

// TestPayToAddrScript checks that PayToAddrScript builds the standard
// P2PKH/P2SH templates spec.md §3 describes, and that GetScriptClass
// recognizes its own output.
func TestPayToAddrScript(t *testing.T) {
	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = byte(i)
	}

	tests := []struct {
		name      string
		addr      func() (*bchutil.Address, error)
		wantClass ScriptClass
		wantLen   int
	}{
		{"pubkeyhash", func() (*bchutil.Address, error) { return bchutil.NewAddressPubKeyHash(hash) }, PubKeyHashTy, 25},
		{"scripthash", func() (*bchutil.Address, error) { return bchutil.NewAddressScriptHash(hash) }, ScriptHashTy, 23},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			addr, err := test.addr()
			if err != nil {
				t.Fatal(err)
			}
			script, err := PayToAddrScript(addr)
			if err != nil {
				t.Fatalf("PayToAddrScript: %v", err)
			}
			if len(script) != test.wantLen {
				t.Fatalf("script length = %d, want %d", len(script), test.wantLen)
			}
			if class := GetScriptClass(script); class != test.wantClass {
				t.Fatalf("GetScriptClass = %v, want %v", class, test.wantClass)
			}
		})
	}
}

// TestGetSigOpCount checks legacy signature operation accounting for a
// simple P2PKH script, and that a bare (non-P2SH) CHECKMULTISIG is charged
// the conservative maximum rather than its actual key count, per spec.md
// §4.C's legacy (imprecise) counting rule.
func TestGetSigOpCount(t *testing.T) {
	p2pkh, err := PayToAddrScript(mustAddr(t))
	if err != nil {
		t.Fatal(err)
	}
	if n := GetSigOpCount(p2pkh); n != 1 {
		t.Fatalf("GetSigOpCount(p2pkh) = %d, want 1", n)
	}

	multisig, err := NewScriptBuilder().
		AddOp(OP_1).
		AddData(make([]byte, 33)).
		AddData(make([]byte, 33)).
		AddOp(Opcode(int(OP_1) + 1)).
		AddOp(OP_CHECKMULTISIG).
		Script()
	if err != nil {
		t.Fatal(err)
	}
	if n := GetSigOpCount(multisig); n != maxPubKeysInScriptSigOps {
		t.Fatalf("GetSigOpCount(multisig) = %d, want %d (legacy imprecise count)", n, maxPubKeysInScriptSigOps)
	}

	if n := GetPreciseSigOpCount(nil, multisig, false); n != 2 {
		t.Fatalf("GetPreciseSigOpCount(multisig) = %d, want 2 (actual key count)", n)
	}
}

func mustAddr(t *testing.T) *bchutil.Address {
	t.Helper()
	addr, err := bchutil.NewAddressPubKeyHash(make([]byte, 20))
	if err != nil {
		t.Fatal(err)
	}
	return addr
}
