// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"math/big"
	"testing"

	"github.com/bchcore/bchd/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// encodeDERInt minimally DER-encodes n as an ASN.1 INTEGER body, prefixing a
// zero byte when the high bit of the leading byte would otherwise flip the
// value negative.
func encodeDERInt(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) == 0 {
		b = []byte{0x00}
	}
	if b[0]&0x80 != 0 {
		b = append([]byte{0x00}, b...)
	}
	return append([]byte{0x02, byte(len(b))}, b...)
}

// encodeDERSignature builds a strict DER-encoded ECDSA signature from r, s,
// the reverse of isStrictDERSignature's parsing.
func encodeDERSignature(r, s *big.Int) []byte {
	body := append(encodeDERInt(r), encodeDERInt(s)...)
	return append([]byte{0x30, byte(len(body))}, body...)
}

// toHighS re-encodes sigBytes (a low-S DER signature, as ecdsa.Sign always
// produces) with its S component flipped to the high-S root of the same
// signature, per spec.md §8 scenario 6.
func toHighS(sigBytes []byte) []byte {
	s, err := parseDERSignatureS(sigBytes)
	if err != nil {
		panic(err)
	}
	rLen := int(sigBytes[3])
	r := new(big.Int).SetBytes(sigBytes[4 : 4+rLen])
	highS := new(big.Int).Sub(secp256k1Order, s)
	return encodeDERSignature(r, highS)
}

// toHybridPubKey re-encodes a compressed or uncompressed SEC1 public key in
// the legacy "hybrid" form (0x06/0x07 prefix carrying the same X, Y as an
// uncompressed key), which STRICTENC must reject per spec.md §8 scenario 6.
func toHybridPubKey(pub *secp256k1.PublicKey) []byte {
	uncompressed := pub.SerializeUncompressed()
	hybrid := make([]byte, len(uncompressed))
	copy(hybrid, uncompressed)
	if uncompressed[64]&0x01 == 0 {
		hybrid[0] = 0x06
	} else {
		hybrid[0] = 0x07
	}
	return hybrid
}

// TestEngineCheckDataSig checks OP_CHECKDATASIG against a single
// sha256(message) hash, per spec.md §4.C, and that the opcode is rejected
// outright when the CheckDataSig flag is not set.
func TestEngineCheckDataSig(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	pubKeyBytes := priv.PubKey().SerializeCompressed()

	msg := []byte("arbitrary oracle data")
	msgHash := chainhash.Sha256(msg)
	sig := ecdsa.Sign(priv, msgHash[:])
	sigBytes := sig.Serialize()

	sigScript, err := NewScriptBuilder().
		AddData(sigBytes).
		AddData(msg).
		Script()
	if err != nil {
		t.Fatal(err)
	}
	pkScript, err := NewScriptBuilder().
		AddData(pubKeyBytes).
		AddOp(OP_CHECKDATASIG).
		Script()
	if err != nil {
		t.Fatal(err)
	}

	tx := engineTestTx(sigScript)

	t.Run("enabled", func(t *testing.T) {
		vm, err := NewEngine(pkScript, tx, 0, NewScriptFlags().WithCheckDataSig(), 1000, nil, nil)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		if err := vm.Execute(); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		vm, err := NewEngine(pkScript, tx, 0, NewScriptFlags(), 1000, nil, nil)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		if err := vm.Execute(); err == nil {
			t.Fatal("expected CHECKDATASIG to fail when the flag is not set")
		}
	})

	t.Run("hybrid pubkey rejected under STRICTENC", func(t *testing.T) {
		hybridPkScript, err := NewScriptBuilder().
			AddData(toHybridPubKey(priv.PubKey())).
			AddOp(OP_CHECKDATASIG).
			Script()
		if err != nil {
			t.Fatal(err)
		}
		flags := NewScriptFlags().WithCheckDataSig().WithStrictEncoding()
		vm, err := NewEngine(hybridPkScript, tx, 0, flags, 1000, nil, nil)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		serr, ok := vm.Execute().(Error)
		if !ok || serr.ErrorCode != ErrPubKeyType {
			t.Fatalf("Execute err = %v, want ErrPubKeyType", serr)
		}
	})

	t.Run("high-S signature rejected under LOW_S", func(t *testing.T) {
		highSSigScript, err := NewScriptBuilder().
			AddData(toHighS(sigBytes)).
			AddData(msg).
			Script()
		if err != nil {
			t.Fatal(err)
		}
		highSTx := engineTestTx(highSSigScript)
		flags := NewScriptFlags().WithCheckDataSig().WithLowS()
		vm, err := NewEngine(pkScript, highSTx, 0, flags, 1000, nil, nil)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		serr, ok := vm.Execute().(Error)
		if !ok || serr.ErrorCode != ErrSigHighS {
			t.Fatalf("Execute err = %v, want ErrSigHighS", serr)
		}
	})

	t.Run("CHECKDATASIGVERIFY leaves an empty stack on success", func(t *testing.T) {
		verifyPkScript, err := NewScriptBuilder().
			AddData(pubKeyBytes).
			AddOp(OP_CHECKDATASIGVERIFY).
			Script()
		if err != nil {
			t.Fatal(err)
		}
		vm, err := NewEngine(verifyPkScript, tx, 0, NewScriptFlags().WithCheckDataSig(), 1000, nil, nil)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		if err := vm.Execute(); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if n := vm.dstack.Depth(); n != 0 {
			t.Fatalf("stack depth after CHECKDATASIGVERIFY = %d, want 0", n)
		}
	})
}
