// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bchutil

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/bchcore/bchd/chaincfg"
)

var testParams = chaincfg.MainNetParams.AddressParams

func testHash() []byte {
	h := make([]byte, 20)
	for i := range h {
		h[i] = byte(i + 1)
	}
	return h
}

func TestAddressRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newAddr func([]byte) (*Address, error)
	}{
		{"pubkeyhash", NewAddressPubKeyHash},
		{"scripthash", NewAddressScriptHash},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			addr, err := test.newAddr(testHash())
			if err != nil {
				t.Fatalf("%s: %v", test.name, err)
			}

			b58 := addr.EncodeBase58(&testParams)
			decoded, err := DecodeAddress(b58, &testParams)
			if err != nil {
				t.Fatalf("%s: DecodeAddress(%q): %v", test.name, b58, err)
			}
			if decoded.Type != addr.Type || !bytes.Equal(decoded.Hash[:], addr.Hash[:]) {
				t.Fatalf("%s: base58 round trip mismatch: got %+v, want %+v", test.name, decoded, addr)
			}

			cashAddr, err := addr.EncodeCashAddr(&testParams)
			if err != nil {
				t.Fatalf("%s: EncodeCashAddr: %v", test.name, err)
			}
			decoded, err = DecodeAddress(cashAddr, &testParams)
			if err != nil {
				t.Fatalf("%s: DecodeAddress(%q): %v", test.name, cashAddr, err)
			}
			if decoded.Type != addr.Type || !bytes.Equal(decoded.Hash[:], addr.Hash[:]) {
				t.Fatalf("%s: cashaddr round trip mismatch: got %+v, want %+v", test.name, decoded, addr)
			}
		})
	}
}

// TestAddressGoldenVectors pins the literal mainnet encodings from
// spec.md §8 scenarios 1 and 2, so an encoding bug that is internally
// consistent (round-trips against itself) but disagrees with every other
// implementation would still be caught.
func TestAddressGoldenVectors(t *testing.T) {
	tests := []struct {
		name     string
		newAddr  func([]byte) (*Address, error)
		hashHex  string
		base58   string
		cashAddr string
	}{
		{
			name:     "pubkeyhash",
			newAddr:  NewAddressPubKeyHash,
			hashHex:  "e34cce70c86373273efcc54ce7d2a491bb4a0e84",
			base58:   "1MirQ9bwyQcGVJPwKUgapu5ouK2E2Ey4gX",
			cashAddr: "bitcoincash:qr35ennsep3hxfe7lnz5ee7j5jgmkjswssk2puzvgv",
		},
		{
			name:     "scripthash",
			newAddr:  NewAddressScriptHash,
			hashHex:  "f815b036d9bbbce5e9f2a00abd1bf3dc91e95510",
			base58:   "3QJmV3qfvL9SuYo34YihAf3sRCW3qSinyC",
			cashAddr: "bitcoincash:pruptvpkmxamee0f72sq40gm70wfr624zq0yyxtycm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hex.DecodeString(tt.hashHex)
			if err != nil {
				t.Fatal(err)
			}
			addr, err := tt.newAddr(hash)
			if err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}

			if got := addr.EncodeBase58(&testParams); got != tt.base58 {
				t.Fatalf("EncodeBase58 = %q, want %q", got, tt.base58)
			}
			cashAddr, err := addr.EncodeCashAddr(&testParams)
			if err != nil {
				t.Fatalf("EncodeCashAddr: %v", err)
			}
			if cashAddr != tt.cashAddr {
				t.Fatalf("EncodeCashAddr = %q, want %q", cashAddr, tt.cashAddr)
			}
		})
	}
}

func TestDecodeAddressPrefersBase58ForMixedCase(t *testing.T) {
	addr, err := NewAddressPubKeyHash(testHash())
	if err != nil {
		t.Fatal(err)
	}
	b58 := addr.EncodeBase58(&testParams)

	if !isMixedCase(b58) {
		t.Skipf("generated base58 %q happened not to be mixed case", b58)
	}

	decoded, err := DecodeAddress(b58, &testParams)
	if err != nil {
		t.Fatalf("DecodeAddress(%q): %v", b58, err)
	}
	if decoded.Type != PubKeyHash || !bytes.Equal(decoded.Hash[:], addr.Hash[:]) {
		t.Fatalf("mismatch: got %+v", decoded)
	}
}

func TestDecodeAddressUnknownVersion(t *testing.T) {
	bogus := CheckEncode(testHash(), 0xff)
	if _, err := DecodeAddress(bogus, &testParams); err == nil {
		t.Fatal("expected an error decoding an address with an unrecognized version byte")
	}
}

func TestCashAddrWrongPrefixRejected(t *testing.T) {
	addr, err := NewAddressPubKeyHash(testHash())
	if err != nil {
		t.Fatal(err)
	}
	testnetParams := chaincfg.TestNetParams.AddressParams
	encoded, err := addr.EncodeCashAddr(&testParams)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeAddress(encoded, &testnetParams); err == nil {
		t.Fatal("expected an error decoding a mainnet cashaddr against testnet params")
	}
}
