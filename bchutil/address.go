// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bchutil

import (
	"errors"
	"strings"

	"github.com/bchcore/bchd/chaincfg"
)

// AddressType distinguishes the two standard hash-based address kinds
// defined in spec.md §3.
type AddressType int

// Address kinds.
const (
	PubKeyHash AddressType = iota
	ScriptHash
)

// ErrUnknownAddressType is returned when decoding fails to recognize any
// supported address encoding or version byte.
var ErrUnknownAddressType = errors.New("unknown address type")

// Address is a (type, 20-byte hash) pair that can be rendered as either
// Base58Check or cashaddr, per spec.md §3.
type Address struct {
	Type AddressType
	Hash [20]byte
}

// NewAddressPubKeyHash returns a P2PKH address for the given 20-byte hash.
func NewAddressPubKeyHash(hash160 []byte) (*Address, error) {
	return newAddress(PubKeyHash, hash160)
}

// NewAddressScriptHash returns a P2SH address for the given 20-byte hash.
func NewAddressScriptHash(hash160 []byte) (*Address, error) {
	return newAddress(ScriptHash, hash160)
}

func newAddress(t AddressType, hash160 []byte) (*Address, error) {
	if len(hash160) != 20 {
		return nil, errors.New("hash must be exactly 20 bytes")
	}
	a := &Address{Type: t}
	copy(a.Hash[:], hash160)
	return a, nil
}

// EncodeBase58 renders the address using Base58Check with the network's
// version byte for the address's type.
func (a *Address) EncodeBase58(params *chaincfg.AddressParams) string {
	version := params.PubKeyHashAddrID
	if a.Type == ScriptHash {
		version = params.ScriptHashAddrID
	}
	return CheckEncode(a.Hash[:], version)
}

// EncodeCashAddr renders the address using the cashaddr encoding with the
// network's human-readable prefix.
func (a *Address) EncodeCashAddr(params *chaincfg.AddressParams) (string, error) {
	return encodeCashAddr(params.CashAddrPrefix, a.Type, a.Hash[:])
}

// DecodeAddress parses addr as either Base58Check or cashaddr, per spec.md
// §4.B: "When parsing an untyped address string, treat it as Base58 iff
// mixed case; otherwise try cashaddr, fall back to Base58."
func DecodeAddress(addr string, params *chaincfg.AddressParams) (*Address, error) {
	if isMixedCase(addr) {
		return decodeBase58Address(addr, params)
	}

	if a, err := decodeCashAddrAddress(addr, params); err == nil {
		return a, nil
	}
	return decodeBase58Address(addr, params)
}

func decodeBase58Address(addr string, params *chaincfg.AddressParams) (*Address, error) {
	hash, version, err := CheckDecode(addr)
	if err != nil {
		return nil, err
	}

	switch version {
	case params.PubKeyHashAddrID:
		return newAddress(PubKeyHash, hash)
	case params.ScriptHashAddrID:
		return newAddress(ScriptHash, hash)
	default:
		return nil, ErrUnknownAddressType
	}
}

func decodeCashAddrAddress(addr string, params *chaincfg.AddressParams) (*Address, error) {
	prefix, t, hash, err := decodeCashAddr(addr, params.CashAddrPrefix)
	if err != nil {
		return nil, err
	}
	if prefix != params.CashAddrPrefix {
		return nil, ErrUnknownAddressType
	}
	return newAddress(t, hash)
}

// isMixedCase reports whether s (after stripping any "prefix:" portion)
// contains both upper- and lower-case letters, which spec.md §4.B treats as
// disqualifying it from being a cashaddr and as the signal to try Base58
// first.
func isMixedCase(s string) bool {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	var hasUpper, hasLower bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		}
	}
	return hasUpper && hasLower
}
