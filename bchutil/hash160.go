// Copyright (c) 2013, 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bchutil

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //lint:ignore SA1019 ripemd160 is required by the consensus hash160 function.
)

// Hash160 calculates the hash RIPEMD160(SHA256(b)), the 20-byte digest used
// to build P2PKH/P2SH addresses (spec.md §3, "Address").
func Hash160(buf []byte) []byte {
	sha := sha256.Sum256(buf)
	h := ripemd160.New()
	// Writing to a ripemd160 hasher cannot fail.
	_, _ = h.Write(sha[:])
	return h.Sum(nil)
}
