// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bchutil

import (
	"crypto/sha256"
	"errors"

	"github.com/decred/base58"
)

// maxBase58CheckLen is the longest input string CheckDecode will accept,
// per spec.md §4.B ("reject inputs longer than 55 characters").
const maxBase58CheckLen = 55

// base58CheckLen is the decoded byte length of a well-formed Base58Check
// payload: one version byte, a 20-byte hash, and a 4-byte checksum.
const base58CheckLen = 1 + 20 + 4

var (
	// ErrChecksum indicates that the checksum of a check-encoded string does
	// not verify against the checksum.
	ErrChecksum = errors.New("checksum error")

	// ErrInvalidFormat indicates that the check-encoded string has an
	// invalid format.
	ErrInvalidFormat = errors.New("invalid format: version and/or checksum bytes missing")
)

// checksum returns the first four bytes of double-SHA-256(input), the
// Base58Check checksum construction from spec.md §4.B.
func checksum(input []byte) (cksum [4]byte) {
	h := sha256.Sum256(input)
	h2 := sha256.Sum256(h[:])
	copy(cksum[:], h2[:4])
	return
}

// CheckEncode prepends a version byte and appends a four byte checksum to
// the 20-byte hash, encoding the result as a base58 string.
func CheckEncode(hash160 []byte, version byte) string {
	b := make([]byte, 0, base58CheckLen)
	b = append(b, version)
	b = append(b, hash160...)
	cksum := checksum(b)
	b = append(b, cksum[:]...)
	return base58.Encode(b)
}

// CheckDecode decodes a Base58Check-encoded string, verifying the embedded
// checksum and returning the 20-byte hash and version byte, per spec.md
// §4.B: reject strings longer than 55 characters or whose decoded length is
// not exactly 25 bytes, and reject a checksum mismatch.
func CheckDecode(input string) (hash160 []byte, version byte, err error) {
	if len(input) > maxBase58CheckLen {
		return nil, 0, ErrInvalidFormat
	}

	decoded := base58.Decode(input)
	if len(decoded) != base58CheckLen {
		return nil, 0, ErrInvalidFormat
	}

	version = decoded[0]
	var cksum [4]byte
	copy(cksum[:], decoded[len(decoded)-4:])
	if checksum(decoded[:len(decoded)-4]) != cksum {
		return nil, 0, ErrChecksum
	}
	payload := decoded[1 : len(decoded)-4]
	return payload, version, nil
}
