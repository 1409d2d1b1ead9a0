// Copyright (c) 2017-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bchutil

import (
	"errors"
	"strings"

	"github.com/decred/dcrd/bech32"
)

// cashaddr errors, per spec.md §4.B / §8 scenario 3.
var (
	ErrMixedCase          = errors.New("invalid cashaddr casing")
	ErrNonZeroPadding      = errors.New("non zero padding")
	ErrNonZeroTypeBits     = errors.New("non zero version type bits")
	ErrInvalidChecksum     = errors.New("invalid cashaddr checksum")
	ErrInvalidSizeBits     = errors.New("unknown cashaddr size class")
	ErrMissingPrefix       = errors.New("missing cashaddr prefix")
)

// cashAddrCharset is the same base32 alphabet bech32 uses; cashaddr and
// BIP-173 bech32 share the 5-bit alphabet but diverge in their checksum
// polynomial and payload framing, so only the alphabet (via
// bech32.ConvertBits for the 8<->5 bit regrouping) is reused here.
const cashAddrCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var cashAddrCharsetRev = func() [128]int8 {
	var rev [128]int8
	for i := range rev {
		rev[i] = -1
	}
	for i, c := range cashAddrCharset {
		rev[c] = int8(i)
	}
	return rev
}()

// cashAddrPolymod implements the cashaddr-specific BCH checksum polynomial
// (spec.md §4.B: "standard cashaddr polynomial"), distinct from bech32's
// BIP-173 polynomial.
func cashAddrPolymod(values []byte) uint64 {
	var c uint64 = 1
	for _, d := range values {
		c0 := byte(c >> 35)
		c = ((c & 0x07ffffffff) << 5) ^ uint64(d)
		if c0&0x01 != 0 {
			c ^= 0x98f2bc8e61
		}
		if c0&0x02 != 0 {
			c ^= 0x79b76d99e2
		}
		if c0&0x04 != 0 {
			c ^= 0xf33e5fb3c4
		}
		if c0&0x08 != 0 {
			c ^= 0xae2eabe2a8
		}
		if c0&0x10 != 0 {
			c ^= 0x1e4f43e470
		}
	}
	return c ^ 1
}

func cashAddrExpandPrefix(prefix string) []byte {
	ret := make([]byte, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		ret[i] = prefix[i] & 0x1f
	}
	ret[len(prefix)] = 0
	return ret
}

func cashAddrChecksum(prefix string, payload []byte) uint64 {
	enc := append(cashAddrExpandPrefix(prefix), payload...)
	enc = append(enc, 0, 0, 0, 0, 0, 0, 0, 0)
	return cashAddrPolymod(enc)
}

// versionByte encodes the address type and size class into the payload's
// leading byte, per spec.md §4.B: top bit zero, bits 3-7 type (0 = P2PKH, 1
// = P2SH), bits 0-2 size class (160-bit hash -> 0).
func versionByte(t AddressType) byte {
	var typeBits byte
	if t == ScriptHash {
		typeBits = 1
	}
	return typeBits << 3
}

func encodeCashAddr(prefix string, t AddressType, hash []byte) (string, error) {
	payload := append([]byte{versionByte(t)}, hash...)

	fiveBit, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}

	checksumInput := make([]byte, len(fiveBit))
	copy(checksumInput, fiveBit)
	cksum := cashAddrChecksum(prefix, checksumInput)

	combined := make([]byte, len(fiveBit)+8)
	copy(combined, fiveBit)
	for i := 0; i < 8; i++ {
		combined[len(fiveBit)+i] = byte((cksum >> uint(5*(7-i))) & 0x1f)
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte(':')
	for _, v := range combined {
		sb.WriteByte(cashAddrCharset[v])
	}
	return sb.String(), nil
}

func decodeCashAddr(addr, defaultPrefix string) (prefix string, t AddressType, hash []byte, err error) {
	if hasUpperAndLower(addr) {
		return "", 0, nil, ErrMixedCase
	}
	lower := strings.ToLower(addr)

	colon := strings.IndexByte(lower, ':')
	if colon < 0 {
		prefix = strings.ToLower(defaultPrefix)
	} else {
		prefix = lower[:colon]
		lower = lower[colon+1:]
	}
	if prefix == "" {
		return "", 0, nil, ErrMissingPrefix
	}

	data := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 128 || cashAddrCharsetRev[c] == -1 {
			return "", 0, nil, errors.New("invalid cashaddr character")
		}
		data[i] = byte(cashAddrCharsetRev[c])
	}
	if len(data) < 8 {
		return "", 0, nil, errors.New("cashaddr payload too short")
	}

	if cashAddrChecksum(prefix, data) != 0 {
		return "", 0, nil, ErrInvalidChecksum
	}
	payload5 := data[:len(data)-8]

	eight, err := bech32.ConvertBits(payload5, 5, 8, false)
	if err != nil {
		// bech32.ConvertBits rejects non-zero padding bits for us, matching
		// spec.md §4.B's padding rule; surface the stable error name tests
		// in spec.md §8 scenario 3 expect.
		return "", 0, nil, ErrNonZeroPadding
	}
	if len(eight) == 0 {
		return "", 0, nil, errors.New("empty cashaddr payload")
	}

	version := eight[0]
	if version&0x80 != 0 {
		return "", 0, nil, ErrNonZeroTypeBits
	}
	sizeBits := version & 0x07
	if sizeBits != 0 {
		return "", 0, nil, ErrInvalidSizeBits
	}
	typeBits := (version >> 3) & 0x1f
	switch typeBits {
	case 0:
		t = PubKeyHash
	case 1:
		t = ScriptHash
	default:
		return "", 0, nil, ErrUnknownAddressType
	}

	hashBytes := eight[1:]
	if len(hashBytes) != 20 {
		return "", 0, nil, errors.New("unexpected cashaddr hash length")
	}
	return prefix, t, hashBytes, nil
}

func hasUpperAndLower(s string) bool {
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
