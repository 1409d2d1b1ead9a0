// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package standalone houses the consensus helpers that have no dependency
// on chain state: the compact-target ("bits") codec and proof-of-work
// verification, mirroring the teacher's own blockchain/standalone package
// (referenced from blockchain/difficulty.go as standalone.CompactToBig /
// standalone.BigToCompact).
package standalone

import (
	"fmt"
	"math/big"

	"github.com/bchcore/bchd/chainhash"
)

var bigOne = big.NewInt(1)

// oneLsh256 is 1 shifted left 256 bits, used to compute the inverse of a
// target to produce a work value.
var oneLsh256 = new(big.Int).Lsh(bigOne, 256)

// CompactToBig converts a compact representation of a 256-bit unsigned
// integer, as used for the block "bits" difficulty field, into its full
// big.Int representation.
//
// The compact format is a representation of a whole number N using an
// unsigned 32-bit number similar to a floating point format.  The most
// significant 8 bits are the unsigned exponent of base 256.  This exponent
// can be in the range [0, 255], but the current consensus rules restrict the
// exponent to [3, 32].  The lower 23 bits are the mantissa.  Bit 24
// (0x00800000) represents the sign bit.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}

	return bn
}

// BigToCompact converts a whole number N to a compact representation using
// an unsigned 32-bit number.  The compact representation only provides 23
// bits of precision, so values larger than (2^23 - 1) only encode the
// most significant digits of the number.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	// Since the base for the exponent is 256, the exponent can be treated as
	// the number of bytes.  So, shift the number right or left accordingly.
	// This is equivalent to:
	// mantissa = mantissa / 256^(exponent-3)
	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	// When the mantissa already has the sign bit set, the number is too
	// large to fit into the available 23-bits, so divide the number by 256
	// and increment the exponent accordingly.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// HashToBig converts the passed hash into a big.Int that can be used to
// perform math comparisons, treating the bytes of the hash as a 256-bit
// little-endian unsigned integer per spec.md §4.G.
func HashToBig(hash *chainhash.Hash) *big.Int {
	var buf chainhash.Hash
	copy(buf[:], hash[:])
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return new(big.Int).SetBytes(buf[:])
}

// CalcWork calculates a work value from difficulty bits.  Bitcoin increases
// the difficulty of the proof-of-work target by decreasing the value which
// the hash must be less than.  This difficulty target is stored in each
// block header using a compact representation as described in the
// documentation for CompactToBig.  The main chain is selected by choosing
// the chain that has the most proof-of-work (that is, probabilistically the
// most difficult chain to generate) rather than the longest chain.  This
// difficulty measurement is given by this function, which is calculated
// using the target as:
//
//	work = 2^256 / (target + 1)
func CalcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}

	denominator := new(big.Int).Add(target, bigOne)
	return new(big.Int).Div(oneLsh256, denominator)
}

// CheckProofOfWork ensures the provided block hash is less than the provided
// target difficulty, as required by spec.md §4.G: interpret the 32-byte hash
// as a little-endian u256 and accept iff hash <= target and the target is in
// (0, 2^256).
func CheckProofOfWork(hash *chainhash.Hash, bits uint32, powLimit *big.Int) error {
	target := CompactToBig(bits)

	if target.Sign() <= 0 {
		return fmt.Errorf("block target difficulty of %064x is too low", target)
	}
	if target.Cmp(powLimit) > 0 {
		return fmt.Errorf("block target difficulty of %064x is higher than "+
			"max of %064x", target, powLimit)
	}

	hashNum := HashToBig(hash)
	if hashNum.Cmp(target) > 0 {
		return fmt.Errorf("block hash of %064x is higher than expected max "+
			"of %064x", hashNum, target)
	}

	return nil
}
