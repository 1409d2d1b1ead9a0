// Copyright (c) 2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"errors"

	"github.com/bchcore/bchd/bchutil"
)

// ErrUnsupportedAddress is returned by PayToAddrScript when asked to build
// a locking script for an address type it does not recognize.
var ErrUnsupportedAddress = errors.New("unsupported address type")

// maxPubKeysInScriptSigOps mirrors the historical "assume 20 signature
// operations for an undetermined multisig" legacy counting rule used when a
// CHECKMULTISIG's key count is not a small-int push, per spec.md §4.C's
// sigop accounting note.
const maxPubKeysInScriptSigOps = maxPubKeysPerMultiSig

// GetScriptClass returns the class of the script passed, matching it
// against the standard templates described in spec.md §4.C.
func GetScriptClass(script []byte) ScriptClass {
	pops, err := parseScript(script)
	if err != nil {
		return NonStandardTy
	}
	return typeOfScript(pops)
}

func typeOfScript(pops []parsedOpcode) ScriptClass {
	switch {
	case isPubKeyHash(pops):
		return PubKeyHashTy
	case isScriptHash(pops):
		return ScriptHashTy
	case isPubKey(pops):
		return PubKeyTy
	case isMultiSig(pops):
		return MultiSigTy
	case isNullData(pops):
		return NullDataTy
	}
	return NonStandardTy
}

// isPubKeyHash matches OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY
// OP_CHECKSIG.
func isPubKeyHash(pops []parsedOpcode) bool {
	return len(pops) == 5 &&
		pops[0].opcode == OP_DUP &&
		pops[1].opcode == OP_HASH160 &&
		pops[2].opcode <= OP_PUSHDATA4 && len(pops[2].data) == 20 &&
		pops[3].opcode == OP_EQUALVERIFY &&
		pops[4].opcode == OP_CHECKSIG
}

// isPubKey matches <pubkey> OP_CHECKSIG.
func isPubKey(pops []parsedOpcode) bool {
	return len(pops) == 2 &&
		pops[0].opcode <= OP_PUSHDATA4 &&
		(len(pops[0].data) == 33 || len(pops[0].data) == 65) &&
		pops[1].opcode == OP_CHECKSIG
}

// isMultiSig matches OP_<m> <pubkey>... OP_<n> OP_CHECKMULTISIG.
func isMultiSig(pops []parsedOpcode) bool {
	if len(pops) < 4 {
		return false
	}
	if !isSmallInt(pops[0].opcode) {
		return false
	}
	numSigs := asSmallInt(pops[0].opcode)
	numKeys := len(pops) - 3
	if numKeys < 1 || numSigs < 1 || numSigs > numKeys {
		return false
	}
	for _, pop := range pops[1 : len(pops)-2] {
		if pop.opcode > OP_PUSHDATA4 || (len(pop.data) != 33 && len(pop.data) != 65) {
			return false
		}
	}
	if !isSmallInt(pops[len(pops)-2].opcode) {
		return false
	}
	if asSmallInt(pops[len(pops)-2].opcode) != numKeys {
		return false
	}
	return pops[len(pops)-1].opcode == OP_CHECKMULTISIG
}

// isNullData matches OP_RETURN followed by zero or more data pushes.
func isNullData(pops []parsedOpcode) bool {
	if len(pops) == 0 || pops[0].opcode != OP_RETURN {
		return false
	}
	for _, pop := range pops[1:] {
		if pop.opcode > OP_16 {
			return false
		}
	}
	return true
}

// GetSigOpCount returns the number of signature operations script would
// execute taken at face value; CHECKMULTISIG(VERIFY) with an indeterminate
// key count is charged the conservative maximum, per spec.md §4.C.
func GetSigOpCount(script []byte) int {
	pops, err := parseScript(script)
	if err != nil {
		return 0
	}
	return countSigOps(pops, false)
}

// GetPreciseSigOpCount returns the number of signature operations a script
// executes, charging CHECKMULTISIG its actual key count.  When bip16 is set
// and pkScript is P2SH, the redeem script (the last push of sigScript, per
// spec.md §4.C's accurate counting rule) is counted in place of pkScript;
// otherwise pkScript itself is counted.
func GetPreciseSigOpCount(sigScript, pkScript []byte, bip16 bool) int {
	pkPops, err := parseScript(pkScript)
	if err != nil {
		return 0
	}
	if !(bip16 && isScriptHash(pkPops)) {
		return countSigOps(pkPops, true)
	}

	sigPops, err := parseScript(sigScript)
	if err != nil || len(sigPops) == 0 {
		return 0
	}
	redeemScript := sigPops[len(sigPops)-1].data
	redeemPops, err := parseScript(redeemScript)
	if err != nil {
		return 0
	}
	return countSigOps(redeemPops, true)
}

func countSigOps(pops []parsedOpcode, precise bool) int {
	n := 0
	for i, pop := range pops {
		switch pop.opcode {
		case OP_CHECKSIG, OP_CHECKSIGVERIFY:
			n++
		case OP_CHECKDATASIG, OP_CHECKDATASIGVERIFY:
			n++
		case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
			if precise && i > 0 && isSmallInt(pops[i-1].opcode) {
				n += asSmallInt(pops[i-1].opcode)
			} else {
				n += maxPubKeysInScriptSigOps
			}
		}
	}
	return n
}

// PayToAddrScript creates a new script to pay a transaction output to the
// specified address, per spec.md §3's Address variants: OP_DUP OP_HASH160
// <hash> OP_EQUALVERIFY OP_CHECKSIG for a PUBKEYHASH address, OP_HASH160
// <hash> OP_EQUAL for a SCRIPTHASH address.
func PayToAddrScript(addr *bchutil.Address) ([]byte, error) {
	switch addr.Type {
	case bchutil.PubKeyHash:
		return NewScriptBuilder().
			AddOp(OP_DUP).
			AddOp(OP_HASH160).
			AddData(addr.Hash[:]).
			AddOp(OP_EQUALVERIFY).
			AddOp(OP_CHECKSIG).
			Script()
	case bchutil.ScriptHash:
		return NewScriptBuilder().
			AddOp(OP_HASH160).
			AddData(addr.Hash[:]).
			AddOp(OP_EQUAL).
			Script()
	default:
		return nil, ErrUnsupportedAddress
	}
}
