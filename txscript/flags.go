// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "github.com/jrick/bitset"

// flagBit is a single verification flag's position in the ScriptFlags
// bitset, per spec.md §4.C's flag table.
type flagBit int

const (
	flagP2SH flagBit = iota
	flagStrictEnc
	flagDERSig
	flagLowS
	flagNullFail
	flagSigHashForkID
	flagReplayProtection
	flagCheckDataSig
	flagCompressedPubKeyType
	flagMinimalData
	flagCleanStack
	numFlagBits
)

// ScriptFlags is the set of verification flags gating optional consensus
// and policy behavior in the interpreter, per spec.md §4.C.  It is backed by
// a jrick/bitset.Bitset rather than a bare integer so that the flag set can
// grow past a machine word without a breaking type change.
type ScriptFlags struct {
	bits bitset.Bitset
}

// NewScriptFlags returns an empty flag set sized to hold every flag defined
// in this package.
func NewScriptFlags() ScriptFlags {
	return ScriptFlags{bits: bitset.NewBytes(int(numFlagBits))}
}

func (f ScriptFlags) with(b flagBit) ScriptFlags {
	f.bits.Set(int(b))
	return f
}

func (f ScriptFlags) has(b flagBit) bool {
	return f.bits.Get(int(b))
}

// WithP2SH enables BIP16 P2SH redeem script evaluation.
func (f ScriptFlags) WithP2SH() ScriptFlags { return f.with(flagP2SH) }

// WithStrictEncoding enables strict DER/pubkey encoding checks.
func (f ScriptFlags) WithStrictEncoding() ScriptFlags { return f.with(flagStrictEnc) }

// WithDERSignatures requires strict DER signature encoding.
func (f ScriptFlags) WithDERSignatures() ScriptFlags { return f.with(flagDERSig) }

// WithLowS requires signatures to use the low-S form.
func (f ScriptFlags) WithLowS() ScriptFlags { return f.with(flagLowS) }

// WithNullFail requires failed CHECKSIG/CHECKMULTISIG operations to consume
// empty signatures.
func (f ScriptFlags) WithNullFail() ScriptFlags { return f.with(flagNullFail) }

// WithSigHashForkID enables the BIP-143-style v1 sighash algorithm (spec.md
// §4.C).
func (f ScriptFlags) WithSigHashForkID() ScriptFlags { return f.with(flagSigHashForkID) }

// WithReplayProtection enables the post-fork replay-protection sighash
// mangling (spec.md §4.C).
func (f ScriptFlags) WithReplayProtection() ScriptFlags { return f.with(flagReplayProtection) }

// WithCheckDataSig enables OP_CHECKDATASIG / OP_CHECKDATASIGVERIFY.
func (f ScriptFlags) WithCheckDataSig() ScriptFlags { return f.with(flagCheckDataSig) }

// WithCompressedPubKeyType requires STRICTENC-gated pubkeys to be
// compressed.
func (f ScriptFlags) WithCompressedPubKeyType() ScriptFlags {
	return f.with(flagCompressedPubKeyType)
}

// WithMinimalData requires minimally-encoded pushes and ScriptNums.
func (f ScriptFlags) WithMinimalData() ScriptFlags { return f.with(flagMinimalData) }

// WithCleanStack requires exactly one truthy element left on the stack
// after a successful run.
func (f ScriptFlags) WithCleanStack() ScriptFlags { return f.with(flagCleanStack) }

// HasP2SH reports whether P2SH evaluation is enabled.
func (f ScriptFlags) HasP2SH() bool { return f.has(flagP2SH) }

// HasStrictEncoding reports whether STRICTENC is enabled.
func (f ScriptFlags) HasStrictEncoding() bool { return f.has(flagStrictEnc) }

// HasDERSignatures reports whether DERSIG is enabled.
func (f ScriptFlags) HasDERSignatures() bool { return f.has(flagDERSig) }

// HasLowS reports whether LOW_S is enabled.
func (f ScriptFlags) HasLowS() bool { return f.has(flagLowS) }

// HasNullFail reports whether NULLFAIL is enabled.
func (f ScriptFlags) HasNullFail() bool { return f.has(flagNullFail) }

// HasSigHashForkID reports whether VERIFY_SIGHASH_FORKID is enabled.
func (f ScriptFlags) HasSigHashForkID() bool { return f.has(flagSigHashForkID) }

// HasReplayProtection reports whether VERIFY_REPLAY_PROTECTION is enabled.
func (f ScriptFlags) HasReplayProtection() bool { return f.has(flagReplayProtection) }

// HasCheckDataSig reports whether CHECKDATASIG is enabled.  Per spec.md §9's
// design note, this is treated as always-on post-activation rather than a
// freestanding policy flag, but callers still gate it explicitly here so
// pre-activation verification can disable it.
func (f ScriptFlags) HasCheckDataSig() bool { return f.has(flagCheckDataSig) }

// HasCompressedPubKeyType reports whether COMPRESSED_PUBKEYTYPE is enabled.
func (f ScriptFlags) HasCompressedPubKeyType() bool { return f.has(flagCompressedPubKeyType) }

// HasMinimalData reports whether MINIMALDATA is enabled.
func (f ScriptFlags) HasMinimalData() bool { return f.has(flagMinimalData) }

// HasCleanStack reports whether CLEANSTACK is enabled.
func (f ScriptFlags) HasCleanStack() bool { return f.has(flagCleanStack) }

// StandardVerifyFlags returns the flag set used to validate transactions
// destined for the mempool / block template: every consensus-mandatory rule
// plus the additional policy rules this repo enforces before relaying or
// mining a transaction.
func StandardVerifyFlags(magneticAnomalyActive bool) ScriptFlags {
	f := NewScriptFlags().
		WithP2SH().
		WithStrictEncoding().
		WithDERSignatures().
		WithLowS().
		WithNullFail().
		WithSigHashForkID().
		WithMinimalData().
		WithCleanStack()
	if magneticAnomalyActive {
		f = f.WithCheckDataSig()
	}
	return f
}
