// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"

	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
)

// SigHashType represents hash type bits at the end of a signature, per
// spec.md §4.C.
type SigHashType uint32

// Hash type bits, matching the classic Bitcoin signature hash types.
const (
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashAnyOneCanPay SigHashType = 0x80

	sigHashMask = 0x1f
)

// SigHashForkValue is the UTXO-fork value mixed into the hash type for
// replay-protected chains when VERIFY_REPLAY_PROTECTION is set, per spec.md
// §4.C.  Regtest and mainnet use the Bitcoin Cash value (0x40).
const SigHashForkValue uint32 = 0x000040

// forkHashType mangles the raw hash type byte (which already carries the
// SIGHASH_FORKID bit, 0x40) with the fork value using the replay-protection
// rule from spec.md §4.C: the fork value is XORed with 0xdead and OR'd with
// 0xff0000, then shifted into the upper 24 bits, so that scripts signed
// with SIGHASH_FORKID set on a replay-protected chain are never valid on the
// original chain and vice versa.
func forkHashType(hashType SigHashType, replayProtection bool) uint32 {
	ht := uint32(hashType)
	if replayProtection {
		fork := (SigHashForkValue ^ 0xdead) | 0xff0000
		return ht | (fork << 8)
	}
	return ht | (SigHashForkValue << 8)
}

// txSigHashes caches the three midstate hashes shared by every input of a
// transaction's v1 (SIGHASH_FORKID / BIP-143-style) signature hash, per
// spec.md §4.C.  Computing them once per transaction instead of once per
// input keeps multi-input signing linear rather than quadratic.
type txSigHashes struct {
	hashPrevouts chainhash.Hash
	hashSequence chainhash.Hash
	hashOutputs  chainhash.Hash
}

// newTxSigHashes precomputes the midstate hashes for tx.
func newTxSigHashes(tx *wire.MsgTx) *txSigHashes {
	return &txSigHashes{
		hashPrevouts: calcHashPrevouts(tx),
		hashSequence: calcHashSequence(tx),
		hashOutputs:  calcHashOutputs(tx),
	}
}

func calcHashPrevouts(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, in := range tx.TxIn {
		b.Write(in.PreviousOutPoint.Hash[:])
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], in.PreviousOutPoint.Index)
		b.Write(idx[:])
	}
	return chainhash.HashH(b.Bytes())
}

func calcHashSequence(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, in := range tx.TxIn {
		var seq [4]byte
		binary.LittleEndian.PutUint32(seq[:], in.Sequence)
		b.Write(seq[:])
	}
	return chainhash.HashH(b.Bytes())
}

func calcHashOutputs(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, out := range tx.TxOut {
		writeTxOut(&b, out)
	}
	return chainhash.HashH(b.Bytes())
}

func writeTxOut(b *bytes.Buffer, out *wire.TxOut) {
	var val [8]byte
	binary.LittleEndian.PutUint64(val[:], uint64(out.Value))
	b.Write(val[:])
	wire.WriteVarBytes(b, out.PkScript)
}

// calcSignatureHashV1 computes the BIP-143-style, FORKID-linear sighash
// described in spec.md §4.C: a single SHA256d over a fixed-size preimage
// that embeds the cached hashPrevouts/hashSequence/hashOutputs midstates
// instead of re-serializing every input and output per signature.
func calcSignatureHashV1(subScript []byte, sigHashes *txSigHashes, hashType SigHashType, tx *wire.MsgTx, idx int, amount int64, replayProtection bool) chainhash.Hash {
	var zeroHash chainhash.Hash

	hashPrevouts := zeroHash
	hashSequence := zeroHash
	hashOutputs := zeroHash

	base0 := hashType & sigHashMask
	if hashType&SigHashAnyOneCanPay == 0 {
		hashPrevouts = sigHashes.hashPrevouts
	}
	if hashType&SigHashAnyOneCanPay == 0 && base0 != SigHashSingle && base0 != SigHashNone {
		hashSequence = sigHashes.hashSequence
	}

	in := tx.TxIn[idx]

	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, tx.Version)
	b.Write(hashPrevouts[:])
	b.Write(hashSequence[:])
	b.Write(in.PreviousOutPoint.Hash[:])
	var outIdx [4]byte
	binary.LittleEndian.PutUint32(outIdx[:], in.PreviousOutPoint.Index)
	b.Write(outIdx[:])
	wire.WriteVarBytes(&b, subScript)
	var val [8]byte
	binary.LittleEndian.PutUint64(val[:], uint64(amount))
	b.Write(val[:])
	var seq [4]byte
	binary.LittleEndian.PutUint32(seq[:], in.Sequence)
	b.Write(seq[:])

	base := hashType & sigHashMask
	if base == SigHashSingle && idx < len(tx.TxOut) {
		hashOutputs = chainhash.HashH(func() []byte {
			var ob bytes.Buffer
			writeTxOut(&ob, tx.TxOut[idx])
			return ob.Bytes()
		}())
	} else if base != SigHashNone && base != SigHashSingle {
		hashOutputs = sigHashes.hashOutputs
	}
	b.Write(hashOutputs[:])

	var lockTime [4]byte
	binary.LittleEndian.PutUint32(lockTime[:], tx.LockTime)
	b.Write(lockTime[:])

	fullHashType := forkHashType(hashType, replayProtection)
	var ht [4]byte
	binary.LittleEndian.PutUint32(ht[:], fullHashType)
	b.Write(ht[:])

	return chainhash.HashH(b.Bytes())
}

// calcSignatureHashV0 computes the legacy, pre-fork signature hash: a full
// serialization of a transaction copy with inputs/outputs blanked per
// hashType, hashed once the quadratic way every pre-FORKID Bitcoin client
// uses. Scripts that do not set SIGHASH_FORKID still verify against this
// algorithm, per spec.md §4.C.
func calcSignatureHashV0(subScript []byte, hashType SigHashType, tx *wire.MsgTx, idx int) chainhash.Hash {
	if idx >= len(tx.TxIn) {
		return chainhash.Hash{0x01}
	}

	txCopy := tx.Copy()
	for i := range txCopy.TxIn {
		if i == idx {
			txCopy.TxIn[i].SignatureScript = subScript
		} else {
			txCopy.TxIn[i].SignatureScript = nil
		}
	}

	base := hashType & sigHashMask
	switch base {
	case SigHashNone:
		txCopy.TxOut = txCopy.TxOut[0:0]
		for i := range txCopy.TxIn {
			if i != idx {
				txCopy.TxIn[i].Sequence = 0
			}
		}
	case SigHashSingle:
		if idx >= len(txCopy.TxOut) {
			return chainhash.Hash{0x01}
		}
		txCopy.TxOut = txCopy.TxOut[:idx+1]
		for i := 0; i < idx; i++ {
			txCopy.TxOut[i].Value = -1
			txCopy.TxOut[i].PkScript = nil
		}
		for i := range txCopy.TxIn {
			if i != idx {
				txCopy.TxIn[i].Sequence = 0
			}
		}
	default:
		// SIGHASH_ALL, the default.
	}

	if hashType&SigHashAnyOneCanPay != 0 {
		txCopy.TxIn = []*wire.TxIn{txCopy.TxIn[idx]}
	}

	var b bytes.Buffer
	txCopy.Serialize(&b)
	var ht [4]byte
	binary.LittleEndian.PutUint32(ht[:], uint32(hashType))
	b.Write(ht[:])

	return chainhash.HashH(b.Bytes())
}

// CalcSignatureHash computes the signature hash an input's signature is
// checked against, dispatching to the v0 or v1 algorithm according to
// whether hashType carries SIGHASH_FORKID and flags.HasSigHashForkID, per
// spec.md §4.C.
func CalcSignatureHash(subScript []byte, hashType SigHashType, tx *wire.MsgTx, idx int, amount int64, flags ScriptFlags, cache *txSigHashes) chainhash.Hash {
	useForkID := hashType&0x40 != 0
	if flags.HasSigHashForkID() && useForkID {
		if cache == nil {
			cache = newTxSigHashes(tx)
		}
		return calcSignatureHashV1(subScript, cache, hashType, tx, idx, amount, flags.HasReplayProtection())
	}
	return calcSignatureHashV0(subScript, hashType, tx, idx)
}
