// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/bchcore/bchd/chainhash"
)

// MaxTxSize is the maximum allowed serialized size of a transaction, per
// spec.md §3.
const MaxTxSize = 1_000_000

// MaxTxInSequenceNum is the maximum sequence number a TxIn can hold, used to
// mark a transaction as fully final (no relative locktime / RBF signaling).
const MaxTxInSequenceNum uint32 = 0xffffffff

// SequenceLockTimeDisabled is the bit in the sequence number that, when set,
// disables the relative locktime interpretation of the remaining bits.
const SequenceLockTimeDisabled = 1 << 31

// maxWitnessItemsPerInput, maxScriptSize, etc are intentionally not repeated
// here; those live in txscript where they are enforced.

// TxIn defines a bitcoin transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction input.
func (t *TxIn) SerializeSize() int {
	// Outpoint Hash 32 bytes + Outpoint Index 4 bytes + serialized
	// varint size for the length of SignatureScript + SignatureScript
	// bytes + 4 bytes sequence.
	return 36 + VarIntSerializeSize(uint64(len(t.SignatureScript))) +
		len(t.SignatureScript) + 4
}

// NewTxIn returns a new bitcoin transaction input with the provided previous
// outpoint point and signature script with a default sequence of
// MaxTxInSequenceNum.
func NewTxIn(prevOut *OutPoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Sequence:         MaxTxInSequenceNum,
	}
}

// TxOut defines a bitcoin transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction output.
func (t *TxOut) SerializeSize() int {
	// Value 8 bytes + serialized varint size for the length of PkScript +
	// PkScript bytes.
	return 8 + VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

// NewTxOut returns a new bitcoin transaction output with the provided
// transaction value and public key script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{Value: value, PkScript: pkScript}
}

// MsgTx implements the transaction described in spec.md §3: version, inputs,
// outputs, locktime, with a stable little-endian serialization and cached
// hash.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32

	// cachedHash and cachedBytes are populated the first time Bytes or
	// TxHash is called on a transaction that has been marked immutable via
	// Finalize; Serialize then writes cachedBytes.  There are no setters:
	// fields changed after Finalize leave the cached values in use.  This
	// mirrors the teacher's immutable/mutable split for cached sighashes
	// (see txscript/sighash.go).
	immutable   bool
	cachedHash  *chainhash.Hash
	cachedBytes []byte
}

// Finalize marks the transaction as immutable, enabling hash/serialization
// caching.  Callers must not mutate a finalized transaction's fields.
func (msg *MsgTx) Finalize() {
	msg.immutable = true
}

// IsCoinBase determines whether a transaction is a coinbase.  A coinbase is a
// special transaction created by miners that has no inputs other than a
// single null outpoint.
func (msg *MsgTx) IsCoinBase() bool {
	return len(msg.TxIn) == 1 && msg.TxIn[0].PreviousOutPoint.IsNull()
}

// Copy creates a deep copy of a transaction so that the original does not get
// modified when the copy is manipulated.
func (msg *MsgTx) Copy() *MsgTx {
	newTx := MsgTx{
		Version:  msg.Version,
		TxIn:     make([]*TxIn, 0, len(msg.TxIn)),
		TxOut:    make([]*TxOut, 0, len(msg.TxOut)),
		LockTime: msg.LockTime,
	}

	for _, oldTxIn := range msg.TxIn {
		newTxIn := TxIn{
			PreviousOutPoint: OutPoint{
				Hash:  oldTxIn.PreviousOutPoint.Hash,
				Index: oldTxIn.PreviousOutPoint.Index,
			},
			Sequence: oldTxIn.Sequence,
		}
		if len(oldTxIn.SignatureScript) > 0 {
			newTxIn.SignatureScript = make([]byte, len(oldTxIn.SignatureScript))
			copy(newTxIn.SignatureScript, oldTxIn.SignatureScript)
		}
		newTx.TxIn = append(newTx.TxIn, &newTxIn)
	}

	for _, oldTxOut := range msg.TxOut {
		newTxOut := TxOut{Value: oldTxOut.Value}
		if len(oldTxOut.PkScript) > 0 {
			newTxOut.PkScript = make([]byte, len(oldTxOut.PkScript))
			copy(newTxOut.PkScript, oldTxOut.PkScript)
		}
		newTx.TxOut = append(newTx.TxOut, &newTxOut)
	}

	return &newTx
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (msg *MsgTx) SerializeSize() int {
	n := 8 + VarIntSerializeSize(uint64(len(msg.TxIn))) +
		VarIntSerializeSize(uint64(len(msg.TxOut)))
	for _, txIn := range msg.TxIn {
		n += txIn.SerializeSize()
	}
	for _, txOut := range msg.TxOut {
		n += txOut.SerializeSize()
	}
	return n
}

// Serialize encodes the transaction to w using the canonical wire encoding
// described in spec.md §4.A.
func (msg *MsgTx) Serialize(w io.Writer) error {
	if msg.immutable && msg.cachedBytes != nil {
		_, err := w.Write(msg.cachedBytes)
		return err
	}

	if err := writeInt32LE(w, msg.Version); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeOutPoint(w, &ti.PreviousOutPoint); err != nil {
			return err
		}
		if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
			return err
		}
		if err := writeUint32LE(w, ti.Sequence); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := writeInt64LE(w, to.Value); err != nil {
			return err
		}
		if err := WriteVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}
	return writeUint32LE(w, msg.LockTime)
}

// Bytes returns the canonical serialization of the transaction, using the
// cached copy when the transaction has been finalized.
func (msg *MsgTx) Bytes() []byte {
	if msg.immutable && msg.cachedBytes != nil {
		return msg.cachedBytes
	}

	var buf bytes.Buffer
	buf.Grow(msg.SerializeSize())
	// Error is not possible writing to a bytes.Buffer.
	_ = msg.Serialize(&buf)
	b := buf.Bytes()
	if msg.immutable {
		msg.cachedBytes = b
	}
	return b
}

// TxHash generates the double sha256 hash for the transaction.  The result is
// cached once a finalized transaction's hash has been computed.
func (msg *MsgTx) TxHash() chainhash.Hash {
	if msg.immutable && msg.cachedHash != nil {
		return *msg.cachedHash
	}

	h := chainhash.HashH(msg.Bytes())
	if msg.immutable {
		msg.cachedHash = &h
	}
	return h
}

// Deserialize decodes a transaction from r using the canonical wire encoding.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	ver, err := readInt32LE(r)
	if err != nil {
		return err
	}
	msg.Version = ver

	txInCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	msg.TxIn = make([]*TxIn, txInCount)
	for i := range msg.TxIn {
		ti := new(TxIn)
		if err := readOutPoint(r, &ti.PreviousOutPoint); err != nil {
			return err
		}
		script, err := ReadVarBytes(r, MaxTxSize, "tx input script")
		if err != nil {
			return err
		}
		ti.SignatureScript = script
		seq, err := readUint32LE(r)
		if err != nil {
			return err
		}
		ti.Sequence = seq
		msg.TxIn[i] = ti
	}

	txOutCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	msg.TxOut = make([]*TxOut, txOutCount)
	for i := range msg.TxOut {
		to := new(TxOut)
		val, err := readInt64LE(r)
		if err != nil {
			return err
		}
		to.Value = val
		script, err := ReadVarBytes(r, MaxTxSize, "tx output script")
		if err != nil {
			return err
		}
		to.PkScript = script
		msg.TxOut[i] = to
	}

	lockTime, err := readUint32LE(r)
	if err != nil {
		return err
	}
	msg.LockTime = lockTime
	return nil
}

// NewMsgTx returns a new bitcoin transaction message with the given version
// and no transaction inputs or outputs.  Also, the
// lock time is set to zero to indicate the transaction is valid
// immediately as opposed to some time in future.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{
		Version: version,
		TxIn:    make([]*TxIn, 0, 1),
		TxOut:   make([]*TxOut, 0, 1),
	}
}

// NewMsgTxFromBytes deserializes a full transaction from raw bytes.
func NewMsgTxFromBytes(b []byte) (*MsgTx, error) {
	tx := new(MsgTx)
	if err := tx.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return tx, nil
}

// IsFinal determines whether or not a transaction is considered final, per
// the standard locktime/sequence predicate.
func (msg *MsgTx) IsFinal(blockHeight int64, blockTime int64) bool {
	if msg.LockTime == 0 {
		return true
	}

	lockTimeThreshold := int64(500000000)
	lockTime := int64(msg.LockTime)
	if lockTime < lockTimeThreshold {
		if lockTime < blockHeight {
			return finalSequences(msg)
		}
		return false
	}
	if lockTime < blockTime {
		return finalSequences(msg)
	}
	return false
}

func finalSequences(msg *MsgTx) bool {
	for _, txIn := range msg.TxIn {
		if txIn.Sequence != MaxTxInSequenceNum {
			return false
		}
	}
	return true
}
