// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"errors"
	"math/big"
)

// secp256k1Order is the order of the secp256k1 base point, used here only
// to classify a DER-encoded ECDSA signature's S value as low or high per
// the LOW_S verification flag in spec.md §4.C.
var secp256k1Order = func() *big.Int {
	n, _ := new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
	return n
}()

var secp256k1HalfOrder = new(big.Int).Rsh(secp256k1Order, 1)

// parseDERSignatureS extracts the raw S component from a DER-encoded ECDSA
// signature without needing the full parsed Signature type, so the LOW_S
// check can run directly off the bytes taken from the script stack.
func parseDERSignatureS(sig []byte) (*big.Int, error) {
	if len(sig) < 8 || sig[0] != 0x30 {
		return nil, errors.New("malformed DER signature")
	}
	totalLen := int(sig[1])
	if 2+totalLen > len(sig) {
		return nil, errors.New("malformed DER signature length")
	}
	if sig[2] != 0x02 {
		return nil, errors.New("malformed DER signature: missing R marker")
	}
	rLen := int(sig[3])
	off := 4 + rLen
	if off+2 > len(sig) {
		return nil, errors.New("malformed DER signature: R overruns buffer")
	}
	if sig[off] != 0x02 {
		return nil, errors.New("malformed DER signature: missing S marker")
	}
	sLen := int(sig[off+1])
	sStart := off + 2
	if sStart+sLen > len(sig) {
		return nil, errors.New("malformed DER signature: S overruns buffer")
	}
	return new(big.Int).SetBytes(sig[sStart : sStart+sLen]), nil
}

// isHighS reports whether sig's S component is greater than half the
// secp256k1 group order, the condition the LOW_S verification flag rejects.
func isHighS(sig []byte) bool {
	s, err := parseDERSignatureS(sig)
	if err != nil {
		return false
	}
	return s.Cmp(secp256k1HalfOrder) > 0
}

// isStrictDERSignature reports whether sig (without the trailing hashtype
// byte) is a strictly encoded DER signature, per the DERSIG verification
// flag in spec.md §4.C.  This mirrors the historical Bitcoin
// IsValidSignatureEncoding check: a single outer SEQUENCE containing exactly
// two non-negative INTEGERs (R, S), each minimally encoded, with no trailing
// garbage.
func isStrictDERSignature(sig []byte) bool {
	if len(sig) < 8 || len(sig) > 72 {
		return false
	}
	if sig[0] != 0x30 || int(sig[1]) != len(sig)-2 {
		return false
	}

	rLen := int(sig[3])
	if sig[2] != 0x02 || rLen == 0 || 5+rLen >= len(sig) {
		return false
	}
	sLenIdx := 4 + rLen
	sLen := int(sig[sLenIdx+1])
	if sig[sLenIdx] != 0x02 || sLen == 0 {
		return false
	}
	if 6+rLen+sLen != len(sig) {
		return false
	}

	r := sig[4 : 4+rLen]
	if r[0]&0x80 != 0 {
		return false
	}
	if len(r) > 1 && r[0] == 0x00 && r[1]&0x80 == 0 {
		return false
	}

	s := sig[sLenIdx+2 : sLenIdx+2+sLen]
	if s[0]&0x80 != 0 {
		return false
	}
	if len(s) > 1 && s[0] == 0x00 && s[1]&0x80 == 0 {
		return false
	}

	return true
}

// isCompressedOrUncompressedPubKey reports whether pubKey is a standard
// SEC1-encoded public key: uncompressed (0x04, 65 bytes) or compressed
// (0x02/0x03, 33 bytes).  A "hybrid" encoding (0x06/0x07) fails this check,
// per spec.md §8 scenario 6.
func isCompressedOrUncompressedPubKey(pubKey []byte) bool {
	switch {
	case len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03):
		return true
	case len(pubKey) == 65 && pubKey[0] == 0x04:
		return true
	default:
		return false
	}
}

// isCompressedPubKey reports whether pubKey uses the compressed SEC1
// encoding, the only form COMPRESSED_PUBKEYTYPE allows.
func isCompressedPubKey(pubKey []byte) bool {
	return len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03)
}

// checkPubKeyEncoding enforces STRICTENC / COMPRESSED_PUBKEYTYPE on a
// pubkey taken off the stack, per spec.md §4.C and §8 scenario 6 (a hybrid
// pubkey with STRICTENC set fails with PUBKEYTYPE).
func checkPubKeyEncoding(pubKey []byte, flags ScriptFlags) error {
	if flags.HasCompressedPubKeyType() && !isCompressedPubKey(pubKey) {
		return scriptError(ErrPubKeyType, "unsupported public key type")
	}
	if flags.HasStrictEncoding() && !isCompressedOrUncompressedPubKey(pubKey) {
		return scriptError(ErrPubKeyType, "unsupported public key type")
	}
	return nil
}

// checkSignatureEncoding enforces DERSIG / LOW_S on a signature (without the
// trailing hashtype byte) taken off the stack, per spec.md §4.C.  An empty
// signature (as produced by a deliberately failed multisig slot) is always
// permitted through; callers are expected to have already excluded that
// case when the check matters.
func checkSignatureEncoding(sig []byte, flags ScriptFlags) error {
	if len(sig) == 0 {
		return nil
	}
	if (flags.HasDERSignatures() || flags.HasLowS() || flags.HasStrictEncoding()) &&
		!isStrictDERSignature(sig) {
		return scriptError(ErrSigDER, "signature is not strict DER encoded")
	}
	if flags.HasLowS() && isHighS(sig) {
		return scriptError(ErrSigHighS, "signature S value is unnecessarily high")
	}
	return nil
}
