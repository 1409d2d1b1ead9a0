// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"

	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160"
)

// unparseScript rebuilds the raw script bytes from pops, used to compute the
// subscript fed into OP_CHECKSIG-family verification after an
// OP_CODESEPARATOR.
func unparseScript(pops []parsedOpcode) []byte {
	var buf bytes.Buffer
	for _, pop := range pops {
		switch {
		case pop.opcode == OP_0:
			buf.WriteByte(byte(OP_0))
		case pop.opcode < OP_PUSHDATA1:
			buf.WriteByte(byte(len(pop.data)))
			buf.Write(pop.data)
		case pop.opcode == OP_PUSHDATA1:
			buf.WriteByte(byte(OP_PUSHDATA1))
			buf.WriteByte(byte(len(pop.data)))
			buf.Write(pop.data)
		case pop.opcode == OP_PUSHDATA2:
			buf.WriteByte(byte(OP_PUSHDATA2))
			var n [2]byte
			n[0] = byte(len(pop.data))
			n[1] = byte(len(pop.data) >> 8)
			buf.Write(n[:])
			buf.Write(pop.data)
		case pop.opcode == OP_PUSHDATA4:
			buf.WriteByte(byte(OP_PUSHDATA4))
			var n [4]byte
			n[0] = byte(len(pop.data))
			n[1] = byte(len(pop.data) >> 8)
			n[2] = byte(len(pop.data) >> 16)
			n[3] = byte(len(pop.data) >> 24)
			buf.Write(n[:])
			buf.Write(pop.data)
		default:
			buf.WriteByte(byte(pop.opcode))
		}
	}
	return buf.Bytes()
}

func (vm *Engine) subScript() []byte {
	return unparseScript(vm.scripts[vm.scriptIdx][vm.lastCodeSep:])
}

// execOpcode dispatches a single instruction against the machine state.
func (vm *Engine) execOpcode(pop parsedOpcode, pops []parsedOpcode) error {
	op := pop.opcode

	switch {
	case op == OP_0:
		vm.dstack.PushByteArray(nil)
		return nil
	case op < OP_PUSHDATA1 || op == OP_PUSHDATA1 || op == OP_PUSHDATA2 || op == OP_PUSHDATA4:
		vm.dstack.PushByteArray(pop.data)
		return nil
	case op == OP_1NEGATE:
		vm.dstack.PushInt(scriptNum(-1))
		return nil
	case isSmallInt(op):
		vm.dstack.PushInt(scriptNum(asSmallInt(op)))
		return nil
	}

	switch op {
	case OP_NOP, OP_RESERVED:
		return nil

	case OP_IF, OP_NOTIF:
		cond := opCondFalse
		if vm.shouldExec(pop) {
			v, err := vm.dstack.PopBool()
			if err != nil {
				return err
			}
			if vm.flags.HasMinimalData() {
				// MINIMALIF is not consensus for non-witness scripts; no
				// additional check required here.
			}
			if v == (op == OP_IF) {
				cond = opCondTrue
			}
		} else {
			cond = opCondSkip
		}
		vm.condStack = append(vm.condStack, cond)
		return nil

	case OP_ELSE:
		if len(vm.condStack) == 0 {
			return scriptError(ErrUnbalancedConditional, "else without matching if")
		}
		idx := len(vm.condStack) - 1
		switch vm.condStack[idx] {
		case opCondTrue:
			vm.condStack[idx] = opCondFalse
		case opCondFalse:
			vm.condStack[idx] = opCondTrue
		}
		return nil

	case OP_ENDIF:
		if len(vm.condStack) == 0 {
			return scriptError(ErrUnbalancedConditional, "endif without matching if")
		}
		vm.condStack = vm.condStack[:len(vm.condStack)-1]
		return nil

	case OP_VERIFY:
		v, err := vm.dstack.PopBool()
		if err != nil {
			return err
		}
		if !v {
			return scriptError(ErrVerify, "VERIFY failed")
		}
		return nil

	case OP_RETURN:
		return scriptError(ErrEarlyReturn, "script returned early")

	case OP_TOALTSTACK:
		v, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		vm.astack.PushByteArray(v)
		return nil

	case OP_FROMALTSTACK:
		v, err := vm.astack.PopByteArray()
		if err != nil {
			return err
		}
		vm.dstack.PushByteArray(v)
		return nil

	case OP_2DROP:
		return vm.dstack.DropN(2)
	case OP_2DUP:
		return vm.dstack.DupN(2)
	case OP_3DUP:
		return vm.dstack.DupN(3)
	case OP_DEPTH:
		vm.dstack.PushInt(scriptNum(vm.dstack.Depth()))
		return nil
	case OP_DROP:
		return vm.dstack.DropN(1)
	case OP_DUP:
		return vm.dstack.DupN(1)
	case OP_NIP:
		return vm.dstack.NipN(1)
	case OP_OVER:
		return vm.dstack.OverN(1)
	case OP_PICK:
		n, err := vm.dstack.PopInt(defaultScriptNumLen)
		if err != nil {
			return err
		}
		return vm.dstack.PickN(int(n.Int32()))
	case OP_ROLL:
		n, err := vm.dstack.PopInt(defaultScriptNumLen)
		if err != nil {
			return err
		}
		return vm.dstack.RollN(int(n.Int32()))
	case OP_ROT:
		return vm.dstack.RotN(1)
	case OP_SWAP:
		return vm.dstack.SwapN(1)
	case OP_TUCK:
		return vm.dstack.Tuck()

	case OP_CAT:
		return vm.opCat()
	case OP_SPLIT:
		return vm.opSplit()
	case OP_NUM2BIN:
		return vm.opNum2Bin()
	case OP_BIN2NUM:
		return vm.opBin2Num()
	case OP_SIZE:
		v, err := vm.dstack.PeekByteArray(0)
		if err != nil {
			return err
		}
		vm.dstack.PushInt(scriptNum(len(v)))
		return nil

	case OP_AND, OP_OR, OP_XOR:
		return vm.opBitwise(op)

	case OP_EQUAL, OP_EQUALVERIFY:
		a, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		b, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		equal := bytes.Equal(a, b)
		if op == OP_EQUAL {
			vm.dstack.PushBool(equal)
			return nil
		}
		if !equal {
			return scriptError(ErrEqualVerify, "EQUALVERIFY failed")
		}
		return nil

	case OP_1ADD, OP_1SUB, OP_NEGATE, OP_ABS, OP_NOT, OP_0NOTEQUAL:
		return vm.opUnaryNum(op)

	case OP_ADD, OP_SUB, OP_DIV, OP_MOD, OP_BOOLAND, OP_BOOLOR,
		OP_NUMEQUAL, OP_NUMEQUALVERIFY, OP_NUMNOTEQUAL,
		OP_LESSTHAN, OP_GREATERTHAN, OP_LESSTHANOREQUAL, OP_GREATERTHANOREQUAL,
		OP_MIN, OP_MAX:
		return vm.opBinaryNum(op)

	case OP_WITHIN:
		return vm.opWithin()

	case OP_RIPEMD160:
		return vm.opHash(func(b []byte) []byte {
			h := ripemd160.New()
			h.Write(b)
			return h.Sum(nil)
		})
	case OP_SHA1:
		return vm.opHash(func(b []byte) []byte {
			h := sha1.Sum(b)
			return h[:]
		})
	case OP_SHA256:
		return vm.opHash(func(b []byte) []byte {
			h := sha256.Sum256(b)
			return h[:]
		})
	case OP_HASH160:
		return vm.opHash(func(b []byte) []byte {
			h := sha256.Sum256(b)
			r := ripemd160.New()
			r.Write(h[:])
			return r.Sum(nil)
		})
	case OP_HASH256:
		return vm.opHash(func(b []byte) []byte {
			h := chainhash.HashB(b)
			return h
		})

	case OP_CODESEPARATOR:
		vm.lastCodeSep = vm.opcodeIdx + 1
		return nil

	case OP_CHECKSIG, OP_CHECKSIGVERIFY:
		return vm.opCheckSig(op == OP_CHECKSIGVERIFY)

	case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
		return vm.opCheckMultiSig(op == OP_CHECKMULTISIGVERIFY)

	case OP_CHECKDATASIG, OP_CHECKDATASIGVERIFY:
		return vm.opCheckDataSig(op == OP_CHECKDATASIGVERIFY)

	case OP_CHECKLOCKTIMEVERIFY:
		return vm.opCheckLockTimeVerify()
	case OP_CHECKSEQUENCEVERIFY:
		return vm.opCheckSequenceVerify()
	}

	return scriptError(ErrReservedOpcode, "unknown or reserved opcode")
}

func (vm *Engine) opHash(f func([]byte) []byte) error {
	v, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	vm.dstack.PushByteArray(f(v))
	return nil
}

func (vm *Engine) opCat() error {
	b, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	if len(a)+len(b) > maxScriptElementSize {
		return scriptError(ErrPushSize, "concatenated element size exceeds max allowed size")
	}
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	vm.dstack.PushByteArray(out)
	return nil
}

func (vm *Engine) opSplit() error {
	n, err := vm.dstack.PopInt(defaultScriptNumLen)
	if err != nil {
		return err
	}
	data, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	pos := int(n.Int32())
	if pos < 0 || pos > len(data) {
		return scriptError(ErrInvalidSplitRange, "split position out of range")
	}
	left := make([]byte, pos)
	copy(left, data[:pos])
	right := make([]byte, len(data)-pos)
	copy(right, data[pos:])
	vm.dstack.PushByteArray(left)
	vm.dstack.PushByteArray(right)
	return nil
}

func (vm *Engine) opNum2Bin() error {
	n, err := vm.dstack.PopInt(defaultScriptNumLen)
	if err != nil {
		return err
	}
	size := int(n.Int32())
	if size < 0 || size > maxScriptElementSize {
		return scriptError(ErrPushSize, "requested NUM2BIN size out of range")
	}
	data, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	num, err := makeScriptNum(data, false, len(data))
	if err != nil {
		return err
	}
	raw := num.Bytes()
	if len(raw) > size {
		return scriptError(ErrImpossibleEncoding, "value does not fit in requested size")
	}
	if len(raw) == size {
		vm.dstack.PushByteArray(raw)
		return nil
	}

	negative := len(raw) > 0 && raw[len(raw)-1]&0x80 != 0
	out := make([]byte, size)
	copy(out, raw)
	if negative {
		out[len(raw)-1] &^= 0x80
		out[size-1] |= 0x80
	}
	vm.dstack.PushByteArray(out)
	return nil
}

func (vm *Engine) opBin2Num() error {
	data, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	result := reduceToMinimal(data)
	if len(result) > defaultScriptNumLen {
		return scriptError(ErrInvalidNumberRange, "BIN2NUM result exceeds max number length")
	}
	vm.dstack.PushByteArray(result)
	return nil
}

func (vm *Engine) opBitwise(op Opcode) error {
	b, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	if len(a) != len(b) {
		return scriptError(ErrInvalidOperandSize, "operands of AND/OR/XOR must be the same size")
	}
	out := make([]byte, len(a))
	for i := range a {
		switch op {
		case OP_AND:
			out[i] = a[i] & b[i]
		case OP_OR:
			out[i] = a[i] | b[i]
		case OP_XOR:
			out[i] = a[i] ^ b[i]
		}
	}
	vm.dstack.PushByteArray(out)
	return nil
}

func (vm *Engine) opUnaryNum(op Opcode) error {
	n, err := vm.dstack.PopInt(defaultScriptNumLen)
	if err != nil {
		return err
	}

	var result scriptNum
	switch op {
	case OP_1ADD:
		result = n + 1
	case OP_1SUB:
		result = n - 1
	case OP_NEGATE:
		result = -n
	case OP_ABS:
		if n < 0 {
			result = -n
		} else {
			result = n
		}
	case OP_NOT:
		if n == 0 {
			result = 1
		}
	case OP_0NOTEQUAL:
		if n != 0 {
			result = 1
		}
	}
	vm.dstack.PushInt(result)
	return nil
}

func (vm *Engine) opBinaryNum(op Opcode) error {
	b, err := vm.dstack.PopInt(defaultScriptNumLen)
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt(defaultScriptNumLen)
	if err != nil {
		return err
	}

	var result scriptNum
	switch op {
	case OP_ADD:
		result = a + b
	case OP_SUB:
		result = a - b
	case OP_DIV:
		if b == 0 {
			return scriptError(ErrDivByZero, "division by zero")
		}
		result = a / b
	case OP_MOD:
		if b == 0 {
			return scriptError(ErrModByZero, "modulo by zero")
		}
		result = a % b
	case OP_BOOLAND:
		if a != 0 && b != 0 {
			result = 1
		}
	case OP_BOOLOR:
		if a != 0 || b != 0 {
			result = 1
		}
	case OP_NUMEQUAL:
		if a == b {
			result = 1
		}
	case OP_NUMEQUALVERIFY:
		if a != b {
			return scriptError(ErrNumEqualVerify, "NUMEQUALVERIFY failed")
		}
		return nil
	case OP_NUMNOTEQUAL:
		if a != b {
			result = 1
		}
	case OP_LESSTHAN:
		if a < b {
			result = 1
		}
	case OP_GREATERTHAN:
		if a > b {
			result = 1
		}
	case OP_LESSTHANOREQUAL:
		if a <= b {
			result = 1
		}
	case OP_GREATERTHANOREQUAL:
		if a >= b {
			result = 1
		}
	case OP_MIN:
		if a < b {
			result = a
		} else {
			result = b
		}
	case OP_MAX:
		if a > b {
			result = a
		} else {
			result = b
		}
	}
	vm.dstack.PushInt(result)
	return nil
}

func (vm *Engine) opWithin() error {
	max, err := vm.dstack.PopInt(defaultScriptNumLen)
	if err != nil {
		return err
	}
	min, err := vm.dstack.PopInt(defaultScriptNumLen)
	if err != nil {
		return err
	}
	x, err := vm.dstack.PopInt(defaultScriptNumLen)
	if err != nil {
		return err
	}
	vm.dstack.PushBool(x >= min && x < max)
	return nil
}

func (vm *Engine) opCheckLockTimeVerify() error {
	n, err := vm.dstack.PeekInt(0, 5)
	if err != nil {
		return err
	}
	if n < 0 {
		return scriptError(ErrNumEqualVerify, "negative locktime")
	}
	lockTimeThreshold := int64(500000000)
	txLockTime := int64(vm.tx.LockTime)
	if !((int64(n) < lockTimeThreshold) == (txLockTime < lockTimeThreshold)) {
		return scriptError(ErrNumEqualVerify, "locktime requirement type mismatch")
	}
	if int64(n) > txLockTime {
		return scriptError(ErrNumEqualVerify, "locktime requirement not satisfied")
	}
	if vm.tx.TxIn[vm.txIdx].Sequence == wire.MaxTxInSequenceNum {
		return scriptError(ErrNumEqualVerify, "finalized input used with CHECKLOCKTIMEVERIFY")
	}
	return nil
}

func (vm *Engine) opCheckSequenceVerify() error {
	n, err := vm.dstack.PeekInt(0, 5)
	if err != nil {
		return err
	}
	if n < 0 {
		return scriptError(ErrNumEqualVerify, "negative relative locktime")
	}
	if int64(n)&int64(wire.SequenceLockTimeDisabled) != 0 {
		return nil
	}
	if vm.tx.Version < 2 {
		return scriptError(ErrNumEqualVerify, "transaction version too low for CHECKSEQUENCEVERIFY")
	}
	seq := vm.tx.TxIn[vm.txIdx].Sequence
	if seq&wire.SequenceLockTimeDisabled != 0 {
		return scriptError(ErrNumEqualVerify, "input sequence disables relative locktime")
	}
	const typeMask = 1 << 22
	if (int64(n)&typeMask) != (int64(seq) & typeMask) {
		return scriptError(ErrNumEqualVerify, "relative locktime requirement type mismatch")
	}
	const valueMask = 0x0000ffff
	if int64(n)&valueMask > int64(seq)&valueMask {
		return scriptError(ErrNumEqualVerify, "relative locktime requirement not satisfied")
	}
	return nil
}

// parseSignature splits a raw scriptSig signature push into its DER bytes
// and trailing hash type byte.
func parseSignature(raw []byte) ([]byte, SigHashType, error) {
	if len(raw) == 0 {
		return nil, 0, scriptError(ErrSigDER, "empty signature")
	}
	return raw[:len(raw)-1], SigHashType(raw[len(raw)-1]), nil
}

func (vm *Engine) verifySignature(sigBytes, pubKeyBytes, subScript []byte, hashType SigHashType) (bool, error) {
	if err := checkSignatureEncoding(sigBytes, vm.flags); err != nil {
		return false, err
	}
	if err := checkPubKeyEncoding(pubKeyBytes, vm.flags); err != nil {
		return false, err
	}

	sigHash := CalcSignatureHash(subScript, hashType, vm.tx, vm.txIdx, vm.amount, vm.flags, vm.hashCache)

	if vm.sigCache != nil && vm.sigCache.Exists(sigHash, sigBytes, pubKeyBytes) {
		return true, nil
	}

	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false, nil
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false, nil
	}

	valid := sig.Verify(sigHash[:], pubKey)
	if valid && vm.sigCache != nil {
		vm.sigCache.Add(sigHash, sig, pubKey, sigBytes, pubKeyBytes)
	}
	return valid, nil
}

func (vm *Engine) opCheckSig(verify bool) error {
	pubKeyBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	fullSig, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	subScript := vm.subScript()
	valid := false
	if len(fullSig) > 0 {
		sigBytes, hashType, err := parseSignature(fullSig)
		if err != nil {
			return err
		}
		valid, err = vm.verifySignature(sigBytes, pubKeyBytes, subScript, hashType)
		if err != nil {
			return err
		}
	}
	if !valid && vm.flags.HasNullFail() && len(fullSig) > 0 {
		return scriptError(ErrNullFail, "signature not empty on failed checksig")
	}
	if verify {
		if !valid {
			return scriptError(ErrVerify, "CHECKSIGVERIFY failed")
		}
		return nil
	}
	vm.dstack.PushBool(valid)
	return nil
}

func (vm *Engine) opCheckMultiSig(verify bool) error {
	numKeys, err := vm.dstack.PopInt(defaultScriptNumLen)
	if err != nil {
		return err
	}
	numPubKeys := int(numKeys.Int32())
	if numPubKeys < 0 || numPubKeys > maxPubKeysPerMultiSig {
		return scriptError(ErrInvalidStackOperation, "too many pubkeys in CHECKMULTISIG")
	}

	pubKeys := make([][]byte, numPubKeys)
	for i := 0; i < numPubKeys; i++ {
		pk, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		pubKeys[i] = pk
	}

	numSigsNum, err := vm.dstack.PopInt(defaultScriptNumLen)
	if err != nil {
		return err
	}
	numSigs := int(numSigsNum.Int32())
	if numSigs < 0 || numSigs > numPubKeys {
		return scriptError(ErrInvalidStackOperation, "invalid CHECKMULTISIG signature count")
	}

	sigs := make([][]byte, numSigs)
	for i := 0; i < numSigs; i++ {
		s, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		sigs[i] = s
	}

	// The historical off-by-one dummy element.
	dummy, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	if vm.flags.HasStrictEncoding() && len(dummy) != 0 {
		return scriptError(ErrSigNullDummy, "multisig dummy element not empty")
	}

	subScript := vm.subScript()

	success := true
	pubKeyIdx := 0
	sigIdx := 0
	for sigIdx < numSigs {
		if numSigs-sigIdx > numPubKeys-pubKeyIdx {
			success = false
			break
		}
		if len(sigs[sigIdx]) == 0 {
			pubKeyIdx++
			continue
		}
		sigBytes, hashType, err := parseSignature(sigs[sigIdx])
		if err != nil {
			return err
		}
		valid, err := vm.verifySignature(sigBytes, pubKeys[pubKeyIdx], subScript, hashType)
		if err != nil {
			return err
		}
		if valid {
			sigIdx++
		}
		pubKeyIdx++
	}
	if sigIdx < numSigs {
		success = false
	}

	if !success && vm.flags.HasNullFail() {
		for _, s := range sigs {
			if len(s) != 0 {
				return scriptError(ErrNullFail, "signature not empty on failed multisig")
			}
		}
	}

	if verify {
		if !success {
			return scriptError(ErrVerify, "CHECKMULTISIGVERIFY failed")
		}
		return nil
	}
	vm.dstack.PushBool(success)
	return nil
}

func (vm *Engine) opCheckDataSig(verify bool) error {
	if !vm.flags.HasCheckDataSig() {
		return scriptError(ErrReservedOpcode, "CHECKDATASIG not enabled")
	}

	pubKeyBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	msg, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	sigBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	if len(sigBytes) > 0 {
		if err := checkSignatureEncoding(sigBytes, vm.flags); err != nil {
			return err
		}
		if err := checkPubKeyEncoding(pubKeyBytes, vm.flags); err != nil {
			return err
		}
	}

	valid := false
	if len(sigBytes) > 0 {
		pubKey, perr := secp256k1.ParsePubKey(pubKeyBytes)
		sig, serr := ecdsa.ParseDERSignature(sigBytes)
		if perr == nil && serr == nil {
			// spec.md §4.C: OP_CHECKDATASIG verifies against sha256(msg), a
			// single hash round — not the double-SHA-256 used for txids.
			msgHash := chainhash.Sha256(msg)
			valid = sig.Verify(msgHash[:], pubKey)
		}
	}
	if !valid && vm.flags.HasNullFail() && len(sigBytes) > 0 {
		return scriptError(ErrNullFail, "signature not empty on failed checkdatasig")
	}
	if verify {
		if !valid {
			return scriptError(ErrCheckDataSigVerify, "CHECKDATASIGVERIFY failed")
		}
		return nil
	}
	vm.dstack.PushBool(valid)
	return nil
}
