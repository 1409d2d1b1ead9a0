// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "encoding/binary"

// maxScriptSize is the maximum allowed length of a raw script, per spec.md
// §4.C's MAX_SCRIPT_SIZE.
const maxScriptSize = 10000

// parsedOpcode represents an opcode that has been parsed and includes any
// potential data associated with it.
type parsedOpcode struct {
	opcode Opcode
	data   []byte
}

// isDisabled returns true if the opcode is one that has been disabled and
// thus is always bad to see in the instruction stream, barring the
// cash-specific opcodes spec.md §4.C re-enables.
func (pop *parsedOpcode) isDisabled() bool {
	return disabledOpcodes[pop.opcode]
}

// alwaysIllegal returns true if the opcode fails whenever it is executed.
// executeScript consults it only for opcodes on an executed branch, so such
// an opcode on a non-taken branch does not fail the script.
func (pop *parsedOpcode) alwaysIllegal() bool {
	switch pop.opcode {
	case OP_RETURN:
		return false // OP_RETURN is legal but immediately fails execution.
	}
	return pop.opcode == OP_RESERVED
}

// bytes returns any data associated with the opcode.
func (pop *parsedOpcode) bytes() []byte {
	return pop.data
}

// parseScript preparses the script in bytes into a list of parsed opcodes
// while applying a few sanity checks, per spec.md §4.C.
func parseScript(script []byte) ([]parsedOpcode, error) {
	if len(script) > maxScriptSize {
		return nil, scriptError(ErrScriptSize, "script too long")
	}

	var retScript []parsedOpcode
	for i := 0; i < len(script); {
		op := Opcode(script[i])
		pop := parsedOpcode{opcode: op}

		switch {
		case op == OP_0:
			pop.data = nil
			i++
		case op < OP_PUSHDATA1:
			// Direct push of op bytes of data.
			n := int(op)
			if i+1+n > len(script) {
				return nil, scriptError(ErrPushSize, "push data exceeds script length")
			}
			pop.data = script[i+1 : i+1+n]
			i += 1 + n
		case op == OP_PUSHDATA1:
			if i+2 > len(script) {
				return nil, scriptError(ErrPushSize, "not enough data for OP_PUSHDATA1 length")
			}
			n := int(script[i+1])
			if i+2+n > len(script) {
				return nil, scriptError(ErrPushSize, "push data exceeds script length")
			}
			pop.data = script[i+2 : i+2+n]
			i += 2 + n
		case op == OP_PUSHDATA2:
			if i+3 > len(script) {
				return nil, scriptError(ErrPushSize, "not enough data for OP_PUSHDATA2 length")
			}
			n := int(binary.LittleEndian.Uint16(script[i+1 : i+3]))
			if i+3+n > len(script) {
				return nil, scriptError(ErrPushSize, "push data exceeds script length")
			}
			pop.data = script[i+3 : i+3+n]
			i += 3 + n
		case op == OP_PUSHDATA4:
			if i+5 > len(script) {
				return nil, scriptError(ErrPushSize, "not enough data for OP_PUSHDATA4 length")
			}
			n := int(binary.LittleEndian.Uint32(script[i+1 : i+5]))
			if i+5+n > len(script) {
				return nil, scriptError(ErrPushSize, "push data exceeds script length")
			}
			pop.data = script[i+5 : i+5+n]
			i += 5 + n
		default:
			i++
		}

		if len(pop.data) > maxScriptElementSize {
			return nil, scriptError(ErrPushSize, "element size exceeds max allowed size")
		}

		retScript = append(retScript, pop)
	}
	return retScript, nil
}

// IsPushOnlyScript reports whether script only contains data-push opcodes,
// the shape required of every scriptSig per spec.md §4.C's SigPushOnly rule.
func IsPushOnlyScript(script []byte) bool {
	pops, err := parseScript(script)
	if err != nil {
		return false
	}
	for _, pop := range pops {
		if pop.opcode > OP_16 {
			return false
		}
	}
	return true
}

// isSmallInt returns whether the opcode is considered a small integer, which
// is an OP_0, or OP_1 through OP_16.
func isSmallInt(op Opcode) bool {
	return op == OP_0 || (op >= OP_1 && op <= OP_16)
}

// asSmallInt returns the passed opcode, which must be true according to
// isSmallInt(), as an integer.
func asSmallInt(op Opcode) int {
	if op == OP_0 {
		return 0
	}
	return int(op - (OP_1 - 1))
}

// ScriptClass enumerates the recognized standard script shapes, used by
// standard.go's classification and sigop-counting helpers.
type ScriptClass int

const (
	// NonStandardTy marks a script that does not match a recognized
	// template.
	NonStandardTy ScriptClass = iota
	PubKeyHashTy
	ScriptHashTy
	PubKeyTy
	MultiSigTy
	NullDataTy
)
