// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// ErrScriptNotCanonical is returned when a script element could not be
// pushed in its canonical (shortest) form, e.g. because the caller asked
// for a specific push opcode that the data's length does not match.
type ErrScriptNotCanonical string

// Error implements the error interface.
func (e ErrScriptNotCanonical) Error() string {
	return string(e)
}

// ScriptBuilder provides a facility for building custom scripts.  It allows
// the ability to push opcodes, ints, and data while respecting canonical
// encoding, per spec.md §4.A's "stable serialization" requirement extended
// to script construction.  Each method returns the builder so calls may be
// chained.
type ScriptBuilder struct {
	script []byte
	err    error
}

// NewScriptBuilder returns a new instance of a script builder.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{
		script: make([]byte, 0, 32),
	}
}

// AddOp pushes the passed opcode to the end of the script.
func (b *ScriptBuilder) AddOp(opcode Opcode) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	if len(b.script)+1 > maxScriptSize {
		str := fmt.Sprintf("adding an opcode would exceed the maximum "+
			"allowed canonical script length of %d", maxScriptSize)
		b.err = ErrScriptNotCanonical(str)
		return b
	}

	b.script = append(b.script, byte(opcode))
	return b
}

// addData is the internal function used to add the passed byte slice to the
// script, encoded using the canonical push opcode for its length.
func (b *ScriptBuilder) addData(data []byte) *ScriptBuilder {
	dataLen := len(data)
	switch {
	case dataLen == 0 || (dataLen == 1 && data[0] == 0):
		b.script = append(b.script, byte(OP_0))

	case dataLen == 1 && data[0] <= 16:
		b.script = append(b.script, byte(asSmallIntOpcode(int64(data[0]))))

	case dataLen == 1 && data[0] == 0x81:
		b.script = append(b.script, byte(OP_1NEGATE))

	case dataLen < int(OP_PUSHDATA1):
		b.script = append(b.script, byte(dataLen))
		b.script = append(b.script, data...)

	case dataLen <= 0xff:
		b.script = append(b.script, byte(OP_PUSHDATA1), byte(dataLen))
		b.script = append(b.script, data...)

	case dataLen <= 0xffff:
		buf := make([]byte, 2)
		buf[0] = byte(dataLen)
		buf[1] = byte(dataLen >> 8)
		b.script = append(b.script, byte(OP_PUSHDATA2))
		b.script = append(b.script, buf...)
		b.script = append(b.script, data...)

	default:
		buf := make([]byte, 4)
		buf[0] = byte(dataLen)
		buf[1] = byte(dataLen >> 8)
		buf[2] = byte(dataLen >> 16)
		buf[3] = byte(dataLen >> 24)
		b.script = append(b.script, byte(OP_PUSHDATA4))
		b.script = append(b.script, buf...)
		b.script = append(b.script, data...)
	}

	return b
}

// asSmallIntOpcode maps 0-16 to the OP_0/OP_1..OP_16 small-integer opcodes.
func asSmallIntOpcode(n int64) Opcode {
	if n == 0 {
		return OP_0
	}
	return Opcode(int64(OP_1) + n - 1)
}

// AddData pushes the passed data to the end of the script, using the
// smallest possible canonical push opcode (per spec.md §4.C's minimality
// expectation for well-formed scripts).
func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	if len(data) > maxScriptElementSize {
		str := fmt.Sprintf("adding a data element of %d bytes would "+
			"exceed the maximum allowed script push of %d bytes",
			len(data), maxScriptElementSize)
		b.err = ErrScriptNotCanonical(str)
		return b
	}

	if len(b.script)+len(data)+5 > maxScriptSize {
		str := fmt.Sprintf("adding a data element would exceed the "+
			"maximum allowed canonical script length of %d", maxScriptSize)
		b.err = ErrScriptNotCanonical(str)
		return b
	}

	return b.addData(data)
}

// AddInt64 pushes the passed integer onto the script, choosing OP_0 /
// OP_1NEGATE / OP_1..OP_16 where possible and falling back to the minimal
// ScriptNum encoding otherwise.
func (b *ScriptBuilder) AddInt64(val int64) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	if val == 0 {
		b.script = append(b.script, byte(OP_0))
		return b
	}
	if val == -1 || (val >= 1 && val <= 16) {
		b.script = append(b.script, byte(asSmallIntOpcode(val)))
		return b
	}

	return b.addData(scriptNum(val).Bytes())
}

// Script returns the currently built script, or the first error encountered
// while building it.
func (b *ScriptBuilder) Script() ([]byte, error) {
	return b.script, b.err
}
