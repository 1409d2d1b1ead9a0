// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// binarySerializerPutUint8 and binarySerializerUint8 write and read a single
// byte to and from an io.Writer and io.Reader.
//
// In the teacher, this lived behind a richer binarySerializer type; this repo
// keeps the two helpers it actually needs without the pooling machinery,
// since the script/transaction codec is not on a hot per-connection path the
// way the original wire protocol implementation's was.
func binarySerializerPutUint8(w io.Writer, val uint8) error {
	_, err := w.Write([]byte{val})
	return err
}

func binarySerializerUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64, per the wire varint encoding:
//
//	value < 0xfd            -> 1 byte
//	value <= math.MaxUint16  -> 0xfd followed by 2 bytes (LE)
//	value <= math.MaxUint32  -> 0xfe followed by 4 bytes (LE)
//	otherwise                -> 0xff followed by 8 bytes (LE)
func ReadVarInt(r io.Reader) (uint64, error) {
	discriminant, err := binarySerializerUint8(r)
	if err != nil {
		return 0, err
	}

	var rv uint64
	switch discriminant {
	case 0xff:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv = binary.LittleEndian.Uint64(buf[:])

		// The minimal encoding check is consensus critical: it closes off a
		// trivial malleability vector where the same integer can be encoded
		// multiple ways.
		if rv < 0x100000000 {
			return 0, messageError("ReadVarInt", "non-canonical varint")
		}

	case 0xfe:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv = uint64(binary.LittleEndian.Uint32(buf[:]))

		if rv < 0x10000 {
			return 0, messageError("ReadVarInt", "non-canonical varint")
		}

	case 0xfd:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv = uint64(binary.LittleEndian.Uint16(buf[:]))

		if rv < 0xfd {
			return 0, messageError("ReadVarInt", "non-canonical varint")
		}

	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// WriteVarInt serializes val to w using the variable length integer encoding
// described by ReadVarInt.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		return binarySerializerPutUint8(w, uint8(val))
	}

	if val <= 0xffff {
		if err := binarySerializerPutUint8(w, 0xfd); err != nil {
			return err
		}
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(val))
		_, err := w.Write(buf[:])
		return err
	}

	if val <= 0xffffffff {
		if err := binarySerializerPutUint8(w, 0xfe); err != nil {
			return err
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(val))
		_, err := w.Write(buf[:])
		return err
	}

	if err := binarySerializerPutUint8(w, 0xff); err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a variable length byte array.  A maxAllowed parameter is
// supplied to ensure that a malicious peer cannot trigger allocation of an
// unreasonably sized buffer.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		str := fmt.Sprintf("%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxAllowed)
		return nil, messageError("ReadVarBytes", str)
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array to w as a varint
// containing the number of bytes, followed by the bytes themselves.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readUint32LE(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeUint32LE(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readInt32LE(r io.Reader) (int32, error) {
	v, err := readUint32LE(r)
	return int32(v), err
}

func writeInt32LE(w io.Writer, v int32) error {
	return writeUint32LE(w, uint32(v))
}

func readInt64LE(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func writeInt64LE(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

// messageError creates a MessageError given a set of arguments, mirroring
// the teacher's wire.messageError helper.
func messageError(op, str string) *MessageError {
	return &MessageError{Op: op, Description: str}
}

// MessageError describes an issue with a message.
//
// An example of some potential issues are messages from the wrong bitcoin
// network, invalid commands, mismatched checksums, and exceeding max
// payloads.
type MessageError struct {
	Op          string
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e *MessageError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Description)
	}
	return e.Description
}
