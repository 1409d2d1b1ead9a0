// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bchcore/bchd/blockchain"
	"github.com/bchcore/bchd/wire"
)

// encodeUtxoEntry serializes a UTXO entry for storage under prefixUtxo:
// coinbase flag, block height, amount, and pk script, in that fixed order.
// This is an internal storage format, not a consensus wire encoding, so it
// reuses wire's exported varint helpers rather than mirroring the network
// transaction codec byte-for-byte.
func encodeUtxoEntry(entry *blockchain.UtxoEntry) []byte {
	var buf bytes.Buffer
	var flags byte
	if entry.IsCoinBase() {
		flags = 1
	}
	buf.WriteByte(flags)
	_ = binary.Write(&buf, binary.BigEndian, entry.BlockHeight())
	_ = binary.Write(&buf, binary.BigEndian, entry.Amount())
	_ = wire.WriteVarBytes(&buf, entry.PkScript())
	return buf.Bytes()
}

// decodeUtxoEntry reverses encodeUtxoEntry.
func decodeUtxoEntry(data []byte) (*blockchain.UtxoEntry, error) {
	r := bytes.NewReader(data)
	flags, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("decodeUtxoEntry: %w", err)
	}
	var height, amount int64
	if err := binary.Read(r, binary.BigEndian, &height); err != nil {
		return nil, fmt.Errorf("decodeUtxoEntry: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &amount); err != nil {
		return nil, fmt.Errorf("decodeUtxoEntry: %w", err)
	}
	pkScript, err := wire.ReadVarBytes(r, wire.MaxTxSize, "utxo entry pkScript")
	if err != nil {
		return nil, fmt.Errorf("decodeUtxoEntry: %w", err)
	}
	return blockchain.NewUtxoEntry(wire.TxOut{Value: amount, PkScript: pkScript}, height, flags&1 != 0), nil
}

// encodeUndo serializes a BlockUndo as a varint transaction count followed
// by, per transaction, a varint input count and that many encoded entries
// (a coinbase transaction, which has no inputs to restore, encodes as 0).
func encodeUndo(undo *blockchain.BlockUndo) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarInt(&buf, uint64(len(undo.TxUndo)))
	for _, txUndo := range undo.TxUndo {
		_ = wire.WriteVarInt(&buf, uint64(len(txUndo)))
		for _, entry := range txUndo {
			_ = wire.WriteVarBytes(&buf, encodeUtxoEntry(entry))
		}
	}
	return buf.Bytes()
}

// decodeUndo reverses encodeUndo.
func decodeUndo(data []byte) (*blockchain.BlockUndo, error) {
	r := bytes.NewReader(data)
	txCount, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("decodeUndo: %w", err)
	}

	undo := &blockchain.BlockUndo{TxUndo: make([][]*blockchain.UtxoEntry, txCount)}
	for i := range undo.TxUndo {
		inCount, err := wire.ReadVarInt(r)
		if err != nil {
			return nil, fmt.Errorf("decodeUndo: %w", err)
		}
		entries := make([]*blockchain.UtxoEntry, inCount)
		for j := range entries {
			raw, err := wire.ReadVarBytes(r, wire.MaxTxSize, "undo entry")
			if err != nil {
				return nil, fmt.Errorf("decodeUndo: %w", err)
			}
			entry, err := decodeUtxoEntry(raw)
			if err != nil {
				return nil, err
			}
			entries[j] = entry
		}
		undo.TxUndo[i] = entries
	}
	return undo, nil
}
