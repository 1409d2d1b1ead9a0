// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"testing"

	"github.com/bchcore/bchd/blockchain"
	"github.com/bchcore/bchd/wire"
)

func TestEncodeDecodeUtxoEntryRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		value      int64
		pkScript   []byte
		height     int64
		isCoinBase bool
	}{
		{"ordinary output", 5000000000, []byte{0x76, 0xa9, 0x14}, 1, false},
		{"coinbase output", 1250000000, []byte{0x51}, 42, true},
		{"empty script", 0, nil, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entry := blockchain.NewUtxoEntry(
				wire.TxOut{Value: tc.value, PkScript: tc.pkScript}, tc.height, tc.isCoinBase)

			encoded := encodeUtxoEntry(entry)
			decoded, err := decodeUtxoEntry(encoded)
			if err != nil {
				t.Fatalf("decodeUtxoEntry: %v", err)
			}

			if decoded.Amount() != tc.value {
				t.Errorf("Amount = %d, want %d", decoded.Amount(), tc.value)
			}
			if decoded.BlockHeight() != tc.height {
				t.Errorf("BlockHeight = %d, want %d", decoded.BlockHeight(), tc.height)
			}
			if decoded.IsCoinBase() != tc.isCoinBase {
				t.Errorf("IsCoinBase = %v, want %v", decoded.IsCoinBase(), tc.isCoinBase)
			}
			if !bytes.Equal(decoded.PkScript(), tc.pkScript) && len(tc.pkScript) > 0 {
				t.Errorf("PkScript = %x, want %x", decoded.PkScript(), tc.pkScript)
			}
		})
	}
}

func TestEncodeDecodeUndoRoundTrip(t *testing.T) {
	coinbaseEntry := blockchain.NewUtxoEntry(wire.TxOut{Value: 100, PkScript: []byte{0x51}}, 9, true)
	spentEntry := blockchain.NewUtxoEntry(wire.TxOut{Value: 250, PkScript: []byte{0x52, 0x53}}, 10, false)

	undo := &blockchain.BlockUndo{
		TxUndo: [][]*blockchain.UtxoEntry{
			{}, // coinbase tx: no inputs to restore
			{spentEntry, coinbaseEntry},
		},
	}

	encoded := encodeUndo(undo)
	decoded, err := decodeUndo(encoded)
	if err != nil {
		t.Fatalf("decodeUndo: %v", err)
	}

	if len(decoded.TxUndo) != len(undo.TxUndo) {
		t.Fatalf("TxUndo length = %d, want %d", len(decoded.TxUndo), len(undo.TxUndo))
	}
	if len(decoded.TxUndo[0]) != 0 {
		t.Fatalf("coinbase TxUndo entry should stay empty, got %d entries", len(decoded.TxUndo[0]))
	}
	if len(decoded.TxUndo[1]) != 2 {
		t.Fatalf("TxUndo[1] length = %d, want 2", len(decoded.TxUndo[1]))
	}
	if decoded.TxUndo[1][0].Amount() != spentEntry.Amount() {
		t.Errorf("TxUndo[1][0].Amount = %d, want %d", decoded.TxUndo[1][0].Amount(), spentEntry.Amount())
	}
	if decoded.TxUndo[1][1].Amount() != coinbaseEntry.Amount() || !decoded.TxUndo[1][1].IsCoinBase() {
		t.Errorf("TxUndo[1][1] = %+v, want a coinbase entry worth %d", decoded.TxUndo[1][1], coinbaseEntry.Amount())
	}
}
