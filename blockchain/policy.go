// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/bchcore/bchd/txscript"
	"github.com/bchcore/bchd/wire"
)

// MaxBlockSigOpsPerMB is the number of signature operations permitted per
// megabyte of serialized block size, per spec.md §4.D.
const MaxBlockSigOpsPerMB = 20_000

// MaxBlockSigOps returns the signature-operation budget for a block of the
// given serialized size, per spec.md §4.D: ceil(size_MB) *
// MaxBlockSigOpsPerMB.
func MaxBlockSigOps(serializedSizeBytes int) int64 {
	sizeMB := (int64(serializedSizeBytes) + (1_000_000 - 1)) / 1_000_000
	if sizeMB < 1 {
		sizeMB = 1
	}
	return sizeMB * MaxBlockSigOpsPerMB
}

// CountLegacySigOps returns the number of signature operations tx would
// execute counted without inspecting any P2SH redeem script (the "legacy
// count" of spec.md §4.D), summing inputs and outputs.
func CountLegacySigOps(tx *wire.MsgTx) int {
	n := 0
	for _, txIn := range tx.TxIn {
		n += txscript.GetSigOpCount(txIn.SignatureScript)
	}
	for _, txOut := range tx.TxOut {
		n += txscript.GetSigOpCount(txOut.PkScript)
	}
	return n
}

// CountP2SHSigOps returns the accurate number of signature operations tx's
// inputs execute, crediting each P2SH input with its redeem script's real
// sigop count instead of the conservative legacy estimate, per spec.md
// §4.D's "P2SH accurate count when VERIFY_P2SH is set".  utxoView must
// already have every one of tx's non-coinbase inputs resolved (see
// UtxoViewpoint.FetchInputUtxos).
func CountP2SHSigOps(tx *wire.MsgTx, view *UtxoViewpoint) (int, error) {
	if tx.IsCoinBase() {
		return 0, nil
	}

	n := 0
	for txInIdx, txIn := range tx.TxIn {
		entry := view.LookupEntry(txIn.PreviousOutPoint)
		if entry == nil {
			return 0, ruleError(ErrMissingTxOut, fmt.Sprintf(
				"output %v referenced from transaction %s input %d either "+
					"does not exist or has already been spent",
				txIn.PreviousOutPoint, tx.TxHash(), txInIdx))
		}
		pkScript := entry.PkScript()
		if txscript.GetScriptClass(pkScript) != txscript.ScriptHashTy {
			continue
		}
		n += txscript.GetPreciseSigOpCount(txIn.SignatureScript, pkScript, true)
	}
	return n, nil
}
