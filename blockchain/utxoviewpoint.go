// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/bchcore/bchd/wire"
)

// UtxoEntry houses details about an individual unspent transaction output,
// per spec.md §3: the output itself, the height of the transaction that
// created it, and whether that transaction was a coinbase (for the
// maturity rule).
type UtxoEntry struct {
	output      wire.TxOut
	blockHeight int64
	packedFlags txoFlags
}

// txoFlags bundle the per-entry boolean state the view tracks alongside the
// output itself, mirroring the teacher's compact bitfield idiom rather than
// a handful of separate bool fields.
type txoFlags uint8

const (
	// tfCoinBase marks an entry as having originated in a coinbase
	// transaction.
	tfCoinBase txoFlags = 1 << iota

	// tfSpent marks an entry as having been spent within the view's scope.
	// Spent entries are retained (rather than deleted outright) until the
	// view is pruned so disconnecting a block can restore them from undo
	// data without a store round-trip.
	tfSpent

	// tfModified marks an entry as having been modified since it was loaded
	// from the backing store, so only dirty entries need to be written back
	// when the view is committed.
	tfModified
)

// IsCoinBase returns whether the output was contained in a coinbase
// transaction.
func (entry *UtxoEntry) IsCoinBase() bool {
	return entry.packedFlags&tfCoinBase == tfCoinBase
}

// BlockHeight returns the height of the block containing the output.
func (entry *UtxoEntry) BlockHeight() int64 {
	return entry.blockHeight
}

// IsSpent returns whether the output has been spent.
func (entry *UtxoEntry) IsSpent() bool {
	return entry.packedFlags&tfSpent == tfSpent
}

// Amount returns the amount of the output.
func (entry *UtxoEntry) Amount() int64 {
	return entry.output.Value
}

// PkScript returns the public key script for the output.
func (entry *UtxoEntry) PkScript() []byte {
	return entry.output.PkScript
}

// Spend marks the output as spent, per the transition a CoinView overlay
// performs in place of deleting the underlying store record immediately, so
// a reorg's undo pass can un-spend it cheaply.
func (entry *UtxoEntry) Spend() {
	if entry.IsSpent() {
		return
	}
	entry.packedFlags |= tfSpent | tfModified
}

// Clone returns a copy of the entry, used by SpendEntry to keep the
// pre-spend state as undo data.
func (entry *UtxoEntry) Clone() *UtxoEntry {
	if entry == nil {
		return nil
	}
	return &UtxoEntry{
		output:      entry.output,
		blockHeight: entry.blockHeight,
		packedFlags: entry.packedFlags,
	}
}

// NewUtxoEntry returns a new unspent transaction output entry for output at
// blockHeight, marked as a coinbase output if isCoinBase is set.
func NewUtxoEntry(output wire.TxOut, blockHeight int64, isCoinBase bool) *UtxoEntry {
	var flags txoFlags
	if isCoinBase {
		flags |= tfCoinBase
	}
	return &UtxoEntry{
		output:      output,
		blockHeight: blockHeight,
		packedFlags: flags,
	}
}

// UtxoViewpoint is the in-memory overlay described in spec.md §3 as
// "CoinView": a mapping from OutPoint to UtxoEntry used to make intra-block
// spends visible to later inputs of the same block before anything is
// written to the permanent UTXO set.
type UtxoViewpoint struct {
	entries map[wire.OutPoint]*UtxoEntry
}

// NewUtxoViewpoint returns a new, empty UTXO view.
func NewUtxoViewpoint() *UtxoViewpoint {
	return &UtxoViewpoint{entries: make(map[wire.OutPoint]*UtxoEntry)}
}

// Entries returns the underlying map of outpoints to their UTXO entries,
// exposed for callers (such as the store's commit path) that need to sweep
// the full modified set.
func (view *UtxoViewpoint) Entries() map[wire.OutPoint]*UtxoEntry {
	return view.entries
}

// LookupEntry returns information about a given transaction output
// according to the current state of the view: nil if the output is
// unknown to the view or has been spent within its scope.
func (view *UtxoViewpoint) LookupEntry(outpoint wire.OutPoint) *UtxoEntry {
	entry := view.entries[outpoint]
	if entry == nil || entry.IsSpent() {
		return nil
	}
	return entry
}

// addTxOut adds the specified output to the view as an unspent entry if it
// is not already present; an existing entry is left untouched.
func (view *UtxoViewpoint) addTxOut(outpoint wire.OutPoint, txOut *wire.TxOut, isCoinBase bool, blockHeight int64) {
	if txOut == nil {
		return
	}
	if _, ok := view.entries[outpoint]; ok {
		return
	}
	view.entries[outpoint] = NewUtxoEntry(*txOut, blockHeight, isCoinBase)
}

// AddTxOuts adds every output of tx to the view, overwriting any existing
// entries for the same outpoints.  Called when a transaction's outputs
// become spendable as the block containing it is connected.
//
// If an existing entry was already spent -- an earlier-processed
// transaction in the same block consumed it before this, later, call
// finalized it -- the spent mark survives the overwrite.  Canonical
// transaction ordering only guarantees ascending txid order, not
// parent-before-child order, so a child can be finalized into the view
// ahead of its own parent.
func (view *UtxoViewpoint) AddTxOuts(tx *wire.MsgTx, blockHeight int64) {
	isCoinBase := tx.IsCoinBase()
	txHash := tx.TxHash()
	for txOutIdx, txOut := range tx.TxOut {
		outpoint := wire.OutPoint{Hash: txHash, Index: uint32(txOutIdx)}
		entry := view.entries[outpoint]
		if entry != nil {
			wasSpent := entry.IsSpent()
			entry.output = *txOut
			entry.blockHeight = blockHeight
			entry.packedFlags = tfModified
			if isCoinBase {
				entry.packedFlags |= tfCoinBase
			}
			if wasSpent {
				entry.packedFlags |= tfSpent
			}
			continue
		}
		view.entries[outpoint] = NewUtxoEntry(*txOut, blockHeight, isCoinBase)
	}
}

// SpendEntry marks the entry for outpoint as spent, returning the entry as
// it stood immediately before the spend so the caller can build undo data.
func (view *UtxoViewpoint) SpendEntry(outpoint wire.OutPoint) *UtxoEntry {
	entry, ok := view.entries[outpoint]
	if !ok || entry.IsSpent() {
		return nil
	}
	undo := entry.Clone()
	entry.Spend()
	return undo
}

// RestoreSpentEntry reinstates outpoint with the given entry, undoing a
// prior SpendEntry call.  Used while disconnecting a block.
func (view *UtxoViewpoint) RestoreSpentEntry(outpoint wire.OutPoint, entry *UtxoEntry) {
	view.entries[outpoint] = entry
}

// RemoveEntry removes outpoint from the view outright, used once a spent
// entry has been durably committed to the backing store and no longer
// needs to be retained for undo purposes.
func (view *UtxoViewpoint) RemoveEntry(outpoint wire.OutPoint) {
	delete(view.entries, outpoint)
}

// connectTransaction updates the view to reflect tx having been connected
// to the main chain at blockHeight: every referenced input is marked spent
// (returning its pre-spend value as undo data) and every output becomes a
// new unspent entry.  A non-coinbase transaction's inputs must already be
// present in the view (fetched via FetchInputUtxos) or this panics, since
// that indicates a bug in the caller rather than a consensus failure.
func (view *UtxoViewpoint) connectTransaction(tx *wire.MsgTx, blockHeight int64) []*UtxoEntry {
	var undo []*UtxoEntry
	if !tx.IsCoinBase() {
		undo = make([]*UtxoEntry, 0, len(tx.TxIn))
		for _, txIn := range tx.TxIn {
			spent := view.SpendEntry(txIn.PreviousOutPoint)
			if spent == nil {
				panic("connectTransaction: input not present in view")
			}
			undo = append(undo, spent)
		}
	}
	view.AddTxOuts(tx, blockHeight)
	return undo
}

// disconnectTransaction reverses connectTransaction: every output tx
// created is tombstoned (recorded as a nil entry, rather than deleted from
// the map outright) so a caller committing this view to the permanent UTXO
// set can tell "never touch this outpoint" apart from "delete this
// outpoint" by checking for a nil value in Entries(), and every input is
// restored from undo, which must be in the same order connectTransaction
// returned it.
func (view *UtxoViewpoint) disconnectTransaction(tx *wire.MsgTx, undo []*UtxoEntry) {
	txHash := tx.TxHash()
	for txOutIdx := range tx.TxOut {
		view.entries[wire.OutPoint{Hash: txHash, Index: uint32(txOutIdx)}] = nil
	}
	if tx.IsCoinBase() {
		return
	}
	for i, txIn := range tx.TxIn {
		view.RestoreSpentEntry(txIn.PreviousOutPoint, undo[i])
	}
}

// FetchInputUtxos fetches unspent transaction output data about the
// provided block's input transactions into the view: every output the
// block itself creates is added first (at blockHeight, the height the
// block will occupy once connected), then every remaining unresolved
// input is fetched from source (the permanent UTXO store).
//
// Canonical transaction ordering (spec.md §4.F) only guarantees ascending
// txid order, not parent-before-child order, so a transaction spending
// another transaction's output from later in the very same block is
// legal; pre-adding every in-block output up front -- rather than relying
// on an earlier loop iteration to have added it -- is what makes such a
// spend resolve during the per-input checks that run before any
// transaction is connected, mirroring Bitcoin ABC's "add all block
// outputs before checking any input" approach to a CTOR-ordered block.
func (view *UtxoViewpoint) FetchInputUtxos(block *wire.MsgBlock, source UtxoFetcher, blockHeight int64) error {
	for _, tx := range block.Transactions {
		view.AddTxOuts(tx, blockHeight)
	}

	for _, tx := range block.Transactions {
		if tx.IsCoinBase() {
			continue
		}
		for _, txIn := range tx.TxIn {
			outpoint := txIn.PreviousOutPoint
			if _, ok := view.entries[outpoint]; ok {
				continue
			}
			entry, err := source.FetchUtxoEntry(outpoint)
			if err != nil {
				return err
			}
			if entry != nil {
				view.entries[outpoint] = entry
			}
		}
	}
	return nil
}

// UtxoFetcher is the narrow read interface the view needs from the
// permanent UTXO set, implemented by database.Store.
type UtxoFetcher interface {
	FetchUtxoEntry(outpoint wire.OutPoint) (*UtxoEntry, error)
}
