// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain implements the chain state machine described in
// spec.md §4.E: header validation, the Bitcoin Cash difficulty-adjustment
// algorithm, magnetic-anomaly activation, reorganization, UTXO set updates,
// and coinbase maturity, on top of the transaction/script primitives in
// chainhash, wire, and txscript.
package blockchain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bchcore/bchd/chaincfg"
	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/txscript"
	"github.com/bchcore/bchd/wire"
)

// BlockUndo holds the per-transaction spent-output records needed to
// reverse a single ConnectBlock call, per spec.md §4.E's reorg invariant
// ("undo records are sufficient to reverse any single connect").  TxUndo[i]
// parallels block.Transactions[i]; a coinbase transaction's entry is
// always empty since it has no inputs to restore.
type BlockUndo struct {
	TxUndo [][]*UtxoEntry
}

// ChainStore is the persistence surface spec.md §6 calls "Store", narrowed
// to exactly what BlockChain needs: resolving a UTXO, reading/writing block
// bodies, reading/writing undo data, and committing the atomic state
// transition of a single connect or disconnect.  database.Store implements
// this against github.com/syndtr/goleveldb; tests may implement it in
// memory.
type ChainStore interface {
	UtxoFetcher

	// FetchBlock returns the full block body for hash.
	FetchBlock(hash *chainhash.Hash) (*wire.MsgBlock, error)

	// StoreBlock persists a block's body, addressable by its hash, ahead
	// of it being connected (or considered as a side-branch candidate).
	StoreBlock(block *wire.MsgBlock) error

	// FetchUndo returns the undo data previously stored for hash via
	// CommitConnect.
	FetchUndo(hash *chainhash.Hash) (*BlockUndo, error)

	// CommitConnect atomically applies view's changes to the permanent
	// UTXO set, records undo for hash, advances the main-chain pointer to
	// hash at height, and updates the tip pointer.
	CommitConnect(hash *chainhash.Hash, height int64, view *UtxoViewpoint, undo *BlockUndo) error

	// CommitDisconnect atomically applies view's changes (the reverse of a
	// prior connect) to the permanent UTXO set, retracts the main-chain
	// pointer for hash, and moves the tip pointer back to prevHash.
	CommitDisconnect(hash *chainhash.Hash, prevHash *chainhash.Hash, view *UtxoViewpoint) error

	// Tip returns the hash and height of the store's last committed tip,
	// or (nil, 0, nil) if the store has never been initialized.
	Tip() (*chainhash.Hash, int64, error)
}

// BestState houses the tip information a caller asking "what is the best
// chain right now" needs, a stable snapshot per spec.md §5's "read-only
// operations... may proceed concurrently with other readers".
type BestState struct {
	Hash       chainhash.Hash
	Height     int64
	Bits       uint32
	MedianTime time.Time
}

// BlockChain is the chain state machine of spec.md §4.E.  Every mutating
// method (ProcessBlock) acquires chainLock exclusively; read-only queries
// (BestSnapshot, CalcNextRequiredDifficulty's callers) take it for reading
// only, per spec.md §5's single chain lock.
type BlockChain struct {
	// immutable after New
	params        *chaincfg.Params
	store         ChainStore
	sigCache      *txscript.SigCache
	inputVerifier InputVerifier
	now           func() time.Time

	chainLock sync.RWMutex
	index     *blockIndex
	tip       *blockNode

	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

// Config bundles BlockChain's construction-time dependencies.
type Config struct {
	Params        *chaincfg.Params
	Store         ChainStore
	SigCache      *txscript.SigCache
	InputVerifier InputVerifier

	// Now overrides time.Now for tests; nil uses the real wall clock.
	Now func() time.Time
}

// New returns a BlockChain backed by cfg.Store, initializing the store with
// the network's genesis block if it has never been committed to before.
func New(cfg *Config) (*BlockChain, error) {
	if cfg.InputVerifier == nil {
		cfg.InputVerifier = NewSequentialInputVerifier()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	b := &BlockChain{
		params:        cfg.Params,
		store:         cfg.Store,
		sigCache:      cfg.SigCache,
		inputVerifier: cfg.InputVerifier,
		now:           cfg.Now,
		index:         newBlockIndex(),
	}

	if err := b.initChainState(); err != nil {
		return nil, err
	}
	return b, nil
}

// initChainState loads the committed tip from the store, or (on a brand
// new store) connects the network's genesis block as the first entry.
func (b *BlockChain) initChainState() error {
	tipHash, tipHeight, err := b.store.Tip()
	if err != nil {
		return err
	}
	if tipHash == nil {
		return b.connectGenesisBlock()
	}

	// Rebuild the in-memory node chain back from the tip to genesis by
	// walking main-chain blocks out of the store.  Only main-chain blocks
	// are reloaded; side-chain nodes are not restored.
	node, err := b.loadNodeChain(tipHash, tipHeight)
	if err != nil {
		return err
	}
	b.tip = node
	return nil
}

// loadNodeChain reconstructs a blockNode chain ending at hash/height by
// reading block headers back from the store until genesis or an
// already-indexed ancestor is reached.
func (b *BlockChain) loadNodeChain(hash *chainhash.Hash, height int64) (*blockNode, error) {
	if node := b.index.LookupNode(hash); node != nil {
		return node, nil
	}

	block, err := b.store.FetchBlock(hash)
	if err != nil {
		return nil, err
	}

	var parent *blockNode
	if height > 0 {
		parent, err = b.loadNodeChain(&block.Header.PrevBlock, height-1)
		if err != nil {
			return nil, err
		}
	}

	node := newBlockNode(&block.Header, parent)
	node.status = statusDataStored | statusValid
	b.index.AddNode(node)
	return node, nil
}

// connectGenesisBlock sets up a brand new store with the network's
// genesis block as the sole entry and tip.  The genesis coinbase is never
// added to the UTXO set (it is conventionally unspendable), matching the
// historical exception every Bitcoin-derived implementation carries.
func (b *BlockChain) connectGenesisBlock() error {
	block := b.params.GenesisBlock
	node := newBlockNode(&block.Header, nil)
	node.status = statusDataStored | statusValid
	b.index.AddNode(node)
	b.tip = node

	if err := b.store.StoreBlock(block); err != nil {
		return err
	}
	emptyView := NewUtxoViewpoint()
	undo := &BlockUndo{TxUndo: make([][]*UtxoEntry, len(block.Transactions))}
	hash := block.BlockHash()
	return b.store.CommitConnect(&hash, 0, emptyView, undo)
}

// BestSnapshot returns a stable snapshot of the current best chain tip.
func (b *BlockChain) BestSnapshot() BestState {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	return BestState{
		Hash:       b.tip.hash,
		Height:     b.tip.height,
		Bits:       b.tip.bits,
		MedianTime: b.tip.CalcPastMedianTime(),
	}
}

// MiningTipInfo is the subset of tip state the mining package's assembler
// needs without depending on blockchain's unexported blockNode type.
type MiningTipInfo struct {
	Hash                  chainhash.Hash
	Height                int64
	Bits                  uint32
	MedianTime            time.Time
	MagneticAnomalyActive bool
}

// MiningTip returns the information the block assembler needs to build a
// template on top of the current best chain tip.
func (b *BlockChain) MiningTip() MiningTipInfo {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	return MiningTipInfo{
		Hash:                  b.tip.hash,
		Height:                b.tip.height,
		Bits:                  CalcNextRequiredDifficulty(b.tip, b.now(), b.params),
		MedianTime:            b.tip.CalcPastMedianTime(),
		MagneticAnomalyActive: calcDeploymentState(b.tip, b.params).magneticAnomalyActive,
	}
}

// FetchUtxoView returns a UtxoViewpoint with every entry the provided block
// requires pre-fetched from the store, for use by a preverify path (mining
// assembly's optional preverify, per spec.md §4.F) or a caller constructing
// a template.
func (b *BlockChain) FetchUtxoView(block *wire.MsgBlock) (*UtxoViewpoint, error) {
	b.chainLock.RLock()
	nextBlockHeight := b.tip.height + 1
	b.chainLock.RUnlock()

	view := NewUtxoViewpoint()
	if err := view.FetchInputUtxos(block, b.store, nextBlockHeight); err != nil {
		return nil, err
	}
	return view, nil
}

// Params returns the chain's consensus parameters.
func (b *BlockChain) Params() *chaincfg.Params {
	return b.params
}

// CheckConnectBlock runs the body, context, and per-input checks of
// spec.md §4.E's connection pipeline against block as a would-be
// extension of the current best tip, without storing the block or
// mutating any chain state.  It deliberately skips the proof-of-work
// check ProcessBlock applies, since it is meant for checking an unsolved
// block assembled by block assembly's optional preverify path (spec.md
// §4.F): "assembler bugs must abort, never produce an invalid block."
func (b *BlockChain) CheckConnectBlock(block *wire.MsgBlock) error {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	now := b.now()
	parent := b.tip

	blockTime := time.Unix(block.Header.Timestamp, 0)
	maxTimestamp := now.Add(MaxTimeOffsetSeconds * time.Second)
	if blockTime.After(maxTimestamp) {
		return ruleError(ErrTimeTooNew, "block timestamp is too far in the future")
	}
	if err := checkBlockContext(&block.Header, parent, b.params, now); err != nil {
		return err
	}

	deployment := calcDeploymentState(parent, b.params)
	if err := checkBlockSanity(block, deployment.magneticAnomalyActive); err != nil {
		return err
	}

	spendHeight := parent.height + 1
	view := NewUtxoViewpoint()
	if err := view.FetchInputUtxos(block, b.store, spendHeight); err != nil {
		return err
	}

	var totalFees int64
	for _, tx := range block.Transactions {
		fee, err := CheckTransactionInputs(tx, spendHeight, view, b.params)
		if err != nil {
			return err
		}
		totalFees += fee
	}

	if err := checkBlockSigOps(block, view); err != nil {
		return err
	}

	subsidy := b.params.CalcBlockSubsidy(spendHeight)
	coinbaseOut := totalSentByCoinbase(block.Transactions[0])
	if coinbaseOut > subsidy+totalFees {
		str := fmt.Sprintf("coinbase transaction pays %v which is more "+
			"than the expected value of %v", coinbaseOut, subsidy+totalFees)
		return ruleError(ErrBadFee, str)
	}

	flags := txscript.StandardVerifyFlags(deployment.magneticAnomalyActive)
	inputs, err := BuildInputVerifications(block, view, flags)
	if err != nil {
		return err
	}
	return b.inputVerifier.Verify(context.Background(), inputs, b.sigCache, nil)
}

// ProcessBlock validates block and, if it extends the current best chain
// (or a side branch whose chainwork now exceeds it), connects it, per
// spec.md §4.E's block connection pipeline.  It returns whether the block
// became part of the main chain.
func (b *BlockChain) ProcessBlock(block *wire.MsgBlock) (bool, error) {
	now := b.now()
	if err := checkBlockHeaderSanity(&block.Header, b.params.PowLimit, now); err != nil {
		return false, err
	}

	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	hash := block.BlockHash()
	if b.index.HaveBlock(&hash) {
		return false, ruleError(ErrDuplicateTx, "block already known")
	}

	// New always connects the network's genesis block during
	// construction, so by the time ProcessBlock is reachable the index
	// already has at least one entry and every submitted block must
	// chain from a known parent.
	parent := b.index.LookupNode(&block.Header.PrevBlock)
	if parent == nil {
		return false, ruleError(ErrMissingParent, fmt.Sprintf(
			"previous block %s is not known", block.Header.PrevBlock))
	}

	if err := checkBlockContext(&block.Header, parent, b.params, now); err != nil {
		return false, err
	}

	deployment := calcDeploymentState(parent, b.params)
	if err := checkBlockSanity(block, deployment.magneticAnomalyActive); err != nil {
		return false, err
	}

	node := newBlockNode(&block.Header, parent)
	node.status = statusDataStored
	b.index.AddNode(node)

	if err := b.store.StoreBlock(block); err != nil {
		return false, err
	}

	if b.tip != nil && node.workSum.Cmp(&b.tip.workSum) <= 0 {
		// Not more work than the current tip: retained as a side branch
		// per spec.md §4.E's "ties broken by earliest received" -- the
		// already-connected tip keeps precedence.
		log.Debugf("accepted block %v at height %d as a side branch", hash, node.height)
		return false, nil
	}

	if err := b.reorganizeChain(node); err != nil {
		node.status |= statusValidateFailed
		log.Warnf("block %v at height %d rejected: %v", hash, node.height, err)
		return false, err
	}
	return true, nil
}

// reorganizeChain makes target the new best chain tip: it disconnects the
// current tip back to the fork point shared with target (in reverse
// height order), then connects target's branch forward from the fork
// point (in height order), per spec.md §4.E's Reorganisation rules.  On
// any forward-connect failure, it rolls back to the original tip and
// returns the error.
func (b *BlockChain) reorganizeChain(target *blockNode) error {
	originalTip := b.tip

	fork := findFork(originalTip, target)
	log.Infof("chain reorganization: %v (height %d) -> %v (height %d), fork point %v (height %d)",
		originalTip.hash, originalTip.height, target.hash, target.height, fork.hash, fork.height)

	var detached []*blockNode
	for n := originalTip; n != nil && n != fork; n = n.parent {
		detached = append(detached, n)
	}
	var attached []*blockNode
	for n := target; n != nil && n != fork; n = n.parent {
		attached = append(attached, n)
	}
	// attached was built tip-to-fork; reverse it to fork-to-tip order.
	for i, j := 0, len(attached)-1; i < j; i, j = i+1, j-1 {
		attached[i], attached[j] = attached[j], attached[i]
	}

	for _, n := range detached {
		block, err := b.store.FetchBlock(&n.hash)
		if err != nil {
			return err
		}
		if err := b.disconnectBlock(n, block); err != nil {
			return err
		}
	}

	if len(detached) > 0 {
		b.sendNotification(NTChainReorgStarted, target.hash)
	}

	for i, n := range attached {
		block, err := b.store.FetchBlock(&n.hash)
		if err != nil {
			return err
		}
		if err := b.connectBlock(n, block); err != nil {
			// Roll back: disconnect whatever we'd already attached, in
			// reverse, then reconnect everything we detached, restoring
			// the original tip exactly.
			for j := i - 1; j >= 0; j-- {
				undoBlock, ferr := b.store.FetchBlock(&attached[j].hash)
				if ferr != nil {
					return ferr
				}
				_ = b.disconnectBlock(attached[j], undoBlock)
			}
			for j := len(detached) - 1; j >= 0; j-- {
				redoBlock, ferr := b.store.FetchBlock(&detached[j].hash)
				if ferr != nil {
					return ferr
				}
				_ = b.connectBlock(detached[j], redoBlock)
			}
			return err
		}
	}

	return nil
}

// findFork returns the highest common ancestor of a and b.
func findFork(a, b *blockNode) *blockNode {
	for a != nil && b != nil && a.height != b.height {
		if a.height > b.height {
			a = a.parent
		} else {
			b = b.parent
		}
	}
	for a != nil && b != nil && a != b {
		a = a.parent
		b = b.parent
	}
	return a
}

// connectBlock runs the full per-input verification and UTXO update
// pipeline for node/block and, on success, commits the transition and
// advances the tip, per spec.md §4.E step 4-5.
func (b *BlockChain) connectBlock(node *blockNode, block *wire.MsgBlock) error {
	spendHeight := node.height
	view := NewUtxoViewpoint()
	if err := view.FetchInputUtxos(block, b.store, spendHeight); err != nil {
		return err
	}

	deployment := calcDeploymentState(node.parent, b.params)

	var totalFees int64
	for _, tx := range block.Transactions {
		fee, err := CheckTransactionInputs(tx, spendHeight, view, b.params)
		if err != nil {
			return err
		}
		totalFees += fee
	}

	if err := checkBlockSigOps(block, view); err != nil {
		return err
	}

	subsidy := b.params.CalcBlockSubsidy(node.height)
	coinbaseOut := totalSentByCoinbase(block.Transactions[0])
	if coinbaseOut > subsidy+totalFees {
		str := fmt.Sprintf("coinbase transaction for block pays %v "+
			"which is more than expected value of %v", coinbaseOut, subsidy+totalFees)
		return ruleError(ErrBadFee, str)
	}

	flags := txscript.StandardVerifyFlags(deployment.magneticAnomalyActive)
	inputs, err := BuildInputVerifications(block, view, flags)
	if err != nil {
		return err
	}
	if err := b.inputVerifier.Verify(context.Background(), inputs, b.sigCache, nil); err != nil {
		return err
	}

	undo := &BlockUndo{TxUndo: make([][]*UtxoEntry, len(block.Transactions))}
	for i, tx := range block.Transactions {
		undo.TxUndo[i] = view.connectTransaction(tx, node.height)
	}

	if err := b.store.CommitConnect(&node.hash, node.height, view, undo); err != nil {
		return err
	}

	node.status = statusDataStored | statusValid
	b.tip = node
	b.sendNotification(NTBlockConnected, &BlockConnectedData{Block: block, View: view})
	b.sendNotification(NTChainTipChanged, node.hash)
	log.Debugf("connected block %v at height %d (%d txs, %d sats fees)",
		node.hash, node.height, len(block.Transactions), totalFees)
	return nil
}

// disconnectBlock reverses a prior connectBlock for node/block, restoring
// the UTXO set to the state it held immediately before node was connected
// and moving the tip back to node's parent.
func (b *BlockChain) disconnectBlock(node *blockNode, block *wire.MsgBlock) error {
	undo, err := b.store.FetchUndo(&node.hash)
	if err != nil {
		return err
	}

	view := NewUtxoViewpoint()
	for i := len(block.Transactions) - 1; i >= 0; i-- {
		view.disconnectTransaction(block.Transactions[i], undo.TxUndo[i])
	}

	var prevHash chainhash.Hash
	if node.parent != nil {
		prevHash = node.parent.hash
	}
	if err := b.store.CommitDisconnect(&node.hash, &prevHash, view); err != nil {
		return err
	}

	b.tip = node.parent
	b.sendNotification(NTBlockDisconnected, &BlockDisconnectedData{Block: block, View: view})
	if b.tip != nil {
		b.sendNotification(NTChainTipChanged, b.tip.hash)
	}
	log.Debugf("disconnected block %v at height %d", node.hash, node.height)
	return nil
}

// totalSentByCoinbase sums the output values of a coinbase transaction.
func totalSentByCoinbase(coinbase *wire.MsgTx) int64 {
	var total int64
	for _, out := range coinbase.TxOut {
		total += out.Value
	}
	return total
}
