// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"bytes"
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bchcore/bchd/bchutil"
	"github.com/bchcore/bchd/blockchain"
	"github.com/bchcore/bchd/chaincfg"
	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/txscript"
	"github.com/bchcore/bchd/wire"
)

// blockHeaderOverhead is the maximum number of bytes it takes to serialize
// a block header plus the varint transaction count, reserved up front so
// the running block size accounts for it before any transaction is added.
const blockHeaderOverhead = wire.MaxBlockHeaderPayload + 9

// coinbaseSequenceNum is the sequence number used for the coinbase
// transaction's lone input.
const coinbaseSequenceNum = wire.MaxTxInSequenceNum

// CalcPriority returns the transaction priority given a transaction,
// referenced inputs resolved against utxoView, and the height at which the
// transaction is being considered: sum(inputValue * inputAge) / size,
// where inputAge is the number of confirmations nextBlockHeight would add
// to an input's originating block.  A transaction every one of whose
// inputs originates in the block itself being built (age zero, or any
// input this view cannot resolve) has priority zero.  TxSource
// implementations use this to populate TxDesc.Priority.
func CalcPriority(tx *wire.MsgTx, utxoView *blockchain.UtxoViewpoint, nextBlockHeight int64) float64 {
	if tx.IsCoinBase() {
		return 0
	}

	var totalInputAge float64
	for _, txIn := range tx.TxIn {
		entry := utxoView.LookupEntry(txIn.PreviousOutPoint)
		if entry == nil {
			return 0
		}

		inputAge := nextBlockHeight - entry.BlockHeight()
		if inputAge < 0 {
			inputAge = 0
		}
		totalInputAge += float64(entry.Amount()) * float64(inputAge)
	}

	size := tx.SerializeSize()
	if size == 0 {
		return 0
	}
	return totalInputAge / float64(size)
}

// ErrTemplateTooLarge is returned when a constructed template would exceed
// the policy's BlockMaxSize before a single mempool transaction has even
// been considered (an impossible-to-satisfy policy).
var ErrTemplateTooLarge = errors.New("mining: coinbase alone exceeds policy.BlockMaxSize")

// txPrioItem couples one mempool TxDesc with the assembler's dependency
// bookkeeping: how many of its in-mempool parents have not yet been added
// to the block, per spec.md §4.F's "push roots into a max-heap" dependency
// graph walk.
type txPrioItem struct {
	desc            *TxDesc
	unsatisfiedDeps int
}

// txPriorityQueueLessFunc compares two entries of a txPriorityQueue.
type txPriorityQueueLessFunc func(pq *txPriorityQueue, i, j int) bool

// txPriorityQueue implements container/heap.Interface over txPrioItems,
// ordered by an interchangeable compare function so the same queue can
// serve both the priority phase and the fee-rate phase of spec.md §4.F.
type txPriorityQueue struct {
	lessFunc txPriorityQueueLessFunc
	items    []*txPrioItem
}

func (pq *txPriorityQueue) Len() int { return len(pq.items) }

func (pq *txPriorityQueue) Less(i, j int) bool { return pq.lessFunc(pq, i, j) }

func (pq *txPriorityQueue) Swap(i, j int) { pq.items[i], pq.items[j] = pq.items[j], pq.items[i] }

func (pq *txPriorityQueue) Push(x interface{}) {
	pq.items = append(pq.items, x.(*txPrioItem))
}

func (pq *txPriorityQueue) Pop() interface{} {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil
	pq.items = pq.items[:n-1]
	return item
}

// SetLessFunc reassigns pq's compare function and re-heapifies, used when
// the assembler switches from the priority phase to the fee-rate phase.
func (pq *txPriorityQueue) SetLessFunc(lessFunc txPriorityQueueLessFunc) {
	pq.lessFunc = lessFunc
	heap.Init(pq)
}

// combinedRate is the "max(entry.rate, entry.descRate)" key spec.md §4.F's
// fee-rate phase sorts by.
func combinedRate(desc *TxDesc) float64 {
	rate := feeRate(desc)
	if desc.DescendantRate > rate {
		return desc.DescendantRate
	}
	return rate
}

// byPriority sorts highest priority first, then highest combined fee rate.
func byPriority(pq *txPriorityQueue, i, j int) bool {
	a, b := pq.items[i].desc, pq.items[j].desc
	if a.Priority == b.Priority {
		return combinedRate(a) > combinedRate(b)
	}
	return a.Priority > b.Priority
}

// byFeeRate sorts highest combined fee rate first, then highest priority.
func byFeeRate(pq *txPriorityQueue, i, j int) bool {
	a, b := pq.items[i].desc, pq.items[j].desc
	rateA, rateB := combinedRate(a), combinedRate(b)
	if rateA == rateB {
		return a.Priority > b.Priority
	}
	return rateA > rateB
}

func newTxPriorityQueue(reserve int, sortByFee bool) *txPriorityQueue {
	pq := &txPriorityQueue{items: make([]*txPrioItem, 0, reserve)}
	if sortByFee {
		pq.SetLessFunc(byFeeRate)
	} else {
		pq.SetLessFunc(byPriority)
	}
	return pq
}

// BlockTemplate houses a block that is ready to be solved by a miner,
// along with the bookkeeping spec.md §4.F's BlockTemplate data model
// calls for: per-transaction fees and sigop counts, the height it connects
// at, and whether its coinbase pays a real address.
type BlockTemplate struct {
	Block *wire.MsgBlock

	// Fees holds each transaction's fee, parallel to Block.Transactions.
	// Fees[0] (the coinbase) holds the negative of every other entry's
	// sum, matching the teacher's convention.
	Fees []int64

	// SigOpCounts holds each transaction's signature operation count,
	// parallel to Block.Transactions.
	SigOpCounts []int64

	Height int64

	// ValidPayAddress reports whether the coinbase pays a real address
	// (false when the caller asked for an anyone-can-spend coinbase,
	// e.g. so external mining software can substitute its own).
	ValidPayAddress bool
}

// ChainTip is the narrow view of chain state the assembler needs, matched
// by *blockchain.BlockChain: the tip to build on, a UTXO view over a
// candidate set of transactions, the active consensus parameters, and an
// optional full-pipeline recheck of the assembled block.
type ChainTip interface {
	MiningTip() blockchain.MiningTipInfo
	FetchUtxoView(block *wire.MsgBlock) (*blockchain.UtxoViewpoint, error)
	Params() *chaincfg.Params
	CheckConnectBlock(block *wire.MsgBlock) error
}

// BlkTmplGenerator builds block templates from a policy, a mempool
// snapshot, and chain state, per spec.md §4.F.
type BlkTmplGenerator struct {
	policy   *Policy
	txSource TxSource
	chain    ChainTip
	sigCache *txscript.SigCache
	now      func() time.Time
}

// NewBlkTmplGenerator returns a new template generator.  now overrides
// time.Now for tests; nil uses the real wall clock.
func NewBlkTmplGenerator(policy *Policy, txSource TxSource, chain ChainTip, sigCache *txscript.SigCache, now func() time.Time) *BlkTmplGenerator {
	if now == nil {
		now = time.Now
	}
	return &BlkTmplGenerator{
		policy:   policy,
		txSource: txSource,
		chain:    chain,
		sigCache: sigCache,
		now:      now,
	}
}

// standardCoinbaseScript returns the coinbase scriptSig: the BIP-34 height
// push (spec.md §4.F, "coinbase script prepends the height-push") followed
// by the policy's coinbase flags, which must total no more than 100 bytes
// (spec.md §3's coinbase script bound) and, by policy, no more than 20
// bytes of flags (spec.md §4.F).
func standardCoinbaseScript(nextBlockHeight int64, flags []byte) ([]byte, error) {
	if len(flags) > 20 {
		return nil, fmt.Errorf("mining: coinbase flags of %d bytes exceeds the 20-byte limit", len(flags))
	}
	return txscript.NewScriptBuilder().
		AddInt64(nextBlockHeight).
		AddData(flags).
		Script()
}

// createCoinbaseTx returns a coinbase transaction paying the per-height
// subsidy (fees are added once known) to payToAddress, or to an
// anyone-can-spend output when payToAddress is nil.
func createCoinbaseTx(params *chaincfg.Params, coinbaseScript []byte, nextBlockHeight int64, payToAddress *bchutil.Address) (*wire.MsgTx, error) {
	var pkScript []byte
	if payToAddress != nil {
		var err error
		pkScript, err = txscript.PayToAddrScript(payToAddress)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		pkScript, err = txscript.NewScriptBuilder().AddOp(txscript.OP_1).Script()
		if err != nil {
			return nil, err
		}
	}

	tx := wire.NewMsgTx(1)
	tx.TxIn = append(tx.TxIn, &wire.TxIn{
		PreviousOutPoint: *wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex),
		SignatureScript:  coinbaseScript,
		Sequence:         coinbaseSequenceNum,
	})
	tx.TxOut = append(tx.TxOut, &wire.TxOut{
		Value:    params.CalcBlockSubsidy(nextBlockHeight),
		PkScript: pkScript,
	})
	return tx, nil
}

// NewBlockTemplate returns a new block template built on top of the
// current best chain tip, ready to be solved by a miner.  payToAddress may
// be nil, in which case the coinbase output is anyone-can-spend (useful
// when external mining software supplies its own coinbase in its place).
//
// Transactions are selected per spec.md §4.F: a dependency graph is built
// over the mempool snapshot (roots with no in-mempool parent go straight
// into a max-heap); while BlockPrioritySize allots space, the heap is
// ordered by priority (then combined fee rate) until cumulative size
// reaches that budget or the next entry's priority falls below
// PriorityThreshold, at which point the heap is re-ordered by combined fee
// rate (then priority) for the remainder. Entries are skipped (along with
// everything that depends on them) if they would exceed the size or
// sigop budget, or are not yet final at the candidate height/time.
//
// If preverify is set, the assembled block is run through the full
// connection pipeline (ChainTip.CheckConnectBlock) before being returned;
// a failure there indicates a bug in the assembler itself rather than a
// consensus violation by any individual transaction, per spec.md §4.F.
func (g *BlkTmplGenerator) NewBlockTemplate(payToAddress *bchutil.Address, preverify bool) (*BlockTemplate, error) {
	params := g.chain.Params()
	tip := g.chain.MiningTip()
	nextBlockHeight := tip.Height + 1

	coinbaseScript, err := standardCoinbaseScript(nextBlockHeight, g.policy.CoinbaseFlags)
	if err != nil {
		return nil, err
	}
	coinbaseTx, err := createCoinbaseTx(params, coinbaseScript, nextBlockHeight, payToAddress)
	if err != nil {
		return nil, err
	}
	numCoinbaseSigOps := int64(blockchain.CountLegacySigOps(coinbaseTx))

	blockMaxSize := g.policy.BlockMaxSize
	if blockMaxSize == 0 || blockMaxSize > wire.MaxForkBlockSize {
		blockMaxSize = wire.MaxForkBlockSize
	}
	maxSigOps := g.policy.BlockMaxSigOps
	if maxSigOps == 0 {
		maxSigOps = blockchain.MaxBlockSigOps(int(blockMaxSize))
	}

	baseSize := uint32(blockHeaderOverhead) + uint32(coinbaseTx.SerializeSize())
	if blockMaxSize < baseSize {
		return nil, ErrTemplateTooLarge
	}

	sourceTxns := g.txSource.MiningDescs()

	// Prefetch every resolvable UTXO for the candidate set in one round
	// trip; this also pre-adds every candidate's own outputs to the view,
	// but a candidate whose mempool parent is never actually selected is
	// never popped off the dependency queue below regardless, so its
	// already-visible output is simply never looked up.
	candidateBlock := &wire.MsgBlock{Transactions: make([]*wire.MsgTx, 0, len(sourceTxns)+1)}
	candidateBlock.Transactions = append(candidateBlock.Transactions, coinbaseTx)
	for _, desc := range sourceTxns {
		candidateBlock.Transactions = append(candidateBlock.Transactions, desc.Tx)
	}
	blockUtxos, err := g.chain.FetchUtxoView(candidateBlock)
	if err != nil {
		return nil, err
	}

	items := make(map[chainhash.Hash]*txPrioItem, len(sourceTxns))
	dependers := make(map[chainhash.Hash]map[chainhash.Hash]*txPrioItem)
	for _, desc := range sourceTxns {
		items[desc.Tx.TxHash()] = &txPrioItem{desc: desc, unsatisfiedDeps: len(desc.ParentTxs)}
	}
	for txid, item := range items {
		for _, parent := range item.desc.ParentTxs {
			deps, ok := dependers[parent]
			if !ok {
				deps = make(map[chainhash.Hash]*txPrioItem)
				dependers[parent] = deps
			}
			deps[txid] = item
		}
	}

	sortedByFee := g.policy.BlockPrioritySize == 0
	queue := newTxPriorityQueue(len(sourceTxns), sortedByFee)
	for _, item := range items {
		if item.unsatisfiedDeps == 0 {
			heap.Push(queue, item)
		}
	}

	blockTxns := make([]*wire.MsgTx, 0, len(sourceTxns)+1)
	txFees := make([]int64, 0, len(sourceTxns)+1)
	txSigOps := make([]int64, 0, len(sourceTxns)+1)

	blockSize := baseSize
	blockSigOps := numCoinbaseSigOps
	var totalFees int64

	for queue.Len() > 0 {
		item := heap.Pop(queue).(*txPrioItem)
		desc := item.desc
		tx := desc.Tx
		deps := dependers[tx.TxHash()]

		if !tx.IsFinal(nextBlockHeight, tip.MedianTime.Unix()) {
			continue
		}

		txSize := uint32(tx.SerializeSize())
		if blockSize+txSize < blockSize || blockSize+txSize > blockMaxSize {
			continue
		}

		legacySigOps := int64(blockchain.CountLegacySigOps(tx))
		p2shSigOps, err := blockchain.CountP2SHSigOps(tx, blockUtxos)
		if err != nil {
			continue
		}
		numSigOps := legacySigOps + int64(p2shSigOps)
		if blockSigOps+numSigOps < blockSigOps || blockSigOps+numSigOps > maxSigOps {
			continue
		}

		// Switch from the priority phase to the fee-rate phase once the
		// priority-size budget is spent or priority has dropped below
		// the configured threshold, per spec.md §4.F.
		if !sortedByFee && (blockSize+txSize >= g.policy.BlockPrioritySize || desc.Priority < g.policy.PriorityThreshold) {
			sortedByFee = true
			queue.SetLessFunc(byFeeRate)
			if blockSize+txSize > g.policy.BlockPrioritySize || desc.Priority < g.policy.PriorityThreshold {
				heap.Push(queue, item)
				continue
			}
		}

		fee, err := blockchain.CheckTransactionInputs(tx, nextBlockHeight, blockUtxos, params)
		if err != nil {
			continue
		}

		connectTransactionInView(blockUtxos, tx, nextBlockHeight)

		blockTxns = append(blockTxns, tx)
		txFees = append(txFees, fee)
		txSigOps = append(txSigOps, numSigOps)
		blockSize += txSize
		blockSigOps += numSigOps
		totalFees += fee

		for _, child := range deps {
			child.unsatisfiedDeps--
			if child.unsatisfiedDeps == 0 {
				heap.Push(queue, child)
			}
		}
	}

	if tip.MagneticAnomalyActive {
		sortTransactionsCanonically(blockTxns, txFees, txSigOps)
	}

	coinbaseTx.TxOut[0].Value += totalFees
	allTxns := make([]*wire.MsgTx, 0, len(blockTxns)+1)
	allTxns = append(allTxns, coinbaseTx)
	allTxns = append(allTxns, blockTxns...)
	allFees := make([]int64, 0, len(txFees)+1)
	allFees = append(allFees, -totalFees)
	allFees = append(allFees, txFees...)
	allSigOps := make([]int64, 0, len(txSigOps)+1)
	allSigOps = append(allSigOps, numCoinbaseSigOps)
	allSigOps = append(allSigOps, txSigOps...)

	merkles, _ := blockchain.BuildMerkleTreeStore(allTxns)

	ts := tip.MedianTime.Add(time.Second)
	if now := g.now(); now.After(ts) {
		ts = now
	}

	msgBlock := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  tip.Hash,
			MerkleRoot: *merkles[len(merkles)-1],
			Timestamp:  ts.Unix(),
			Bits:       tip.Bits,
		},
		Transactions: allTxns,
	}

	if preverify {
		if err := g.chain.CheckConnectBlock(msgBlock); err != nil {
			log.Errorf("assembled block template at height %d failed preverify: %v", nextBlockHeight, err)
			return nil, fmt.Errorf("mining: assembled block failed preverify: %w", err)
		}
	}

	log.Debugf("created new block template: height %d, %d transactions, %d in fees",
		nextBlockHeight, len(allTxns), totalFees)

	return &BlockTemplate{
		Block:           msgBlock,
		Fees:            allFees,
		SigOpCounts:     allSigOps,
		Height:          nextBlockHeight,
		ValidPayAddress: payToAddress != nil,
	}, nil
}

// sortTransactionsCanonically reorders txns (and the parallel fees/sigOps
// slices) ascending by txid, the canonical transaction ordering spec.md
// §4.F requires once magnetic anomaly is active, matching the comparison
// blockchain.checkBlockSanity uses when verifying it.
func sortTransactionsCanonically(txns []*wire.MsgTx, fees, sigOps []int64) {
	idx := make([]int, len(txns))
	ids := make([]chainhash.Hash, len(txns))
	for i, tx := range txns {
		idx[i] = i
		ids[i] = tx.TxHash()
	}
	sort.Slice(idx, func(i, j int) bool {
		return bytes.Compare(ids[idx[i]][:], ids[idx[j]][:]) < 0
	})

	sortedTxns := make([]*wire.MsgTx, len(txns))
	sortedFees := make([]int64, len(fees))
	sortedSigOps := make([]int64, len(sigOps))
	for newPos, oldPos := range idx {
		sortedTxns[newPos] = txns[oldPos]
		sortedFees[newPos] = fees[oldPos]
		sortedSigOps[newPos] = sigOps[oldPos]
	}
	copy(txns, sortedTxns)
	copy(fees, sortedFees)
	copy(sigOps, sortedSigOps)
}

// connectTransactionInView spends tx's inputs and adds its outputs to
// view, mirroring blockchain.UtxoViewpoint's own connectTransaction: by
// the time this is called, CheckTransactionInputs has already confirmed
// every input resolves in view, either fetched from the chain or added by
// an earlier call to this same function for an in-mempool parent.
func connectTransactionInView(view *blockchain.UtxoViewpoint, tx *wire.MsgTx, height int64) {
	for _, txIn := range tx.TxIn {
		view.SpendEntry(txIn.PreviousOutPoint)
	}
	view.AddTxOuts(tx, height)
}
