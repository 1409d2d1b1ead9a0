// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"
	"math/big"
	"time"

	"github.com/bchcore/bchd/blockchain/standalone"
	"github.com/bchcore/bchd/chaincfg"
	"github.com/bchcore/bchd/wire"
)

// MaxTimeOffsetSeconds is the number of seconds a block's timestamp is
// allowed to be ahead of now, the local wall-clock time handed to the
// header checks, before it is rejected.  No network-reported median time
// enters this bound; only the local clock is used.
const MaxTimeOffsetSeconds = 2 * 60 * 60

// CheckTransactionSanity performs the context-free checks spec.md §4.D
// calls "Sanity": at least one input and one output, serialized size
// within budget, every output's value in range, running total in range, no
// duplicate prevouts, and (for a coinbase) a 2-100 byte scriptSig.  It
// never consults chain state and never mutates it.
func CheckTransactionSanity(tx *wire.MsgTx) error {
	if len(tx.TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "transaction has no inputs")
	}
	if len(tx.TxOut) == 0 {
		return ruleError(ErrNoTxOutputs, "transaction has no outputs")
	}
	if tx.SerializeSize() > wire.MaxTxSize {
		str := fmt.Sprintf("serialized transaction is too big - got "+
			"%d, max %d", tx.SerializeSize(), wire.MaxTxSize)
		return ruleError(ErrTxTooBig, str)
	}

	var totalOut int64
	for _, txOut := range tx.TxOut {
		if txOut.Value < 0 {
			str := fmt.Sprintf("transaction output has negative value of %v", txOut.Value)
			return ruleError(ErrBadTxOutValue, str)
		}
		if txOut.Value > chaincfg.MaxMoney {
			str := fmt.Sprintf("transaction output value of %v is higher "+
				"than max allowed value of %v", txOut.Value, chaincfg.MaxMoney)
			return ruleError(ErrOutputValueTooHigh, str)
		}

		totalOut += txOut.Value
		if totalOut < 0 || totalOut > chaincfg.MaxMoney {
			str := fmt.Sprintf("total value of all transaction outputs "+
				"exceeds max allowed value of %v", chaincfg.MaxMoney)
			return ruleError(ErrTotalTxOutTooHigh, str)
		}
	}

	existingOutPoints := make(map[wire.OutPoint]struct{}, len(tx.TxIn))
	for _, txIn := range tx.TxIn {
		if _, ok := existingOutPoints[txIn.PreviousOutPoint]; ok {
			return ruleError(ErrDuplicateTxInputs, "transaction "+
				"contains duplicate inputs")
		}
		existingOutPoints[txIn.PreviousOutPoint] = struct{}{}
	}

	if tx.IsCoinBase() {
		slen := len(tx.TxIn[0].SignatureScript)
		if slen < 2 || slen > 100 {
			str := fmt.Sprintf("coinbase transaction script length "+
				"of %d is out of range (min: %d, max: %d)", slen, 2, 100)
			return ruleError(ErrBadCoinbaseScriptLen, str)
		}
	} else {
		for _, txIn := range tx.TxIn {
			if txIn.PreviousOutPoint.IsNull() {
				return ruleError(ErrBadTxInput, "transaction "+
					"input refers to previous output that is null")
			}
		}
	}

	return nil
}

// CheckTransactionInputs performs spec.md §4.D's "Contextual" checks for
// every non-coinbase input of tx against utxoView: each prevout must
// resolve to an unspent entry, a coinbase-sourced entry must have matured
// (spendHeight >= entry.BlockHeight() + CoinbaseMaturity), every input value
// must lie in range, and sum(inputs) must be >= sum(outputs), returning the
// fee (sum(inputs) - sum(outputs)) on success.
func CheckTransactionInputs(tx *wire.MsgTx, spendHeight int64, utxoView *UtxoViewpoint, params *chaincfg.Params) (int64, error) {
	if tx.IsCoinBase() {
		return 0, nil
	}

	var totalIn int64
	txHash := tx.TxHash()
	for txInIndex, txIn := range tx.TxIn {
		entry := utxoView.LookupEntry(txIn.PreviousOutPoint)
		if entry == nil {
			str := fmt.Sprintf("output %v referenced from transaction %s "+
				"input %d either does not exist or has already been "+
				"spent", txIn.PreviousOutPoint, txHash, txInIndex)
			return 0, ruleError(ErrMissingTxOut, str)
		}

		if entry.IsCoinBase() {
			originHeight := entry.BlockHeight()
			blocksSinceCreation := spendHeight - originHeight
			if blocksSinceCreation < params.CoinbaseMaturity {
				str := fmt.Sprintf("tried to spend coinbase "+
					"transaction output %v from height %v at "+
					"height %v before required maturity of %v "+
					"blocks", txIn.PreviousOutPoint, originHeight,
					spendHeight, params.CoinbaseMaturity)
				return 0, ruleError(ErrImmatureSpend, str)
			}
		}

		originTxSatoshi := entry.Amount()
		if originTxSatoshi < 0 {
			str := fmt.Sprintf("transaction output has negative value of %v", originTxSatoshi)
			return 0, ruleError(ErrBadTxOutValue, str)
		}
		if originTxSatoshi > chaincfg.MaxMoney {
			str := fmt.Sprintf("transaction output value of %v is "+
				"higher than max allowed value of %v", originTxSatoshi, chaincfg.MaxMoney)
			return 0, ruleError(ErrBadTxOutValue, str)
		}

		totalIn += originTxSatoshi
		if totalIn < 0 || totalIn > chaincfg.MaxMoney {
			str := fmt.Sprintf("total value of all transaction inputs "+
				"is %v which is higher than max allowed value of %v", totalIn, chaincfg.MaxMoney)
			return 0, ruleError(ErrBadTxOutValue, str)
		}
	}

	var totalOut int64
	for _, txOut := range tx.TxOut {
		totalOut += txOut.Value
	}

	if totalIn < totalOut {
		str := fmt.Sprintf("total value of all transaction inputs for "+
			"transaction %v is %v which is less than the amount "+
			"spent of %v", txHash, totalIn, totalOut)
		return 0, ruleError(ErrSpendTooHigh, str)
	}

	txFeeInSatoshi := totalIn - totalOut
	if txFeeInSatoshi < 0 || txFeeInSatoshi > chaincfg.MaxMoney {
		str := fmt.Sprintf("total fee for transaction %v is out of range", txHash)
		return 0, ruleError(ErrBadFee, str)
	}
	return txFeeInSatoshi, nil
}

// checkBlockHeaderSanity performs context-free checks on a block header:
// the block's own proof-of-work must meet the claimed target, and its
// timestamp must not be further than MaxTimeOffsetSeconds beyond now.
func checkBlockHeaderSanity(header *wire.BlockHeader, powLimit *big.Int, now time.Time) error {
	hash := header.BlockHash()
	if err := standalone.CheckProofOfWork(&hash, header.Bits, powLimit); err != nil {
		return ruleError(ErrBadPoW, err.Error())
	}

	maxTimestamp := now.Add(MaxTimeOffsetSeconds * time.Second)
	if time.Unix(header.Timestamp, 0).After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the "+
			"future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}
	return nil
}

// checkBlockSanity performs the context-free body checks spec.md §4.E's
// connection pipeline step 2 describes: every transaction passes
// CheckTransactionSanity, exactly one coinbase at index 0, the computed
// merkle root matches the header (with the duplicate-transaction
// malleability defence), the serialized size and transaction-count caps
// hold, and (when magneticAnomalyActive) transactions after the coinbase
// are in ascending txid order.
func checkBlockSanity(block *wire.MsgBlock, magneticAnomalyActive bool) error {
	txs := block.Transactions
	if len(txs) == 0 {
		return ruleError(ErrFirstTxNotCoinbase, "block does not contain any transactions")
	}
	if !txs[0].IsCoinBase() {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in block is not a coinbase")
	}
	for i, tx := range txs[1:] {
		if tx.IsCoinBase() {
			str := fmt.Sprintf("block contains second coinbase at "+
				"index %d", i+1)
			return ruleError(ErrMultipleCoinbases, str)
		}
	}

	for _, tx := range txs {
		if err := CheckTransactionSanity(tx); err != nil {
			return err
		}
	}

	serializedSize := block.SerializeSize()
	if serializedSize > wire.MaxForkBlockSize {
		str := fmt.Sprintf("serialized block is too big - got %d, "+
			"max %d", serializedSize, wire.MaxForkBlockSize)
		return ruleError(ErrBlockTooBig, str)
	}
	if len(txs) > wire.MaxTxPerBlock(serializedSize) {
		str := fmt.Sprintf("block contains too many transactions - "+
			"got %d, max %d", len(txs), wire.MaxTxPerBlock(serializedSize))
		return ruleError(ErrTooManyTransactions, str)
	}

	if HasDuplicateInputs(txs) {
		return ruleError(ErrDuplicateTx, "block contains duplicate transactions")
	}

	merkles, duplicated := BuildMerkleTreeStore(txs)
	if duplicated {
		return ruleError(ErrBadMerkleRoot, "block contains repeated "+
			"transactions stemming from a duplicated merkle leaf")
	}
	calculatedMerkleRoot := merkles[len(merkles)-1]
	if !block.Header.MerkleRoot.IsEqual(calculatedMerkleRoot) {
		str := fmt.Sprintf("block merkle root is invalid - block "+
			"header indicates %v, but calculated value is %v",
			block.Header.MerkleRoot, calculatedMerkleRoot)
		return ruleError(ErrBadMerkleRoot, str)
	}

	if magneticAnomalyActive {
		for i := 2; i < len(txs); i++ {
			prevID := txs[i-1].TxHash()
			curID := txs[i].TxHash()
			if bytes.Compare(curID[:], prevID[:]) < 0 {
				str := fmt.Sprintf("block transaction at index %d is not "+
					"in canonical (ascending txid) order relative to "+
					"its predecessor", i)
				return ruleError(ErrBadCanonicalOrder, str)
			}
		}
	}

	return nil
}

// checkBlockSigOps enforces spec.md §4.D's per-block signature-operation
// cap (MaxBlockSigOps) using the accurate P2SH-aware count for every
// transaction whose inputs are resolvable in utxoView.
func checkBlockSigOps(block *wire.MsgBlock, utxoView *UtxoViewpoint) error {
	serializedSize := block.SerializeSize()
	maxSigOps := MaxBlockSigOps(serializedSize)

	var totalSigOps int64
	for _, tx := range block.Transactions {
		legacy := CountLegacySigOps(tx)
		totalSigOps += int64(legacy)
		if !tx.IsCoinBase() {
			p2sh, err := CountP2SHSigOps(tx, utxoView)
			if err != nil {
				return err
			}
			totalSigOps += int64(p2sh)
		}
		if totalSigOps > maxSigOps {
			str := fmt.Sprintf("block contains too many signature "+
				"operations - got %v, max %v", totalSigOps, maxSigOps)
			return ruleError(ErrBadBlockSigOps, str)
		}
	}
	return nil
}

// checkBlockContext performs spec.md §4.E's contextual header checks given
// the block's would-be parent: the header's timestamp must exceed the
// parent's MTP, and bits must equal the value CalcNextRequiredDifficulty
// computes for this parent.  The future-skew bound is checked by
// checkBlockHeaderSanity, not here.
func checkBlockContext(header *wire.BlockHeader, prevNode *blockNode, params *chaincfg.Params, now time.Time) error {
	if prevNode == nil {
		return nil // genesis
	}

	blockTime := time.Unix(header.Timestamp, 0)
	medianTime := prevNode.CalcPastMedianTime()
	if !blockTime.After(medianTime) {
		str := fmt.Sprintf("block timestamp of %v is not after parent "+
			"median time of %v", blockTime, medianTime)
		return ruleError(ErrTimeTooOld, str)
	}

	expectedBits := CalcNextRequiredDifficulty(prevNode, blockTime, params)
	if header.Bits != expectedBits {
		str := fmt.Sprintf("block difficulty of %08x is not the "+
			"expected value of %08x", header.Bits, expectedBits)
		return ruleError(ErrBadDiffBits, str)
	}

	return nil
}
