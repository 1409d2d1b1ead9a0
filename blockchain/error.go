// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

// ErrorCode identifies a kind of consensus or contextual validation
// failure.  Each maps to one of spec.md §7's stable "reason" tags.
type ErrorCode int

// Error codes, named after the stable reason tags in spec.md §7 and the
// checks in §4.D/§4.E that raise them.
const (
	ErrNoTxInputs ErrorCode = iota
	ErrNoTxOutputs
	ErrTxTooBig
	ErrBadTxOutValue
	ErrOutputValueTooHigh
	ErrTotalTxOutTooHigh
	ErrDuplicateTxInputs
	ErrBadCoinbaseScriptLen
	ErrBadTxInput
	ErrMissingTxOut
	ErrImmatureSpend
	ErrSpendTooHigh
	ErrBadFee
	ErrMultipleCoinbases
	ErrFirstTxNotCoinbase
	ErrBadMerkleRoot
	ErrDuplicateTx
	ErrBlockTooBig
	ErrTooManyTransactions
	ErrBadBlockSigOps
	ErrTimeTooOld
	ErrTimeTooNew
	ErrBadDiffBits
	ErrBadPoW
	ErrMissingParent
	ErrBadCanonicalOrder
	ErrCheckpointMismatch
	ErrScriptValidation
)

var errorCodeStrings = map[ErrorCode]string{
	ErrNoTxInputs:           "bad-txns-vin-empty",
	ErrNoTxOutputs:          "bad-txns-vout-empty",
	ErrTxTooBig:             "bad-txns-oversize",
	ErrBadTxOutValue:        "bad-txns-vout-negative",
	ErrOutputValueTooHigh:   "bad-txns-vout-toolarge",
	ErrTotalTxOutTooHigh:    "bad-txns-txouttotal-toolarge",
	ErrDuplicateTxInputs:    "bad-txns-inputs-duplicate",
	ErrBadCoinbaseScriptLen: "bad-cb-length",
	ErrBadTxInput:           "bad-txns-prevout-null",
	ErrMissingTxOut:         "bad-txns-inputs-missingorspent",
	ErrImmatureSpend:        "bad-txns-premature-spend-of-coinbase",
	ErrSpendTooHigh:         "bad-txns-in-belowout",
	ErrBadFee:               "bad-txns-fee-outofrange",
	ErrMultipleCoinbases:    "bad-cb-multiple",
	ErrFirstTxNotCoinbase:   "bad-cb-missing",
	ErrBadMerkleRoot:        "bad-txnmrklroot",
	ErrDuplicateTx:          "bad-txns-duplicate",
	ErrBlockTooBig:          "bad-blk-length",
	ErrTooManyTransactions:  "bad-blk-txns-toomany",
	ErrBadBlockSigOps:       "bad-blk-sigops",
	ErrTimeTooOld:           "time-too-old",
	ErrTimeTooNew:           "time-too-new",
	ErrBadDiffBits:          "bad-diffbits",
	ErrBadPoW:               "bad-pow",
	ErrMissingParent:        "bad-prevblk",
	ErrBadCanonicalOrder:    "bad-txns-nonfinal-order",
	ErrCheckpointMismatch:   "checkpoint-mismatch",
	ErrScriptValidation:     "bad-txns-input-script",
}

// String returns the stable reason tag spec.md §7 assigns err.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return "unknown-error"
}

// banScores assigns the peer-banning weight spec.md §7 calls "score" to each
// error code.  Sanity violations that are cheap for an attacker to trigger
// accidentally (stale timestamps) score low; violations that require
// constructing an invalid block on purpose score the maximum.
var banScores = map[ErrorCode]int{
	ErrNoTxInputs:           100,
	ErrNoTxOutputs:          100,
	ErrTxTooBig:             100,
	ErrBadTxOutValue:        100,
	ErrOutputValueTooHigh:   100,
	ErrTotalTxOutTooHigh:    100,
	ErrDuplicateTxInputs:    100,
	ErrBadCoinbaseScriptLen: 100,
	ErrBadTxInput:           100,
	ErrMissingTxOut:         0,
	ErrImmatureSpend:        0,
	ErrSpendTooHigh:         100,
	ErrBadFee:               100,
	ErrMultipleCoinbases:    100,
	ErrFirstTxNotCoinbase:   100,
	ErrBadMerkleRoot:        100,
	ErrDuplicateTx:          100,
	ErrBlockTooBig:          100,
	ErrTooManyTransactions:  100,
	ErrBadBlockSigOps:       100,
	ErrTimeTooOld:           0,
	ErrTimeTooNew:           20,
	ErrBadDiffBits:          100,
	ErrBadPoW:               100,
	ErrMissingParent:        0,
	ErrBadCanonicalOrder:    100,
	ErrCheckpointMismatch:   100,
	ErrScriptValidation:     100,
}

// RuleError identifies a violation of one of this package's consensus or
// contextual validation rules, per spec.md §7's VerifyError(reason, score).
// Sanity/standardness failures carrying a RuleError never mutate chain
// state; see blockchain.BlockChain's connection pipeline.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// Reason returns the stable reason tag for e.
func (e RuleError) Reason() string {
	return e.ErrorCode.String()
}

// BanScore returns the 0-100 peer-banning weight for e.
func (e RuleError) BanScore() int {
	return banScores[e.ErrorCode]
}

// ruleError creates a RuleError given a set of arguments, following the
// teacher's ruleError(ErrXxx, str) idiom (blockchain/subsidy.go).
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err is a blockchain.RuleError with the given
// code.
func IsErrorCode(err error, c ErrorCode) bool {
	rerr, ok := err.(RuleError)
	return ok && rerr.ErrorCode == c
}
