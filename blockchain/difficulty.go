// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/bchcore/bchd/blockchain/standalone"
	"github.com/bchcore/bchd/chaincfg"
	"github.com/decred/dcrd/math/uint256"
)

// findPrevTestNetDifficulty returns the difficulty of the previous block
// which did not have the special testnet minimum-difficulty rule applied, by
// walking backwards through blocks mined at the network's floor difficulty
// on a retarget-interval boundary, per spec.md §4.E.
func findPrevTestNetDifficulty(startNode *blockNode, params *chaincfg.Params) uint32 {
	iterNode := startNode
	for iterNode != nil && iterNode.height%params.RetargetInterval != 0 &&
		iterNode.bits == params.PowLimitBits {

		iterNode = iterNode.parent
	}

	lastBits := params.PowLimitBits
	if iterNode != nil {
		lastBits = iterNode.bits
	}
	return lastBits
}

// calcNextRequiredDifficultyLegacy implements the original Bitcoin retarget
// rule described in spec.md §4.E: at every RetargetInterval boundary,
// target_new = clamp(target_old * actualTimespan / targetTimespan,
// [targetTimespan/adjustmentFactor, targetTimespan*adjustmentFactor]), then
// re-encoded to compact form and capped at the network's PowLimit.
func calcNextRequiredDifficultyLegacy(prevNode *blockNode, newBlockTime time.Time, params *chaincfg.Params) uint32 {
	// Genesis block.
	if prevNode == nil {
		return params.PowLimitBits
	}

	nextHeight := prevNode.height + 1

	// Only change the difficulty once per retarget interval, barring the
	// special testnet rule below.
	if nextHeight%params.RetargetInterval != 0 {
		if params.ReduceMinDifficulty {
			// A block that is far enough ahead of its predecessor's
			// timestamp resets to the network floor difficulty; the
			// next non-floor block restores the most recent real
			// difficulty.
			allowMinTime := prevNode.timestamp + int64(params.MinDiffReductionTime.Seconds())
			if newBlockTime.Unix() > allowMinTime {
				return params.PowLimitBits
			}
			return findPrevTestNetDifficulty(prevNode, params)
		}
		return prevNode.bits
	}

	// The target timespan is the number of blocks in a retarget interval
	// multiplied by the target time per block.
	blockCountingInterval := params.RetargetInterval
	firstNode := prevNode.RelativeAncestor(blockCountingInterval - 1)
	if firstNode == nil {
		return prevNode.bits
	}

	actualTimespan := prevNode.timestamp - firstNode.timestamp
	adjustedTimespan := actualTimespan
	minTimespan := int64(params.TargetTimespan.Seconds()) / params.RetargetAdjustmentFactor
	maxTimespan := int64(params.TargetTimespan.Seconds()) * params.RetargetAdjustmentFactor
	switch {
	case adjustedTimespan < minTimespan:
		adjustedTimespan = minTimespan
	case adjustedTimespan > maxTimespan:
		adjustedTimespan = maxTimespan
	}

	oldTarget := standalone.CompactToBig(prevNode.bits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjustedTimespan))
	targetTimeSpan := int64(params.TargetTimespan.Seconds())
	newTarget.Div(newTarget, big.NewInt(targetTimeSpan))

	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}

	return standalone.BigToCompact(newTarget)
}

// cashDAATimespanBounds returns the min and max that bound the actual
// timespan of a cash DAA window to [½, 2] of the nominal 144-block window, per spec.md
// §4.E.
func cashDAATimespanBounds(params *chaincfg.Params) (min, max int64) {
	targetSpacing := int64(params.TargetTimePerBlock.Seconds())
	return 72 * targetSpacing, 288 * targetSpacing
}

// cashDAAWindowSize is the width, in blocks, of the cash DAA's sliding
// difficulty window, per spec.md §4.E.
const cashDAAWindowSize = 144

// suitableBlock returns the "suffix median" block the cash DAA substitutes
// for node when reading its time and chainwork: the median-by-time of node
// and its two immediate ancestors, which damps a single miner's ability to
// bias the retarget by lying about its own timestamp. This mirrors Bitcoin
// Cash's GetSuitableBlock selection described in spec.md §4.E.
func suitableBlock(node *blockNode) *blockNode {
	blocks := [3]*blockNode{node.parent.parent, node.parent, node}

	if blocks[0].timestamp > blocks[2].timestamp {
		blocks[0], blocks[2] = blocks[2], blocks[0]
	}
	if blocks[0].timestamp > blocks[1].timestamp {
		blocks[0], blocks[1] = blocks[1], blocks[0]
	}
	if blocks[1].timestamp > blocks[2].timestamp {
		blocks[1], blocks[2] = blocks[2], blocks[1]
	}

	return blocks[1]
}

// calcNextCashWorkRequired implements the Bitcoin Cash difficulty adjustment
// algorithm described in spec.md §4.E: a sliding 144-block window whose
// endpoints are each replaced by their suffix-median block before their
// chainwork and timestamps are compared, producing a next target of
// work-per-second times the target block spacing.
func calcNextCashWorkRequired(prevNode *blockNode, params *chaincfg.Params) uint32 {
	if prevNode == nil {
		return params.PowLimitBits
	}

	// The algorithm needs two full chainwork suffix-medians, each of
	// which looks three blocks deep, plus the 144-block window itself.
	if prevNode.height < cashDAAWindowSize+2 {
		return params.PowLimitBits
	}

	firstAnchor := prevNode.RelativeAncestor(cashDAAWindowSize)
	if firstAnchor == nil || firstAnchor.height < 2 {
		return params.PowLimitBits
	}

	first := suitableBlock(firstAnchor)
	last := suitableBlock(prevNode)

	work := new(big.Int).Sub(uint256ToBig(&last.workSum), uint256ToBig(&first.workSum))
	if work.Sign() <= 0 {
		return params.PowLimitBits
	}

	targetSpacing := int64(params.TargetTimePerBlock.Seconds())
	work.Mul(work, big.NewInt(targetSpacing))

	actualTimespan := last.timestamp - first.timestamp
	minTimespan, maxTimespan := cashDAATimespanBounds(params)
	switch {
	case actualTimespan < minTimespan:
		actualTimespan = minTimespan
	case actualTimespan > maxTimespan:
		actualTimespan = maxTimespan
	}
	work.Div(work, big.NewInt(actualTimespan))

	// work = 2^256 / (target+1), so recover target = 2^256/work - 1.
	nextTarget := new(big.Int).Div(oneLsh256, work)
	nextTarget.Sub(nextTarget, bigOne)

	if nextTarget.Cmp(params.PowLimit) > 0 {
		nextTarget.Set(params.PowLimit)
	}

	return standalone.BigToCompact(nextTarget)
}

// oneLsh256 and bigOne back the work<->target conversion cash DAA needs;
// kept local to this file since standalone's equivalents are unexported.
var (
	bigOne    = big.NewInt(1)
	oneLsh256 = new(big.Int).Lsh(bigOne, 256)
)

// uint256ToBig converts the pack's fixed-width Uint256 back to a big.Int via
// its big-endian byte representation, mirroring bigToUint256 in
// blocknode.go.
func uint256ToBig(u *uint256.Uint256) *big.Int {
	return new(big.Int).SetBytes(u.Bytes())
}

// CalcNextRequiredDifficulty calculates the required difficulty for the
// block after prevNode, dispatching to the cash DAA once the parent's MTP
// has crossed MagneticAnomalyActivationTime on networks that use it, and to
// the legacy retarget rule otherwise, per spec.md §4.E.
func CalcNextRequiredDifficulty(prevNode *blockNode, newBlockTime time.Time, params *chaincfg.Params) uint32 {
	if prevNode == nil {
		return params.PowLimitBits
	}

	if params.UseCashDAA && prevNode.CalcPastMedianTime().Unix() >= params.MagneticAnomalyActivationTime {
		return calcNextCashWorkRequired(prevNode, params)
	}

	return calcNextRequiredDifficultyLegacy(prevNode, newBlockTime, params)
}
