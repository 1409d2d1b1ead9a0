// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"testing"
	"time"

	"github.com/bchcore/bchd/blockchain/standalone"
	"github.com/bchcore/bchd/chaincfg"
	"github.com/bchcore/bchd/wire"
)

// testRetargetParams is a narrow legacy-retarget-only configuration with a
// short retarget interval, so a boundary can be reached in a handful of
// blocks instead of 2016.
var testRetargetParams = chaincfg.Params{
	PowLimit:                 standalone.CompactToBig(0x207fffff),
	PowLimitBits:             0x207fffff,
	RetargetAdjustmentFactor: 4,
	TargetTimespan:           4 * 10 * time.Minute,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetInterval:         4,
}

func buildTestChain(bits []uint32, startTime int64, spacing int64) *blockNode {
	var parent *blockNode
	ts := startTime
	for _, b := range bits {
		header := &wire.BlockHeader{Bits: b, Timestamp: ts}
		parent = newBlockNode(header, parent)
		ts += spacing
	}
	return parent
}

// TestCalcNextRequiredDifficultyLegacyNonBoundary checks that difficulty is
// unchanged between retarget boundaries.
func TestCalcNextRequiredDifficultyLegacyNonBoundary(t *testing.T) {
	tip := buildTestChain([]uint32{0x207fffff, 0x207fffff}, 1000, 600)

	got := calcNextRequiredDifficultyLegacy(tip, time.Unix(tip.timestamp+600, 0), &testRetargetParams)
	if got != tip.bits {
		t.Fatalf("non-boundary difficulty changed: got %#x, want %#x", got, tip.bits)
	}
}

// TestCalcNextRequiredDifficultyLegacyRetargetsFaster checks that blocks
// mined faster than the target spacing tighten (lower) the next target.
func TestCalcNextRequiredDifficultyLegacyRetargetsFaster(t *testing.T) {
	// Four blocks at the floor difficulty, spaced at half the target rate,
	// crosses the interval-4 boundary at height 4.
	tip := buildTestChain([]uint32{0x207fffff, 0x207fffff, 0x207fffff, 0x207fffff}, 1000, 300)

	got := calcNextRequiredDifficultyLegacy(tip, time.Unix(tip.timestamp+300, 0), &testRetargetParams)
	gotTarget := standalone.CompactToBig(got)
	if gotTarget.Cmp(testRetargetParams.PowLimit) >= 0 {
		t.Fatalf("expected a tightened (sub-floor) target, got %#x which is at or above the floor", got)
	}
}

// TestFindPrevTestNetDifficulty checks that the testnet minimum-difficulty
// walk-back stops at the first non-floor block or retarget boundary.
func TestFindPrevTestNetDifficulty(t *testing.T) {
	params := testRetargetParams
	params.RetargetInterval = 100

	raised := newBlockNode(&wire.BlockHeader{Bits: 0x1d00ffff, Timestamp: 1000}, nil)
	floor1 := newBlockNode(&wire.BlockHeader{Bits: 0x207fffff, Timestamp: 1600}, raised)
	floor2 := newBlockNode(&wire.BlockHeader{Bits: 0x207fffff, Timestamp: 2200}, floor1)

	got := findPrevTestNetDifficulty(floor2, &params)
	if got != raised.bits {
		t.Fatalf("findPrevTestNetDifficulty = %#x, want %#x (the last non-floor block)", got, raised.bits)
	}
}

// TestCalcNextRequiredDifficultyDispatch checks that CalcNextRequiredDifficulty
// picks the legacy path when UseCashDAA is false and the chain is too short
// for the cash DAA window regardless.
func TestCalcNextRequiredDifficultyDispatch(t *testing.T) {
	params := testRetargetParams
	params.UseCashDAA = false

	tip := buildTestChain([]uint32{0x207fffff, 0x207fffff}, 1000, 600)
	got := CalcNextRequiredDifficulty(tip, time.Unix(tip.timestamp+600, 0), &params)
	want := calcNextRequiredDifficultyLegacy(tip, time.Unix(tip.timestamp+600, 0), &params)
	if got != want {
		t.Fatalf("CalcNextRequiredDifficulty = %#x, want %#x", got, want)
	}
}

// TestGenesisDifficultyIsPowLimit checks the nil-parent base case.
func TestGenesisDifficultyIsPowLimit(t *testing.T) {
	if got := CalcNextRequiredDifficulty(nil, time.Unix(0, 0), &testRetargetParams); got != testRetargetParams.PowLimitBits {
		t.Fatalf("genesis difficulty = %#x, want %#x", got, testRetargetParams.PowLimitBits)
	}
}

// TestCalcNextRequiredDifficultyLegacyGoldenVector pins the literal bits
// from spec.md §8 scenario 4: the real mainnet retarget at the boundary
// between blocks 32255 and 32256.
func TestCalcNextRequiredDifficultyLegacyGoldenVector(t *testing.T) {
	params := chaincfg.MainNetParams
	params.RetargetInterval = 2016

	const (
		parentBits = 0x1d00ffff
		firstTime  = 1261130161
		parentTime = 1262152739
		want       = 0x1d00d86a
	)

	first := newBlockNode(&wire.BlockHeader{Bits: parentBits, Timestamp: firstTime}, nil)
	first.height = 32255 - (params.RetargetInterval - 1)

	parent := first
	for h := first.height + 1; h <= 32255; h++ {
		ts := int64(firstTime)
		if h == 32255 {
			ts = parentTime
		}
		parent = newBlockNode(&wire.BlockHeader{Bits: parentBits, Timestamp: ts}, parent)
	}

	got := calcNextRequiredDifficultyLegacy(parent, time.Unix(parentTime+600, 0), &params)
	if got != want {
		t.Fatalf("calcNextRequiredDifficultyLegacy = %#x, want %#x", got, want)
	}
}

// TestCalcNextCashWorkRequiredGoldenSequence pins the literal cash DAA bits
// sequence from spec.md §8 scenario 5: a long half-limit-target backbone
// followed by bursts of fast and slow blocks, ending with the target
// flooring at PowLimitBits and holding there.
func TestCalcNextCashWorkRequiredGoldenSequence(t *testing.T) {
	params := chaincfg.MainNetParams

	halfLimit := new(big.Int).Rsh(params.PowLimit, 1)
	halfLimitBits := standalone.BigToCompact(halfLimit)

	const spacing = 600 // params.TargetTimePerBlock, in seconds
	ts := int64(1480000000)

	var tip *blockNode
	for i := 0; i < 2049; i++ {
		tip = newBlockNode(&wire.BlockHeader{Bits: halfLimitBits, Timestamp: ts}, tip)
		ts += spacing
	}

	advance := func(n int, blockSpacing int64) uint32 {
		var bits uint32
		for i := 0; i < n; i++ {
			bits = calcNextCashWorkRequired(tip, &params)
			tip = newBlockNode(&wire.BlockHeader{Bits: bits, Timestamp: ts}, tip)
			ts += blockSpacing
		}
		return bits
	}

	if got := advance(10, 550); got != 0x1c0fe7b1 {
		t.Fatalf("after 10 blocks at 550s spacing: got %#x, want 0x1c0fe7b1", got)
	}
	if got := advance(20, 10); got != 0x1c0db19f {
		t.Fatalf("after 20 blocks at 10s spacing: got %#x, want 0x1c0db19f", got)
	}
	if got := advance(1, 6000); got != 0x1c0d9222 {
		t.Fatalf("after one 6000s block: got %#x, want 0x1c0d9222", got)
	}
	if got := advance(93, 6000); got != 0x1c2f13b9 {
		t.Fatalf("after 93 blocks at 6000s spacing: got %#x, want 0x1c2f13b9", got)
	}

	var floored uint32
	for i := 0; i < 400; i++ {
		floored = advance(1, 6000)
		if floored == params.PowLimitBits {
			break
		}
	}
	if floored != params.PowLimitBits {
		t.Fatalf("target never floored at PowLimitBits, last got %#x", floored)
	}
	if got := advance(1, 6000); got != params.PowLimitBits {
		t.Fatalf("floored target should remain constant: got %#x, want %#x", got, params.PowLimitBits)
	}
}
