// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the per-network consensus parameters: genesis
// block, proof-of-work limits, retarget timing, reward schedule, and
// activation heights/times, following the layout of the teacher's own
// chaincfg package (mainnetparams.go / testnetparams.go / regnetparams.go).
package chaincfg

import (
	"math/big"
	"time"

	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
)

// Consensus-wide monetary constants, per spec.md §4.G.
const (
	// COIN is the number of smallest currency units (satoshis) in one coin.
	COIN = 100_000_000

	// MaxMoney is the maximum transaction amount allowed in satoshis.
	MaxMoney = 21_000_000 * COIN

	// baseSubsidy is the starting block subsidy, in satoshis.
	baseSubsidy = 50 * COIN
)

// AddressParams groups the fields a Base58Check / cashaddr encoder needs,
// split out from Params so that bchutil can depend on a narrow interface
// instead of the whole chain configuration.
type AddressParams struct {
	// NetworkName is used to namespace cache keys and error messages; it is
	// not used by either encoding directly.
	NetworkName string

	// PubKeyHashAddrID is the Base58Check version byte for P2PKH addresses.
	PubKeyHashAddrID byte

	// ScriptHashAddrID is the Base58Check version byte for P2SH addresses.
	ScriptHashAddrID byte

	// CashAddrPrefix is the cashaddr human-readable prefix (e.g.
	// "bitcoincash", "bchtest", "bchreg").
	CashAddrPrefix string
}

// Params defines a bitcoin-cash-style network by its genesis block,
// difficulty parameters, activation schedule, and address encoding.
type Params struct {
	Name        string
	Net         uint32
	DefaultPort string

	GenesisBlock *wire.MsgBlock
	GenesisHash  *chainhash.Hash
	PowLimit     *big.Int
	PowLimitBits uint32

	// Legacy retarget parameters (spec.md §4.E, "Legacy").
	RetargetAdjustmentFactor int64
	TargetTimespan           time.Duration
	TargetTimePerBlock       time.Duration
	RetargetInterval         int64 // blocks between legacy retargets

	// ReduceMinDifficulty enables the special testnet rule that resets to
	// minimum difficulty after a sufficiently long gap between blocks.
	ReduceMinDifficulty  bool
	MinDiffReductionTime time.Duration

	// UseCashDAA selects the 144-block sliding-window cash difficulty
	// algorithm (spec.md §4.E, "Cash DAA") once MagneticAnomalyActivation
	// has been reached; until then (or on networks where it is false) the
	// legacy algorithm above is used.
	UseCashDAA bool

	// MagneticAnomalyActivationTime is the parent-MTP threshold at which
	// canonical transaction ordering and the cash opcode set activate
	// (spec.md §4.E, "Deployment / activation state").
	MagneticAnomalyActivationTime int64

	CoinbaseMaturity       int64
	SubsidyHalvingInterval int64

	AddressParams AddressParams
}

// CalcBlockSubsidy returns the subsidy amount a block at the provided height
// should have, per spec.md §4.G:
//
//	halvings := floor(height / interval)
//	if halvings >= 33: return 0
//	if halvings == 0:  return BASE_REWARD
//	else:               return HALF_REWARD >> (halvings - 1)
//
// where HALF_REWARD = floor(BASE_REWARD / 2).  This mirrors the teacher's
// halving-loop idiom in blockchain/subsidy.go, adapted from Decred's
// multiplicative subsidy taper to Bitcoin's strict right-shift halving.
func (p *Params) CalcBlockSubsidy(height int64) int64 {
	if p.SubsidyHalvingInterval == 0 {
		return baseSubsidy
	}

	halvings := height / p.SubsidyHalvingInterval
	if halvings >= 33 {
		return 0
	}
	if halvings == 0 {
		return baseSubsidy
	}

	halfSubsidy := baseSubsidy / 2
	return halfSubsidy >> uint(halvings-1)
}

// TotalSubsidy returns the Sigma sum of CalcBlockSubsidy over every height,
// which spec.md §8 asserts equals 21,000,000 * COIN.  It is provided mainly
// to make that universal property directly testable without an infinite
// loop in the test itself: each halving interval contributes a constant
// subsidy times its fixed number of blocks, and the series terminates at
// halvings == 33.
func (p *Params) TotalSubsidy() int64 {
	halvingInterval := p.SubsidyHalvingInterval
	var total int64

	total += halvingInterval * baseSubsidy // halvings == 0
	halfSubsidy := int64(baseSubsidy / 2)
	for halvings := int64(1); halvings < 33; halvings++ {
		total += halvingInterval * (halfSubsidy >> uint(halvings-1))
	}
	return total
}
